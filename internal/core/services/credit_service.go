package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"creditflow/internal/core/domain"
	"creditflow/internal/core/evaluation"
	"creditflow/internal/pkg/logger"
)

// Default bound on a single score oracle call
const DefaultScoreTimeout = 5 * time.Second

// CreditService owns the credit request state machine:
// Pending -> Approved | Rejected.
type CreditService struct {
	repo         CreditRequestRepository
	oracle       ScoreOracle
	publisher    EventPublisher
	scoreTimeout time.Duration
	now          func() time.Time
	log          *slog.Logger
}

// CreditServiceOption configures a CreditService
type CreditServiceOption func(*CreditService)

// WithScoreTimeout bounds each score oracle call
func WithScoreTimeout(d time.Duration) CreditServiceOption {
	return func(s *CreditService) {
		if d > 0 {
			s.scoreTimeout = d
		}
	}
}

// WithClock overrides the creation timestamp source
func WithClock(now func() time.Time) CreditServiceOption {
	return func(s *CreditService) { s.now = now }
}

// WithLogger sets the service logger
func WithLogger(l *slog.Logger) CreditServiceOption {
	return func(s *CreditService) { s.log = l }
}

// NewCreditService creates a new credit service
func NewCreditService(repo CreditRequestRepository, oracle ScoreOracle, publisher EventPublisher, opts ...CreditServiceOption) *CreditService {
	s := &CreditService{
		repo:         repo,
		oracle:       oracle,
		publisher:    publisher,
		scoreTimeout: DefaultScoreTimeout,
		now:          time.Now,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a Pending request, then publishes
// RequestCreated. If only the publish fails the stored request is returned
// together with a BrokerError; the write is not rolled back.
func (s *CreditService) Create(ctx context.Context, input CreateCreditRequestInput) (*domain.CreditRequest, error) {
	req, err := domain.NewCreditRequest(input.ApplicantName, input.ApplicantIdentity, input.RequestedAmount, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Add(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to store credit request: %w", err)
	}

	if err := s.publish(ctx, domain.TopicRequestCreated, domain.NewRequestCreated(req)); err != nil {
		logger.Critical(ctx, s.log, "request stored but created event not published",
			"request_id", req.ID, "error", err)
		return req.Clone(), err
	}

	s.log.Info("credit request created", "request_id", req.ID, "amount", req.RequestedAmount.String())
	return req.Clone(), nil
}

// Evaluate scores a Pending request, stores the decision and publishes
// DecisionMade. Re-evaluating a decided request fails with
// domain.ErrInvalidState and changes nothing.
func (s *CreditService) Evaluate(ctx context.Context, id uint) (*domain.CreditRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: request %d is %s", domain.ErrInvalidState, id, req.Status)
	}

	scoreCtx, cancel := context.WithTimeout(ctx, s.scoreTimeout)
	score, err := s.oracle.GetScore(scoreCtx, req.ApplicantIdentity)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: request %d: %w", domain.ErrScoreProvider, id, err)
	}

	decision := evaluation.Evaluate(score, req.RequestedAmount)
	if err := evaluation.Apply(req, decision); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, req); err != nil {
		if errors.Is(err, domain.ErrStaleVersion) {
			return nil, fmt.Errorf("%w: request %d was decided concurrently", domain.ErrInvalidState, id)
		}
		return nil, fmt.Errorf("failed to store decision: %w", err)
	}

	s.log.Info("credit request decided",
		"request_id", req.ID,
		"status", req.Status,
		"score", score.Value(),
		"tier", score.Tier(),
	)

	if err := s.publish(ctx, domain.TopicCreditDecisions, domain.NewDecisionMade(req)); err != nil {
		logger.Critical(ctx, s.log, "decision stored but not published",
			"request_id", req.ID, "status", req.Status, "error", err)
		return req.Clone(), err
	}

	if err := s.repo.MarkDecisionPublished(ctx, req.ID); err != nil {
		s.log.Warn("failed to mark decision published", "request_id", req.ID, "error", err)
	} else {
		req.DecisionPublished = true
	}

	return req.Clone(), nil
}

// GetByID gets a credit request by ID; domain.ErrNotFound when absent
func (s *CreditService) GetByID(ctx context.Context, id uint) (*domain.CreditRequest, error) {
	return s.repo.GetByID(ctx, id)
}

// GetAll lists all credit requests
func (s *CreditService) GetAll(ctx context.Context) ([]*domain.CreditRequest, error) {
	return s.repo.GetAll(ctx)
}

func (s *CreditService) publish(ctx context.Context, topic string, payload interface{}) error {
	err := s.publisher.Publish(ctx, topic, payload)
	if err == nil || errors.Is(err, domain.ErrBroker) {
		return err
	}
	return domain.NewBrokerError(topic, err)
}
