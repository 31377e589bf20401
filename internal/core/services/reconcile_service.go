package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"creditflow/internal/config"
	"creditflow/internal/core/domain"

	"github.com/robfig/cron/v3"
)

// ReconcileService closes the gap between a committed state change and its
// event. On a cron schedule it re-publishes RequestCreated for requests
// left Pending past the grace period and DecisionMade for decisions whose
// publish was never confirmed. Consumers tolerate the duplicates.
type ReconcileService struct {
	repo      CreditRequestRepository
	publisher EventPublisher
	cfg       config.ReconcileConfig
	cron      *cron.Cron
	now       func() time.Time
	log       *slog.Logger
}

// ReconcileResult summarises one sweep
type ReconcileResult struct {
	RepublishedCreated   int
	RepublishedDecisions int
	Failed               int
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(repo CreditRequestRepository, publisher EventPublisher, cfg config.ReconcileConfig, log *slog.Logger) *ReconcileService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if log == nil {
		log = slog.Default()
	}
	return &ReconcileService{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		log:       log,
	}
}

// Start schedules the sweep
func (s *ReconcileService) Start() error {
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.sweep); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron.Start()

	s.log.Info("🚀 ReconcileService started", "schedule", s.cfg.Schedule, "pending_grace", s.cfg.PendingGrace)
	return nil
}

// Stop stops scheduling and waits for a running sweep to finish
func (s *ReconcileService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.log.Info("🛑 ReconcileService stopped")
}

func (s *ReconcileService) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := s.RunOnce(ctx)
	if err != nil {
		s.log.Error("reconcile sweep failed", "error", err)
		return
	}
	if res.RepublishedCreated > 0 || res.RepublishedDecisions > 0 || res.Failed > 0 {
		s.log.Info("reconcile sweep finished",
			"republished_created", res.RepublishedCreated,
			"republished_decisions", res.RepublishedDecisions,
			"failed", res.Failed,
		)
	}
}

// RunOnce performs a single sweep
func (s *ReconcileService) RunOnce(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult

	cutoff := s.now().UTC().Add(-s.cfg.PendingGrace)
	pending, err := s.repo.ListPending(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return res, fmt.Errorf("failed to list pending requests: %w", err)
	}
	for _, req := range pending {
		if err := s.publisher.Publish(ctx, domain.TopicRequestCreated, domain.NewRequestCreated(req)); err != nil {
			s.log.Warn("failed to republish created event", "request_id", req.ID, "error", err)
			res.Failed++
			continue
		}
		res.RepublishedCreated++
	}

	decided, err := s.repo.ListUnpublishedDecisions(ctx, s.cfg.BatchSize)
	if err != nil {
		return res, fmt.Errorf("failed to list unpublished decisions: %w", err)
	}
	for _, req := range decided {
		if err := s.publisher.Publish(ctx, domain.TopicCreditDecisions, domain.NewDecisionMade(req)); err != nil {
			s.log.Warn("failed to republish decision", "request_id", req.ID, "error", err)
			res.Failed++
			continue
		}
		if err := s.repo.MarkDecisionPublished(ctx, req.ID); err != nil {
			s.log.Warn("failed to mark decision published", "request_id", req.ID, "error", err)
		}
		res.RepublishedDecisions++
	}

	return res, nil
}
