package services

import (
	"context"
	"time"

	"creditflow/internal/core/domain"

	"github.com/shopspring/decimal"
)

// CreditRequestRepository is the store the lifecycle service writes through.
// GetByID returns domain.ErrNotFound when absent; Update returns
// domain.ErrStaleVersion when req.Version is no longer current.
type CreditRequestRepository interface {
	GetByID(ctx context.Context, id uint) (*domain.CreditRequest, error)
	GetAll(ctx context.Context) ([]*domain.CreditRequest, error)
	Add(ctx context.Context, req *domain.CreditRequest) error
	Update(ctx context.Context, req *domain.CreditRequest) error

	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.CreditRequest, error)
	ListUnpublishedDecisions(ctx context.Context, limit int) ([]*domain.CreditRequest, error)
	MarkDecisionPublished(ctx context.Context, id uint) error
}

// ScoreOracle returns a bounded credit score for an applicant identity
type ScoreOracle interface {
	GetScore(ctx context.Context, identity string) (domain.CreditScore, error)
}

// EventPublisher publishes a payload to a topic. Implementations must be
// safe for concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// CreditRequestService defines the credit request lifecycle
type CreditRequestService interface {
	Create(ctx context.Context, input CreateCreditRequestInput) (*domain.CreditRequest, error)
	Evaluate(ctx context.Context, id uint) (*domain.CreditRequest, error)
	GetByID(ctx context.Context, id uint) (*domain.CreditRequest, error)
	GetAll(ctx context.Context) ([]*domain.CreditRequest, error)
}

// CreateCreditRequestInput for creating a credit request
type CreateCreditRequestInput struct {
	ApplicantName     string
	ApplicantIdentity string
	RequestedAmount   decimal.Decimal
}
