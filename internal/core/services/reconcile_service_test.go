package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"creditflow/internal/config"
	"creditflow/internal/core/domain"
	"creditflow/internal/pkg/logger"

	"github.com/shopspring/decimal"
)

func TestReconcileRunOnce(t *testing.T) {
	f := newFixture(WithClock(func() time.Time { return time.Now().Add(-time.Hour) }))
	ctx := context.Background()

	// stale pending: created an hour ago, created event lost
	f.publisher.failOn[domain.TopicRequestCreated] = errors.New("down")
	stale, _ := f.service.Create(ctx, CreateCreditRequestInput{"A", "a@x.com", decimal.NewFromInt(100)})
	delete(f.publisher.failOn, domain.TopicRequestCreated)

	// decided but decision publish failed
	decidedReq := f.create(t, "B", "b@x.com", 100)
	f.oracle.scores["b@x.com"] = 800
	f.publisher.failOn[domain.TopicCreditDecisions] = errors.New("down")
	if _, err := f.service.Evaluate(ctx, decidedReq.ID); !errors.Is(err, domain.ErrBroker) {
		t.Fatalf("Evaluate() error = %v, want ErrBroker", err)
	}
	delete(f.publisher.failOn, domain.TopicCreditDecisions)
	f.publisher.messages = nil

	svc := NewReconcileService(f.repo, f.publisher, config.ReconcileConfig{
		Schedule:     "@every 1m",
		PendingGrace: time.Minute,
		BatchSize:    10,
	}, logger.Discard())

	res, err := svc.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if res.RepublishedCreated != 1 || res.RepublishedDecisions != 1 || res.Failed != 0 {
		t.Errorf("RunOnce() = %+v", res)
	}

	created := f.publisher.onTopic(domain.TopicRequestCreated)
	if len(created) != 1 || created[0].payload.(domain.RequestCreated).RequestID != stale.ID {
		t.Errorf("created events = %+v", created)
	}
	decisions := f.publisher.onTopic(domain.TopicCreditDecisions)
	if len(decisions) != 1 || decisions[0].payload.(domain.DecisionMade).Status != domain.StatusApproved {
		t.Errorf("decision events = %+v", decisions)
	}

	// second sweep: decision now marked, only the still-pending request goes out again
	f.publisher.messages = nil
	res, _ = svc.RunOnce(ctx)
	if res.RepublishedDecisions != 0 || res.RepublishedCreated != 1 {
		t.Errorf("second RunOnce() = %+v", res)
	}
}

func TestReconcileCountsPublishFailures(t *testing.T) {
	f := newFixture(WithClock(func() time.Time { return time.Now().Add(-time.Hour) }))
	f.create(t, "A", "a@x.com", 100)
	f.publisher.failOn[domain.TopicRequestCreated] = errors.New("down")

	svc := NewReconcileService(f.repo, f.publisher, config.ReconcileConfig{PendingGrace: time.Minute}, logger.Discard())
	res, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if res.Failed != 1 || res.RepublishedCreated != 0 {
		t.Errorf("RunOnce() = %+v", res)
	}
}

func TestReconcileStartRejectsBadSchedule(t *testing.T) {
	f := newFixture()
	svc := NewReconcileService(f.repo, f.publisher, config.ReconcileConfig{Schedule: "every tuesday"}, logger.Discard())

	if err := svc.Start(); err == nil {
		svc.Stop()
		t.Fatal("Start() should reject an invalid schedule")
	}
}

func TestReconcileStartStop(t *testing.T) {
	f := newFixture()
	svc := NewReconcileService(f.repo, f.publisher, config.ReconcileConfig{Schedule: "@every 1h"}, logger.Discard())

	if err := svc.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	svc.Stop()
}
