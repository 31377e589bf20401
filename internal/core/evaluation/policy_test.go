package evaluation

import (
	"errors"
	"testing"
	"time"

	"creditflow/internal/core/domain"

	"github.com/shopspring/decimal"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		score  int
		amount string
		want   domain.Status
	}{
		{"good score within limit", 750, "5000", domain.StatusApproved},
		{"good score at limit", 700, "10000", domain.StatusApproved},
		{"good score over limit", 850, "10000.01", domain.StatusRejected},
		{"fair score within limit", 650, "5000", domain.StatusApproved},
		{"fair score at lower bound", 600, "100", domain.StatusApproved},
		{"fair score over limit", 699, "5000.01", domain.StatusRejected},
		{"fair score large amount", 600, "15000", domain.StatusRejected},
		{"poor score small amount", 599, "1", domain.StatusRejected},
		{"minimum score", 300, "10", domain.StatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(domain.MustCreditScore(tt.score), decimal.RequireFromString(tt.amount))
			if got.Status != tt.want {
				t.Errorf("Evaluate(%d, %s) = %s, want %s", tt.score, tt.amount, got.Status, tt.want)
			}
			if got.Approved() && got.Reason != nil {
				t.Errorf("approved decision carries a reason: %s", *got.Reason)
			}
			if !got.Approved() && (got.Reason == nil || *got.Reason != RejectionReason) {
				t.Errorf("rejected decision reason = %v, want %q", got.Reason, RejectionReason)
			}
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	score := domain.MustCreditScore(680)
	amount := decimal.NewFromInt(4000)

	first := Evaluate(score, amount)
	for i := 0; i < 10; i++ {
		if got := Evaluate(score, amount); got.Status != first.Status {
			t.Fatalf("run %d: %s != %s", i, got.Status, first.Status)
		}
	}
}

func TestApply(t *testing.T) {
	req, _ := domain.NewCreditRequest("Jane", "jane@x.com", decimal.NewFromInt(15000), time.Now())

	if err := Apply(req, Evaluate(domain.MustCreditScore(600), req.RequestedAmount)); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if req.Status != domain.StatusRejected {
		t.Errorf("Status = %s, want Rejected", req.Status)
	}
	if req.RejectionReason == nil || *req.RejectionReason != RejectionReason {
		t.Errorf("RejectionReason = %v", req.RejectionReason)
	}

	err := Apply(req, Decision{Status: domain.StatusApproved})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("second Apply() error = %v, want ErrInvalidState", err)
	}
}
