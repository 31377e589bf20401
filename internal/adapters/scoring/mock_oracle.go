package scoring

import (
	"context"
	"hash/fnv"
	"time"

	"creditflow/internal/core/domain"
)

// MockOracle derives a stable score from the applicant identity. The same
// identity always gets the same score, in [300, 849].
type MockOracle struct {
	latency time.Duration
}

// NewMockOracle creates a mock oracle that answers after latency
func NewMockOracle(latency time.Duration) *MockOracle {
	return &MockOracle{latency: latency}
}

func (o *MockOracle) GetScore(ctx context.Context, identity string) (domain.CreditScore, error) {
	if o.latency > 0 {
		t := time.NewTimer(o.latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return domain.CreditScore{}, ctx.Err()
		}
	}

	h := fnv.New32a()
	h.Write([]byte(identity))
	return domain.NewCreditScore(domain.MinCreditScore + int(h.Sum32()%550))
}
