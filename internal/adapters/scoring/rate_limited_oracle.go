package scoring

import (
	"context"

	"creditflow/internal/core/domain"
	"creditflow/internal/core/services"

	"golang.org/x/time/rate"
)

// RateLimitedOracle caps outbound calls to the wrapped oracle. Callers wait
// for a token; the wait honours ctx.
type RateLimitedOracle struct {
	next    services.ScoreOracle
	limiter *rate.Limiter
}

// NewRateLimitedOracle allows rps calls per second with the given burst
func NewRateLimitedOracle(next services.ScoreOracle, rps float64, burst int) *RateLimitedOracle {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedOracle{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (o *RateLimitedOracle) GetScore(ctx context.Context, identity string) (domain.CreditScore, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return domain.CreditScore{}, err
	}
	return o.next.GetScore(ctx, identity)
}
