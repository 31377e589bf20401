package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"creditflow/internal/core/domain"

	"github.com/gofiber/fiber/v2"
)

// HTTPOracle asks an external bureau for the score:
// GET {baseURL}?identity=... answering {"score": n}.
type HTTPOracle struct {
	baseURL string
	timeout time.Duration
}

type scoreResponse struct {
	Score *int `json:"score"`
}

// NewHTTPOracle creates an oracle backed by an HTTP score bureau
func NewHTTPOracle(baseURL string, timeout time.Duration) *HTTPOracle {
	return &HTTPOracle{baseURL: baseURL, timeout: timeout}
}

func (o *HTTPOracle) GetScore(ctx context.Context, identity string) (domain.CreditScore, error) {
	if err := ctx.Err(); err != nil {
		return domain.CreditScore{}, err
	}

	u, err := url.Parse(o.baseURL)
	if err != nil {
		return domain.CreditScore{}, fmt.Errorf("invalid score provider url: %w", err)
	}
	q := u.Query()
	q.Set("identity", identity)
	u.RawQuery = q.Encode()

	timeout := o.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return domain.CreditScore{}, context.DeadlineExceeded
	}

	agent := fiber.Get(u.String()).Timeout(timeout)

	type result struct {
		code int
		body []byte
		errs []error
	}
	done := make(chan result, 1)
	go func() {
		code, body, errs := agent.Bytes()
		done <- result{code, body, errs}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		return domain.CreditScore{}, ctx.Err()
	}

	if len(res.errs) > 0 {
		err := errors.Join(res.errs...)
		if isTimeout(err) {
			return domain.CreditScore{}, fmt.Errorf("score provider timed out: %w", context.DeadlineExceeded)
		}
		return domain.CreditScore{}, fmt.Errorf("score provider request failed: %w", err)
	}
	if res.code != fiber.StatusOK {
		return domain.CreditScore{}, fmt.Errorf("score provider returned status %d", res.code)
	}

	var body scoreResponse
	if err := json.Unmarshal(res.body, &body); err != nil {
		return domain.CreditScore{}, fmt.Errorf("invalid score provider response: %w", err)
	}
	if body.Score == nil {
		return domain.CreditScore{}, errors.New("score provider response has no score")
	}
	return domain.NewCreditScore(*body.Score)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
