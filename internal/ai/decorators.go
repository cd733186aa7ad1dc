package ai

import (
	"context"
	"errors"
	"time"

	"github.com/deusflow/policydigest/internal/ratelimit"
	"github.com/deusflow/policydigest/internal/retry"
)

// DefaultRetry retries a rate-limited backend twice with backoff.
var DefaultRetry = retry.RetryConfig{
	MaxAttempts: 3,
	Delay:       2 * time.Second,
	Backoff:     true,
	MaxDelay:    10 * time.Second,
}

type retryBackend struct {
	Backend
	cfg retry.RetryConfig
}

// WithRetry retries b on ErrRateLimited only. Any other error, or running
// out of attempts, makes the backend count as failed for the waterfall.
func WithRetry(b Backend, cfg retry.RetryConfig) Backend {
	cfg.Retryable = func(err error) bool { return errors.Is(err, ErrRateLimited) }
	return &retryBackend{Backend: b, cfg: cfg}
}

func (r *retryBackend) Submit(ctx context.Context, prompt string) (string, error) {
	var text string
	err := retry.WithRetry(ctx, r.cfg, func() error {
		var err error
		text, err = r.Backend.Submit(ctx, prompt)
		return err
	})
	return text, err
}

type limitedBackend struct {
	Backend
	limiter *ratelimit.AIRateLimiter
}

// WithLimiter paces b through limiter, keyed by the backend name.
func WithLimiter(b Backend, limiter *ratelimit.AIRateLimiter) Backend {
	return &limitedBackend{Backend: b, limiter: limiter}
}

func (l *limitedBackend) Submit(ctx context.Context, prompt string) (string, error) {
	if err := l.limiter.Acquire(ctx, l.Backend.Name()); err != nil {
		return "", err
	}
	return l.Backend.Submit(ctx, prompt)
}
