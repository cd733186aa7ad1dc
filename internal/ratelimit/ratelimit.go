package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrQuotaExceeded is returned once a provider used up its daily budget.
var ErrQuotaExceeded = errors.New("provider quota exceeded")

// Limits configures one provider: a token bucket for pacing plus an
// optional cap on requests per reset window.
type Limits struct {
	Interval    time.Duration // minimum spacing between requests, 0 disables pacing
	Burst       int
	MaxRequests int // 0 = unlimited
}

type bucket struct {
	limiter *rate.Limiter
	limits  Limits
	used    int
}

// AIRateLimiter paces and counts requests per AI provider.
type AIRateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	defaults  Limits
	maxTotal  int
	total     int
	window    time.Duration
	resetTime time.Time
	now       func() time.Time
	logger    *slog.Logger
}

// NewAIRateLimiter creates a limiter applying defaults to every provider
// without explicit limits. maxTotal caps all providers together (0 = unlimited).
func NewAIRateLimiter(defaults Limits, maxTotal int, logger *slog.Logger) *AIRateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	rl := &AIRateLimiter{
		buckets:  make(map[string]*bucket),
		defaults: defaults,
		maxTotal: maxTotal,
		window:   24 * time.Hour, // Reset daily
		now:      time.Now,
		logger:   logger,
	}
	rl.resetTime = rl.now().Add(rl.window)
	return rl
}

// Configure sets explicit limits for provider.
func (rl *AIRateLimiter) Configure(provider string, limits Limits) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.buckets[provider] = newBucket(limits)
}

func newBucket(l Limits) *bucket {
	limit := rate.Inf
	if l.Interval > 0 {
		limit = rate.Every(l.Interval)
	}
	burst := l.Burst
	if burst < 1 {
		burst = 1
	}
	return &bucket{limiter: rate.NewLimiter(limit, burst), limits: l}
}

// Acquire reserves one request for provider: it fails fast when a quota is
// spent and otherwise waits for a token or ctx cancellation.
func (rl *AIRateLimiter) Acquire(ctx context.Context, provider string) error {
	rl.mu.Lock()
	rl.checkReset()

	b, ok := rl.buckets[provider]
	if !ok {
		b = newBucket(rl.defaults)
		rl.buckets[provider] = b
	}

	if b.limits.MaxRequests > 0 && b.used >= b.limits.MaxRequests {
		rl.mu.Unlock()
		rl.logger.Warn("provider rate limit reached", "provider", provider, "used", b.used, "limit", b.limits.MaxRequests)
		return fmt.Errorf("%s: %w", provider, ErrQuotaExceeded)
	}
	if rl.maxTotal > 0 && rl.total >= rl.maxTotal {
		rl.mu.Unlock()
		rl.logger.Warn("total AI rate limit reached", "used", rl.total, "limit", rl.maxTotal)
		return fmt.Errorf("total: %w", ErrQuotaExceeded)
	}
	b.used++
	rl.total++
	limiter := b.limiter
	rl.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: wait for rate limiter: %w", provider, err)
	}
	return nil
}

// Used returns how many requests provider made in the current window.
func (rl *AIRateLimiter) Used(provider string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if b, ok := rl.buckets[provider]; ok {
		return b.used
	}
	return 0
}

// GetStats returns current rate limiter statistics
func (rl *AIRateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":  rl.total,
		"total_limit": rl.maxTotal,
		"reset_time":  rl.resetTime,
	}
	for name, b := range rl.buckets {
		stats[name+"_used"] = b.used
		stats[name+"_limit"] = b.limits.MaxRequests
	}
	return stats
}

// checkReset resets counters if reset time has passed
func (rl *AIRateLimiter) checkReset() {
	if rl.now().After(rl.resetTime) {
		rl.logger.Info("resetting AI rate limiter counters", "total_used", rl.total)
		for _, b := range rl.buckets {
			b.used = 0
		}
		rl.total = 0
		rl.resetTime = rl.now().Add(rl.window)
	}
}
