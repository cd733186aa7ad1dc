package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireEnforcesProviderQuota(t *testing.T) {
	rl := NewAIRateLimiter(Limits{MaxRequests: 2}, 0, nil)
	ctx := context.Background()

	require.NoError(t, rl.Acquire(ctx, "groq"))
	require.NoError(t, rl.Acquire(ctx, "groq"))
	err := rl.Acquire(ctx, "groq")
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// Quotas are per provider.
	assert.NoError(t, rl.Acquire(ctx, "gemini"))
	assert.Equal(t, 2, rl.Used("groq"))
	assert.Equal(t, 1, rl.Used("gemini"))
}

func TestAcquireEnforcesTotalQuota(t *testing.T) {
	rl := NewAIRateLimiter(Limits{}, 2, nil)
	ctx := context.Background()

	require.NoError(t, rl.Acquire(ctx, "groq"))
	require.NoError(t, rl.Acquire(ctx, "openrouter"))
	assert.ErrorIs(t, rl.Acquire(ctx, "gemini"), ErrQuotaExceeded)
}

func TestConfigureOverridesDefaults(t *testing.T) {
	rl := NewAIRateLimiter(Limits{MaxRequests: 1}, 0, nil)
	rl.Configure("gemini", Limits{MaxRequests: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Acquire(ctx, "gemini"))
	}
	assert.ErrorIs(t, rl.Acquire(ctx, "gemini"), ErrQuotaExceeded)
}

func TestAcquireWaitsForToken(t *testing.T) {
	rl := NewAIRateLimiter(Limits{Interval: time.Hour, Burst: 1}, 0, nil)

	require.NoError(t, rl.Acquire(context.Background(), "groq"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := rl.Acquire(ctx, "groq")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrQuotaExceeded)
}

func TestCountersResetAfterWindow(t *testing.T) {
	rl := NewAIRateLimiter(Limits{MaxRequests: 1}, 0, nil)
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.resetTime = now.Add(time.Minute)

	ctx := context.Background()
	require.NoError(t, rl.Acquire(ctx, "groq"))
	require.ErrorIs(t, rl.Acquire(ctx, "groq"), ErrQuotaExceeded)

	now = now.Add(2 * time.Minute)
	assert.NoError(t, rl.Acquire(ctx, "groq"))

	stats := rl.GetStats()
	assert.Equal(t, 1, stats["groq_used"])
	assert.Equal(t, 1, stats["total_used"])
}
