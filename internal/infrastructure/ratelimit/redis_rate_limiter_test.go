package ratelimit_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/cle/internal/config"
	"github.com/turtacn/cle/internal/infrastructure/ratelimit"
	"github.com/turtacn/cle/pkg/logger"
)

func newTestLimiter(t *testing.T, rpm, burst int) (*ratelimit.RedisRateLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := ratelimit.NewRedisRateLimiter(client, &config.RateLimitConfig{
		DefaultRPM: rpm,
		BurstSize:  burst,
	}, logger.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close() })

	return limiter, mr
}

func TestRedisRateLimiter_ExhaustsBurst(t *testing.T) {
	limiter, _ := newTestLimiter(t, 60, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, _, err := limiter.Allow(ctx, "client-1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d fits the burst", i+1)
	}

	allowed, remaining, resetAt, err := limiter.Allow(ctx, "client-1")
	require.NoError(t, err)
	assert.False(t, allowed, "the burst is spent")
	assert.Equal(t, 0, remaining)
	assert.False(t, resetAt.IsZero())
}

func TestRedisRateLimiter_IdentifiersAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 60, 1)
	ctx := context.Background()

	allowed, _, _, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, _, err = limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, _, _, err = limiter.Allow(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, allowed, "another identifier has its own bucket")
}

func TestRedisRateLimiter_Reset(t *testing.T) {
	limiter, _ := newTestLimiter(t, 60, 1)
	ctx := context.Background()

	allowed, _, _, err := limiter.Allow(ctx, "client-1")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, _, err = limiter.Allow(ctx, "client-1")
	require.NoError(t, err)
	require.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "client-1"))

	allowed, _, _, err = limiter.Allow(ctx, "client-1")
	require.NoError(t, err)
	assert.True(t, allowed, "reset refills the bucket")
}

func TestRedisRateLimiter_FallsBackWhenRedisIsDown(t *testing.T) {
	limiter, mr := newTestLimiter(t, 60, 2)
	ctx := context.Background()

	mr.Close()

	for i := 0; i < 2; i++ {
		allowed, _, _, err := limiter.Allow(ctx, "client-1")
		require.NoError(t, err, "degradation is not an error")
		assert.True(t, allowed)
	}

	allowed, _, _, err := limiter.Allow(ctx, "client-1")
	require.NoError(t, err)
	assert.False(t, allowed, "the local bucket still enforces the limit")
}
