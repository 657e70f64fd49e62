package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/cle/internal/config"
	"github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
)

// RedisRateLimiter implements distributed rate limiting for the admission
// API using an atomic token bucket in Redis. When Redis is unreachable the
// limiter degrades to a per-process token bucket pool so admission checks
// keep answering.
// RedisRateLimiter 使用 Redis 中的原子令牌桶为准入 API 实现分布式限流。
// 当 Redis 不可达时，限流器退化为进程内令牌桶池，保证准入检查持续响应。
type RedisRateLimiter struct {
	client       redis.UniversalClient
	log          logger.Logger
	capacity     int64   // burst size
	rate         float64 // tokens per second
	keyPrefix    string
	localBuckets *TokenBucketPool
}

var _ service.RateLimitService = (*RedisRateLimiter)(nil)

// rateLimitOutcome is the parsed result of one Lua script execution.
type rateLimitOutcome struct {
	Allowed   bool
	Remaining int64
	ResetAt   time.Time
}

// Lua script for atomic token bucket operations. Timestamps are in
// milliseconds; rate is tokens per second.
const tokenBucketLuaScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local requested = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = tonumber(bucket[1]) or capacity
local last_refill = tonumber(bucket[2]) or now

local elapsed = now - last_refill
tokens = math.min(tokens + elapsed * rate / 1000, capacity)

local allowed = 0
if tokens >= requested then
    tokens = tokens - requested
    allowed = 1
end

local reset_ms = 0
if tokens < capacity then
    reset_ms = math.ceil((capacity - tokens) / rate * 1000)
end

redis.call('HMSET', key, 'tokens', tokens, 'last_refill', now)
redis.call('PEXPIRE', key, reset_ms + 60000)

return {allowed, math.floor(tokens), reset_ms}
`

// NewRedisRateLimiter creates a Redis-backed rate limiter from the service
// configuration.
//
// Parameters:
//   - client: Redis client shared with the registry.
//   - cfg: Rate limit configuration; zero values fall back to defaults.
//   - log: Logger instance.
//
// Returns:
//   - *RedisRateLimiter: Initialized rate limiter.
//   - error: Initialization error if any.
func NewRedisRateLimiter(
	client redis.UniversalClient,
	cfg *config.RateLimitConfig,
	log logger.Logger,
) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, errors.ErrInvalidRequest("redis client is required")
	}

	limit := int64(constants.DefaultRateLimitPerMinute)
	if cfg != nil && cfg.DefaultRPM > 0 {
		limit = int64(cfg.DefaultRPM)
	}
	capacity := limit
	if cfg != nil && cfg.BurstSize > 0 {
		capacity = int64(cfg.BurstSize)
	}

	rate := float64(limit) / time.Minute.Seconds()

	rl := &RedisRateLimiter{
		client:    client,
		log:       log.WithComponent("rate_limiter"),
		capacity:  capacity,
		rate:      rate,
		keyPrefix: constants.RateLimitKeyPrefix,
		localBuckets: NewTokenBucketPool(TokenBucketConfig{
			Capacity: float64(capacity),
			Rate:     rate,
		}),
	}

	rl.log.Info(context.Background(), "Rate limiter initialized",
		logger.Int64("requests_per_minute", limit),
		logger.Int64("burst", capacity),
	)

	return rl, nil
}

// Allow checks whether one request from identifier fits its budget. Redis
// failures fall back to the local bucket pool; the degradation is logged
// but never surfaced to the caller.
func (rl *RedisRateLimiter) Allow(ctx context.Context, identifier string) (bool, int, time.Time, error) {
	key := rl.buildKey(identifier)
	now := time.Now()

	outcome, err := rl.executeLuaScript(ctx, key, rl.capacity, rl.rate, 1, now)
	if err != nil {
		rl.log.Warn(ctx, "Redis rate limit check failed, using local fallback",
			logger.String("identifier", identifier),
			logger.Error(err),
		)
		bucket := rl.localBuckets.GetOrCreate(key)
		allowed := bucket.Allow()
		return allowed, int(bucket.Available()), now.Add(bucket.TimeUntilAvailable(1)), nil
	}

	return outcome.Allowed, int(outcome.Remaining), outcome.ResetAt, nil
}

// Reset clears the budget for identifier in both Redis and the local pool.
func (rl *RedisRateLimiter) Reset(ctx context.Context, identifier string) error {
	key := rl.buildKey(identifier)

	if err := rl.client.Del(ctx, key).Err(); err != nil && err != redis.Nil {
		return errors.ErrCacheOperation("rate limit reset").WithCause(err)
	}
	rl.localBuckets.Remove(key)

	rl.log.Debug(ctx, "Rate limit reset", logger.String("identifier", identifier))
	return nil
}

// CleanupLocalBuckets drops local fallback buckets idle longer than maxIdle.
func (rl *RedisRateLimiter) CleanupLocalBuckets(maxIdle time.Duration) int {
	removed := rl.localBuckets.Cleanup(maxIdle)
	if removed > 0 {
		rl.log.Debug(context.Background(), "Cleaned up idle buckets", logger.Int("count", removed))
	}
	return removed
}

// Close releases the limiter's local state. The Redis client is shared and
// stays open.
func (rl *RedisRateLimiter) Close() error {
	rl.localBuckets.Clear()
	return nil
}

// executeLuaScript runs the token bucket script and parses its reply.
func (rl *RedisRateLimiter) executeLuaScript(
	ctx context.Context,
	key string,
	capacity int64,
	rate float64,
	requested int64,
	now time.Time,
) (*rateLimitOutcome, error) {
	result, err := rl.client.Eval(ctx, tokenBucketLuaScript, []string{key},
		capacity, rate, requested, now.UnixMilli()).Result()
	if err != nil {
		return nil, err
	}

	reply, ok := result.([]interface{})
	if !ok || len(reply) < 3 {
		return nil, fmt.Errorf("unexpected rate limit script reply: %v", result)
	}

	allowed, ok1 := reply[0].(int64)
	remaining, ok2 := reply[1].(int64)
	resetMs, ok3 := reply[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("unexpected rate limit script reply: %v", result)
	}

	return &rateLimitOutcome{
		Allowed:   allowed == 1,
		Remaining: remaining,
		ResetAt:   now.Add(time.Duration(resetMs) * time.Millisecond),
	}, nil
}

func (rl *RedisRateLimiter) buildKey(identifier string) string {
	return fmt.Sprintf("%s:%s", rl.keyPrefix, identifier)
}
