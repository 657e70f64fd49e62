// Package ratelimit bounds how often callers may hit the admission API. The
// authoritative limiter runs in Redis; a local token bucket pool keeps the
// API responsive when Redis is unreachable.
package ratelimit

import (
	"sync"
	"time"

	"github.com/turtacn/cle/pkg/constants"
)

// TokenBucket implements the token bucket algorithm. It is safe for
// concurrent use.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	rate       float64 // tokens added per second
	lastRefill time.Time
}

// TokenBucketConfig holds configuration for creating buckets in a pool.
type TokenBucketConfig struct {
	// Capacity is the maximum number of tokens the bucket can hold.
	Capacity float64
	// Rate is the number of tokens added per second.
	Rate float64
}

// NewTokenBucket creates a full bucket with the given capacity and refill rate.
func NewTokenBucket(capacity, rate float64) *TokenBucket {
	if capacity <= 0 {
		capacity = float64(constants.DefaultRateLimitPerMinute)
	}
	if rate <= 0 {
		rate = float64(constants.DefaultRateLimitPerMinute) / 60.0
	}

	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		rate:       rate,
		lastRefill: time.Now(),
	}
}

// Allow attempts to consume one token.
func (tb *TokenBucket) Allow() bool {
	return tb.AllowN(1.0)
}

// AllowN attempts to consume n tokens.
func (tb *TokenBucket) AllowN(n float64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= n {
		tb.tokens -= n
		return true
	}
	return false
}

// refill adds tokens based on elapsed time. Must be called with lock held.
func (tb *TokenBucket) refill() {
	now := time.Now()
	tb.tokens += now.Sub(tb.lastRefill).Seconds() * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

// Available returns the current number of tokens.
func (tb *TokenBucket) Available() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return tb.tokens
}

// TimeUntilAvailable returns how long until n tokens will be available.
func (tb *TokenBucket) TimeUntilAvailable(n float64) time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= n {
		return 0
	}
	return time.Duration((n - tb.tokens) / tb.rate * float64(time.Second))
}

// TokenBucketPool manages one bucket per identifier with idle cleanup.
type TokenBucketPool struct {
	mu      sync.RWMutex
	buckets map[string]*tokenBucketEntry
	config  TokenBucketConfig
}

type tokenBucketEntry struct {
	bucket   *TokenBucket
	lastUsed time.Time
}

// NewTokenBucketPool creates a pool applying config to every new bucket.
func NewTokenBucketPool(config TokenBucketConfig) *TokenBucketPool {
	return &TokenBucketPool{
		buckets: make(map[string]*tokenBucketEntry),
		config:  config,
	}
}

// GetOrCreate returns the bucket for key, creating it on first use.
func (p *TokenBucketPool) GetOrCreate(key string) *TokenBucket {
	p.mu.RLock()
	if entry, exists := p.buckets[key]; exists {
		entry.lastUsed = time.Now()
		p.mu.RUnlock()
		return entry.bucket
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, exists := p.buckets[key]; exists {
		entry.lastUsed = time.Now()
		return entry.bucket
	}

	bucket := NewTokenBucket(p.config.Capacity, p.config.Rate)
	p.buckets[key] = &tokenBucketEntry{bucket: bucket, lastUsed: time.Now()}
	return bucket
}

// Remove drops the bucket for key.
func (p *TokenBucketPool) Remove(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.buckets, key)
}

// Cleanup removes buckets idle for longer than maxIdle and reports how many
// were dropped.
func (p *TokenBucketPool) Cleanup(maxIdle time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range p.buckets {
		if now.Sub(entry.lastUsed) > maxIdle {
			delete(p.buckets, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of buckets in the pool.
func (p *TokenBucketPool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.buckets)
}

// Clear removes all buckets.
func (p *TokenBucketPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buckets = make(map[string]*tokenBucketEntry)
}
