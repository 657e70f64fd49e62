// Package redis provides the Redis-backed shared registry for the CLE
// License Enforcement Service, plus connection lifecycle management.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/cle/internal/config"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
)

// RedisConnection manages the Redis client lifecycle. A single address yields
// a standalone client, several addresses a cluster client; redis.UniversalClient
// hides the difference from the registry code.
type RedisConnection struct {
	client redis.UniversalClient
	config *config.RedisConfig
	log    logger.Logger
}

// NewRedisConnection creates a Redis connection manager and verifies
// connectivity with an initial ping.
//
// Parameters:
//   - ctx: Context for connection timeout control.
//   - cfg: Redis configuration.
//   - log: Logger for connection lifecycle events.
//
// Returns:
//   - *RedisConnection: Initialized connection manager.
//   - error: Connection establishment error if any.
func NewRedisConnection(ctx context.Context, cfg *config.RedisConfig, log logger.Logger) (*RedisConnection, error) {
	if cfg == nil || len(cfg.Addresses) == 0 {
		return nil, errors.ErrCacheConnectionFailed("no redis addresses configured")
	}
	log = log.WithComponent("redis")

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addresses,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.ErrCacheConnectionFailed(err.Error())
	}

	log.Info(ctx, "Redis connection established",
		logger.Any("addresses", cfg.Addresses),
		logger.Int("pool_size", cfg.PoolSize),
	)

	return &RedisConnection{
		client: client,
		config: cfg,
		log:    log,
	}, nil
}

// Client returns the Redis client instance.
func (rc *RedisConnection) Client() redis.UniversalClient {
	return rc.client
}

// Ping checks Redis server connectivity.
//
// Parameters:
//   - ctx: Context for timeout control.
//
// Returns:
//   - error: Connectivity check error if any.
func (rc *RedisConnection) Ping(ctx context.Context) error {
	if err := rc.client.Ping(ctx).Err(); err != nil {
		rc.log.Error(ctx, "Redis ping failed", err)
		return errors.ErrCacheOperation("ping").WithCause(err)
	}
	return nil
}

// HealthCheck reports connectivity and pool statistics.
//
// Parameters:
//   - ctx: Context for timeout control.
//
// Returns:
//   - map[string]interface{}: Health status details.
//   - error: Health check error if any.
func (rc *RedisConnection) HealthCheck(ctx context.Context) (map[string]interface{}, error) {
	health := make(map[string]interface{})

	start := time.Now()
	err := rc.client.Ping(ctx).Err()
	health["connected"] = err == nil
	health["latency_ms"] = time.Since(start).Milliseconds()
	if err != nil {
		health["error"] = err.Error()
		return health, fmt.Errorf("redis health check: %w", err)
	}

	stats := rc.client.PoolStats()
	health["total_conns"] = stats.TotalConns
	health["idle_conns"] = stats.IdleConns
	health["pool_timeouts"] = stats.Timeouts

	return health, nil
}

// Close gracefully closes the Redis connection.
func (rc *RedisConnection) Close() error {
	rc.log.Info(context.Background(), "Closing Redis connection")
	return rc.client.Close()
}
