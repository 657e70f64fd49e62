// Package postgres provides PostgreSQL persistence for the CLE License
// Enforcement Service. It implements connection pooling, health checks, and
// lifecycle management using the pgx driver.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/cle/internal/config"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
)

// DBConnection manages the PostgreSQL connection pool lifecycle.
type DBConnection struct {
	pool   *pgxpool.Pool
	config *config.DatabaseConfig
	log    logger.Logger
}

// NewDBConnection creates a new PostgreSQL connection manager. It initializes
// the pool from configuration and performs an initial health check.
//
// Parameters:
//   - ctx: Context for connection timeout control.
//   - cfg: Database configuration including host, credentials, and pool settings.
//   - log: Logger for connection lifecycle events.
//
// Returns:
//   - *DBConnection: Initialized connection manager.
//   - error: Connection establishment error if any.
func NewDBConnection(ctx context.Context, cfg *config.DatabaseConfig, log logger.Logger) (*DBConnection, error) {
	if cfg == nil {
		return nil, errors.ErrDatabaseConnectionFailed("no database configuration")
	}
	log = log.WithComponent("postgres")

	log.Info(ctx, "Initializing PostgreSQL connection pool",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.String("database", cfg.Database),
		logger.Int("max_conns", cfg.MaxConns),
		logger.Int("min_conns", cfg.MinConns),
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, errors.ErrDatabaseConnectionFailed(err.Error())
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Minute
	poolConfig.MaxConnIdleTime = time.Duration(cfg.MaxConnIdleTime) * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, errors.ErrDatabaseConnectionFailed(err.Error())
	}

	db := &DBConnection{
		pool:   pool,
		config: cfg,
		log:    log,
	}

	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info(ctx, "PostgreSQL connection pool initialized",
		logger.Int("total_conns", int(pool.Stat().TotalConns())),
	)

	return db, nil
}

// Pool returns the underlying pgxpool.Pool for repository implementations.
func (db *DBConnection) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping verifies database connectivity.
//
// Parameters:
//   - ctx: Context for timeout control.
//
// Returns:
//   - error: Connection error if the database is unreachable.
func (db *DBConnection) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := db.pool.Ping(pingCtx); err != nil {
		db.log.Error(ctx, "Database ping failed", err)
		return errors.ErrDatabaseConnectionFailed(err.Error())
	}

	latency := time.Since(start)
	if latency > 100*time.Millisecond {
		db.log.Warn(ctx, "High database latency detected",
			logger.Int64("latency_ms", latency.Milliseconds()),
		)
	}
	return nil
}

// HealthCheck reports pool statistics alongside a connectivity probe.
//
// Parameters:
//   - ctx: Context for timeout control.
//
// Returns:
//   - map[string]interface{}: Health metrics including pool statistics.
//   - error: Health check error if any.
func (db *DBConnection) HealthCheck(ctx context.Context) (map[string]interface{}, error) {
	if err := db.Ping(ctx); err != nil {
		return nil, err
	}

	stats := db.pool.Stat()
	health := map[string]interface{}{
		"status":               "healthy",
		"total_connections":    stats.TotalConns(),
		"idle_connections":     stats.IdleConns(),
		"acquired_connections": stats.AcquiredConns(),
		"max_connections":      db.config.MaxConns,
	}

	if stats.IdleConns() == 0 && stats.TotalConns() >= int32(db.config.MaxConns) {
		db.log.Warn(ctx, "Connection pool exhausted",
			logger.Int("total_conns", int(stats.TotalConns())),
			logger.Int("max_conns", db.config.MaxConns),
		)
		health["warning"] = "connection_pool_near_limit"
	}

	return health, nil
}

// Close gracefully shuts down the connection pool. Call during application
// shutdown.
func (db *DBConnection) Close() {
	db.log.Info(context.Background(), "Closing PostgreSQL connection pool")
	db.pool.Close()
}
