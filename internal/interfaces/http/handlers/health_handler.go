package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/cle/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/cle/internal/infrastructure/persistence/redis"
	"github.com/turtacn/cle/pkg/logger"
)

// HealthHandler provides the health check endpoints. Dependencies may be nil
// in reduced deployments; a nil dependency is simply not checked.
type HealthHandler struct {
	db    *postgres.DBConnection
	redis *redis.RedisConnection
	log   logger.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *postgres.DBConnection, redisConn *redis.RedisConnection, log logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, redis: redisConn, log: log}
}

// HealthCheck reports the service health including its dependencies.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	checks := h.performChecks(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	for _, checkStatus := range checks {
		if checkStatus != "ok" {
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

// ReadinessCheck reports whether the service is ready to accept traffic.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	h.HealthCheck(c)
}

// LivenessCheck reports whether the process is alive. It never consults
// dependencies: a dead database must not restart the enforcement process.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
	})
}

func (h *HealthHandler) performChecks(ctx context.Context) map[string]string {
	var wg sync.WaitGroup
	mu := &sync.Mutex{}
	checks := make(map[string]string)

	record := func(name string, err error) {
		status := "ok"
		if err != nil {
			status = "error: " + err.Error()
		}
		mu.Lock()
		checks[name] = status
		mu.Unlock()
	}

	if h.db != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record("database", h.db.Ping(ctx))
		}()
	}
	if h.redis != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record("redis", h.redis.Ping(ctx))
		}()
	}

	wg.Wait()
	return checks
}
