// Package http wires the gin engine, middleware chain, and route table of
// the licensing API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/cle/internal/config"
	domainService "github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/internal/infrastructure/monitoring"
	"github.com/turtacn/cle/internal/interfaces/http/handlers"
	"github.com/turtacn/cle/internal/interfaces/http/middleware"
	"github.com/turtacn/cle/pkg/logger"
)

// Router HTTP 路由器
type Router struct {
	engine           *gin.Engine
	config           *config.Config
	logger           logger.Logger
	licenseHandler   *handlers.LicenseHandler
	admissionHandler *handlers.AdmissionHandler
	healthHandler    *handlers.HealthHandler
	tracer           trace.Tracer
	httpMetrics      *monitoring.HTTPMetrics
	rateLimiter      domainService.RateLimitService
	server           *http.Server
}

// NewRouter 创建路由器
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	licenseHandler *handlers.LicenseHandler,
	admissionHandler *handlers.AdmissionHandler,
	healthHandler *handlers.HealthHandler,
	tracer trace.Tracer,
	httpMetrics *monitoring.HTTPMetrics,
	rateLimiter domainService.RateLimitService,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	return &Router{
		engine:           gin.New(),
		config:           cfg,
		logger:           log.WithComponent("http_router"),
		licenseHandler:   licenseHandler,
		admissionHandler: admissionHandler,
		healthHandler:    healthHandler,
		tracer:           tracer,
		httpMetrics:      httpMetrics,
		rateLimiter:      rateLimiter,
	}
}

// SetupRoutes 设置路由
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(middleware.RequestID())
	if r.tracer != nil && r.httpMetrics != nil {
		r.engine.Use(middleware.Observability(r.tracer, r.httpMetrics))
	}
	r.engine.Use(middleware.Logging(r.logger))

	r.engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Health endpoints stay outside the rate limit.
	r.engine.GET("/health", r.healthHandler.HealthCheck)
	r.engine.GET("/ready", r.healthHandler.ReadinessCheck)
	r.engine.GET("/live", r.healthHandler.LivenessCheck)

	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if r.config.Server.PprofEnabled {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/api/v1")
	if r.rateLimiter != nil {
		v1.Use(middleware.RateLimit(r.rateLimiter, r.logger))
	}
	{
		licenses := v1.Group("/licenses")
		{
			licenses.POST("", r.licenseHandler.Upload)
			licenses.GET("", r.licenseHandler.List)
			licenses.GET("/active", r.licenseHandler.Active)
		}

		admission := v1.Group("/admission")
		{
			admission.POST("/client", r.admissionHandler.AllowClient)
			admission.POST("/issuer", r.admissionHandler.AllowIssuer)
		}

		v1.GET("/entitlements", r.admissionHandler.Entitlements)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "The requested resource was not found",
		})
	})
}

// Start 启动 HTTP 服务器
func (r *Router) Start() error {
	r.SetupRoutes()

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    time.Duration(r.config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(r.config.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	r.logger.Info(context.Background(), "Starting HTTP server", logger.String("address", addr))

	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop 停止 HTTP 服务器
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.logger.Info(ctx, "Stopping HTTP server")
	return r.server.Shutdown(ctx)
}

// Engine exposes the underlying gin engine for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
