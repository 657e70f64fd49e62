// Command cle-license-service runs the license enforcement service: it loads
// configured licenses, answers admission and entitlement queries over HTTP,
// and reports licensing state over the gRPC health protocol.
package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	appservice "github.com/turtacn/cle/internal/application/service"
	"github.com/turtacn/cle/internal/config"
	"github.com/turtacn/cle/internal/domain/repository"
	domainservice "github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/internal/infrastructure/audit"
	"github.com/turtacn/cle/internal/infrastructure/crypto"
	"github.com/turtacn/cle/internal/infrastructure/monitoring"
	pgpersist "github.com/turtacn/cle/internal/infrastructure/persistence/postgres"
	redispersist "github.com/turtacn/cle/internal/infrastructure/persistence/redis"
	"github.com/turtacn/cle/internal/infrastructure/ratelimit"
	grpciface "github.com/turtacn/cle/internal/interfaces/grpc"
	httpiface "github.com/turtacn/cle/internal/interfaces/http"
	"github.com/turtacn/cle/internal/interfaces/http/handlers"
)

func main() {
	// Logger for startup
	startupLogger, _ := monitoring.NewZapLogger(&config.LogConfig{Level: "info"})

	// Load config
	cfg, err := config.LoadConfig(startupLogger)
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		stdlog.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		stdlog.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracing
	tracing, err := monitoring.NewTracingManager(&cfg.Tracing, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize tracer", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(shutdownCtx)
	}()

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	httpMetrics := monitoring.NewHTTPMetrics(prometheus.DefaultRegisterer)

	// Trust anchors and license validation
	var vaultClient crypto.VaultClient
	if cfg.License.TrustAnchorSource == "vault" {
		vaultClient, err = crypto.NewVaultClient(&cfg.Vault, appLogger)
		if err != nil {
			appLogger.Fatal(ctx, "Failed to create Vault client", err)
		}
	}
	trust, err := crypto.NewTrustStore(ctx, &cfg.License, vaultClient, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to load trust anchors", err)
	}
	validator := crypto.NewLicenseValidator(trust, &cfg.License, appLogger)

	// PostgreSQL: the license record store and the client directory. The
	// service runs without persistence when no database is configured;
	// licenses then live only in memory.
	var (
		db          *pgpersist.DBConnection
		licenseRepo repository.LicenseRepository
		directory   domainservice.ClientDirectory
	)
	if cfg.Database.Host != "" {
		db, err = pgpersist.NewDBConnection(ctx, &cfg.Database, appLogger)
		if err != nil {
			appLogger.Fatal(ctx, "Failed to connect to database", err)
		}
		defer db.Close()
		licenseRepo = pgpersist.NewLicenseRepository(db, appLogger)
		directory = pgpersist.NewClientDirectory(db, cfg.License.DirectoryCacheTTL, appLogger)
	} else {
		appLogger.Warn(ctx, "No database configured, licenses will not be persisted")
	}

	// Redis: the replica-shared admission registry and the rate limiter.
	var (
		redisConn   *redispersist.RedisConnection
		registry    domainservice.ClientRegistry
		rateLimiter domainservice.RateLimitService
	)
	if len(cfg.Redis.Addresses) > 0 {
		redisConn, err = redispersist.NewRedisConnection(ctx, &cfg.Redis, appLogger)
		if err != nil {
			appLogger.Fatal(ctx, "Failed to connect to Redis", err)
		}
		defer redisConn.Close()
		registry = redispersist.NewClientRegistry(redisConn, appLogger)

		limiter, err := ratelimit.NewRedisRateLimiter(redisConn.Client(), &cfg.RateLimit, appLogger)
		if err != nil {
			appLogger.Fatal(ctx, "Failed to create rate limiter", err)
		}
		rateLimiter = limiter
	} else {
		appLogger.Warn(ctx, "No Redis configured, admission state is replica-local")
	}

	// Audit trail: Kafka stream plus relational table, fanned out.
	var auditSvc domainservice.AuditService
	if cfg.Audit.Enabled {
		var sinks []domainservice.AuditService

		producer, err := audit.NewKafkaProducer(&cfg.Audit, appLogger)
		if err != nil {
			appLogger.Fatal(ctx, "Failed to create audit producer", err)
		}
		defer producer.Close()
		sinks = append(sinks, producer)

		if cfg.Database.Host != "" {
			gormDB, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{})
			if err != nil {
				appLogger.Fatal(ctx, "Failed to open audit trail database", err)
			}
			trail, err := audit.NewGormAuditService(gormDB)
			if err != nil {
				appLogger.Fatal(ctx, "Failed to migrate audit trail", err)
			}
			sinks = append(sinks, trail)
		}

		auditSvc = audit.NewCompositeAuditService(sinks...)
	}

	// Domain and application services
	grace := cfg.License.GraceOrDefault()
	manager := domainservice.NewLicenseManager(appLogger, metrics, grace, 0)
	checker := domainservice.NewLicenseChecker(manager, appLogger,
		cfg.License.ToleranceOrDefault(),
		cfg.License.FreeTierClientLimit,
		grace,
		domainservice.CheckerDeps{
			Audit:     auditSvc,
			Metrics:   metrics,
			Registry:  registry,
			Directory: directory,
		},
	)
	app := appservice.NewLicenseAppService(validator, checker, manager, grace,
		appservice.AppDeps{
			Repo:    licenseRepo,
			Audit:   auditSvc,
			Metrics: metrics,
		},
		appLogger,
	)

	// Replay persisted licenses and ingest the configured directory. A
	// configured license that fails to load is fatal here: silently running
	// unlicensed would be worse than refusing to start.
	provider := appservice.NewDirectoryTokenProvider(cfg.License.Directory, appLogger)
	if err := app.BootstrapLicenses(ctx, provider); err != nil {
		appLogger.Fatal(ctx, "Failed to load configured licenses", err)
	}

	if cfg.License.WatchDirectory && cfg.License.Directory != "" {
		watcher, err := appservice.NewLicenseWatcher(cfg.License.Directory, app, appLogger)
		if err != nil {
			appLogger.Fatal(ctx, "Failed to watch license directory", err)
		}
		watcher.Start(ctx)
		defer watcher.Close()
	}

	// HTTP interface
	router := httpiface.NewRouter(cfg, appLogger,
		handlers.NewLicenseHandler(app),
		handlers.NewAdmissionHandler(app),
		handlers.NewHealthHandler(db, redisConn, appLogger),
		tracing.Tracer(),
		httpMetrics,
		rateLimiter,
	)

	// gRPC health interface
	chain := grpciface.NewInterceptorChain(appLogger, rateLimiter)
	healthServer := grpciface.NewHealthServer(manager, appLogger, chain)

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
	if err != nil {
		appLogger.Fatal(ctx, "Failed to listen for gRPC", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(router.Start)
	g.Go(func() error {
		return healthServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info(context.Background(), "Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		healthServer.Stop()
		return router.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error(context.Background(), "Server exited with error", err)
	}
}
