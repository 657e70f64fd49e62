// Package serverlite hosts a lightweight, in-memory licensing server for E2E
// testing. It wires the real validator, manager, and checker behind the real
// HTTP handlers, but signs licenses with an ephemeral key and keeps no state
// outside the process: no database, no Redis, no broker.
package serverlite

import (
	"context"
	stdcrypto "crypto"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	appservice "github.com/turtacn/cle/internal/application/service"
	"github.com/turtacn/cle/internal/config"
	domainService "github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/internal/infrastructure/crypto"
	"github.com/turtacn/cle/internal/interfaces/http/handlers"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/logger"
)

// Server is a lightweight, in-memory licensing server for E2E testing.
type Server struct {
	HttpServer *http.Server
	signingKey ed25519.PrivateKey
	app        appservice.LicenseAppService
}

// NewServer creates a server listening on addr with a freshly generated
// Ed25519 trust anchor. Licenses minted through MintLicense verify against
// that anchor and no other.
func NewServer(addr string) (*Server, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}

	trust, err := crypto.NewStaticTrustStore(map[string]stdcrypto.PublicKey{"": pub})
	if err != nil {
		return nil, err
	}

	log := logger.NewNoopLogger()
	validator := crypto.NewLicenseValidator(trust, &config.LicenseConfig{}, log)
	manager := domainService.NewLicenseManager(log, nil, constants.DefaultGracePeriod, 0)
	checker := domainService.NewLicenseChecker(manager, log,
		constants.DefaultClientToleranceFactor,
		constants.DefaultFreeTierClientLimit,
		constants.DefaultGracePeriod,
		domainService.CheckerDeps{},
	)
	app := appservice.NewLicenseAppService(validator, checker, manager,
		constants.DefaultGracePeriod, appservice.AppDeps{}, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	licenseHandler := handlers.NewLicenseHandler(app)
	admissionHandler := handlers.NewAdmissionHandler(app)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	v1 := router.Group("/api/v1")
	{
		v1.POST("/licenses", licenseHandler.Upload)
		v1.GET("/licenses", licenseHandler.List)
		v1.GET("/licenses/active", licenseHandler.Active)
		v1.POST("/admission/client", admissionHandler.AllowClient)
		v1.POST("/admission/issuer", admissionHandler.AllowIssuer)
		v1.GET("/entitlements", admissionHandler.Entitlements)
	}

	s := &Server{
		signingKey: priv,
		app:        app,
		HttpServer: &http.Server{
			Addr:    addr,
			Handler: router,
		},
	}
	return s, nil
}

// Start runs the server in a goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.HttpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.HttpServer.Shutdown(ctx)
}
