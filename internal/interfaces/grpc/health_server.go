// Package grpc exposes the licensing service over gRPC: a standard health/v1
// endpoint whose per-service status tracks whether a license is currently in
// force, behind the usual interceptor chain.
package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/pkg/logger"
)

// LicenseHealthService is the health/v1 service name whose status reports
// licensing state: SERVING while an active or grace-period license is in
// force, NOT_SERVING on the free tier. The empty service name always reports
// SERVING; the process answers admission queries in every tier.
const LicenseHealthService = "cle.license.v1"

const healthRefreshInterval = 15 * time.Second

// HealthServer gRPC 健康检查服务器
type HealthServer struct {
	server  *grpc.Server
	health  *health.Server
	manager service.LicenseManager
	log     logger.Logger
	done    chan struct{}
}

// NewHealthServer 创建 gRPC 健康检查服务器
func NewHealthServer(
	manager service.LicenseManager,
	log logger.Logger,
	chain *InterceptorChain,
) *HealthServer {
	var opts []grpc.ServerOption
	if chain != nil {
		opts = append(opts, chain.ChainUnaryInterceptors())
	}

	server := grpc.NewServer(opts...)
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(server, healthSrv)

	hs := &HealthServer{
		server:  server,
		health:  healthSrv,
		manager: manager,
		log:     log.WithComponent("grpc_health"),
		done:    make(chan struct{}),
	}
	hs.refresh(context.Background())
	return hs
}

// Serve 在给定监听器上启动服务,阻塞直到服务器停止。
func (hs *HealthServer) Serve(lis net.Listener) error {
	go hs.refreshLoop()

	hs.log.Info(context.Background(), "Starting gRPC health server",
		logger.String("address", lis.Addr().String()),
	)
	return hs.server.Serve(lis)
}

// Stop 优雅停止服务器
func (hs *HealthServer) Stop() {
	close(hs.done)
	hs.server.GracefulStop()
}

// refreshLoop keeps the licensing status current as licenses expire or new
// ones arrive through the API or the watched directory.
func (hs *HealthServer) refreshLoop() {
	ticker := time.NewTicker(healthRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-hs.done:
			return
		case <-ticker.C:
			hs.refresh(context.Background())
		}
	}
}

func (hs *HealthServer) refresh(ctx context.Context) {
	hs.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if hs.manager != nil && hs.manager.ActiveLicense(ctx, time.Now()) != nil {
		status = healthpb.HealthCheckResponse_SERVING
	}
	hs.health.SetServingStatus(LicenseHealthService, status)
}
