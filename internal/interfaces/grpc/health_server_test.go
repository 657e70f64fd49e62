package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	grpcCodes "google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/turtacn/cle/internal/domain/models"
	domainService "github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/pkg/constants"
	cleErrors "github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
)

func testManager(t *testing.T) domainService.LicenseManager {
	t.Helper()
	return domainService.NewLicenseManager(logger.NewNoopLogger(), nil, constants.DefaultGracePeriod, 0)
}

func checkStatus(t *testing.T, hs *HealthServer, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := hs.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthServer_FreeTierIsAliveButNotLicensed(t *testing.T) {
	hs := NewHealthServer(testManager(t), logger.NewNoopLogger(), nil)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, hs, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, hs, LicenseHealthService))
}

func TestHealthServer_ActiveLicenseFlipsStatus(t *testing.T) {
	mgr := testManager(t)
	hs := NewHealthServer(mgr, logger.NewNoopLogger(), nil)

	exp := time.Now().Add(24 * time.Hour)
	mgr.Add(context.Background(), &models.License{ID: "lic-1", ExpiresAt: &exp})
	hs.refresh(context.Background())

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, hs, LicenseHealthService))
}

func TestRecoveryInterceptor(t *testing.T) {
	ic := NewInterceptorChain(logger.NewNoopLogger(), nil)
	interceptor := ic.UnaryRecoveryInterceptor()

	_, err := interceptor(context.Background(), nil,
		&grpc.UnaryServerInfo{FullMethod: "/test/Panic"},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			panic("boom")
		},
	)

	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, grpcCodes.Internal, st.Code())
}

func TestErrorInterceptor_MapsDomainErrors(t *testing.T) {
	ic := NewInterceptorChain(logger.NewNoopLogger(), nil)
	interceptor := ic.UnaryErrorInterceptor()

	cases := []struct {
		name string
		err  error
		want grpcCodes.Code
	}{
		{"invalid license", cleErrors.ErrInvalidLicense(), grpcCodes.InvalidArgument},
		{"plain error", errors.New("disk on fire"), grpcCodes.Internal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := interceptor(context.Background(), nil,
				&grpc.UnaryServerInfo{FullMethod: "/test/Err"},
				func(ctx context.Context, req interface{}) (interface{}, error) {
					return nil, tc.err
				},
			)

			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, tc.want, st.Code())
		})
	}
}
