package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
	"google.golang.org/grpc"
	grpcCodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// InterceptorChain 拦截器链
type InterceptorChain struct {
	log              logger.Logger
	rateLimitService service.RateLimitService
}

// NewInterceptorChain 创建拦截器链
func NewInterceptorChain(
	log logger.Logger,
	rateLimitService service.RateLimitService,
) *InterceptorChain {
	return &InterceptorChain{
		log:              log,
		rateLimitService: rateLimitService,
	}
}

// UnaryRecoveryInterceptor 恢复拦截器(捕获 panic)
func (ic *InterceptorChain) UnaryRecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				ic.log.Error(ctx, "gRPC handler panic recovered", fmt.Errorf("%v", r),
					logger.String("method", info.FullMethod),
				)
				err = status.Errorf(grpcCodes.Internal, "internal server error: %v", r)
			}
		}()

		return handler(ctx, req)
	}
}

// UnaryLoggingInterceptor 日志拦截器
func (ic *InterceptorChain) UnaryLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		startTime := time.Now()

		resp, err := handler(ctx, req)

		duration := time.Since(startTime)
		statusCode := grpcCodes.OK
		if err != nil {
			if st, ok := status.FromError(err); ok {
				statusCode = st.Code()
			}
		}

		ic.log.Info(ctx, "gRPC request completed",
			logger.String("method", info.FullMethod),
			logger.String("client_addr", callerAddress(ctx)),
			logger.Int64("duration_ms", duration.Milliseconds()),
			logger.String("status", statusCode.String()),
		)

		return resp, err
	}
}

// UnaryRateLimitInterceptor 限流拦截器。
// 限流器故障时放行：Redis 失联不能阻塞准入检查。
func (ic *InterceptorChain) UnaryRateLimitInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if ic.rateLimitService == nil {
			return handler(ctx, req)
		}

		identifier := callerAddress(ctx)
		if identifier == "" {
			identifier = "global"
		}

		allowed, _, _, err := ic.rateLimitService.Allow(ctx, identifier)
		if err != nil {
			ic.log.Warn(ctx, "Rate limiter failed, allowing request",
				logger.String("identifier", identifier),
				logger.String("method", info.FullMethod),
				logger.Error(err),
			)
			return handler(ctx, req)
		}

		if !allowed {
			ic.log.Warn(ctx, "rate limit exceeded",
				logger.String("identifier", identifier),
				logger.String("method", info.FullMethod),
			)
			return nil, status.Errorf(
				grpcCodes.ResourceExhausted,
				"rate limit exceeded for %s",
				identifier,
			)
		}

		return handler(ctx, req)
	}
}

// UnaryErrorInterceptor 错误转换拦截器(将领域错误转换为 gRPC 状态码)
func (ic *InterceptorChain) UnaryErrorInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}

		return resp, convertDomainErrorToGRPC(err)
	}
}

// convertDomainErrorToGRPC 将领域错误转换为 gRPC 错误
func convertDomainErrorToGRPC(err error) error {
	cleErr, ok := errors.AsCLEError(err)
	if !ok {
		if _, isStatus := status.FromError(err); isStatus {
			return err
		}
		return status.Errorf(grpcCodes.Internal, "internal server error: %v", err)
	}

	switch cleErr.HTTPStatus() {
	case 404:
		return status.Errorf(grpcCodes.NotFound, "%s", cleErr.Error())
	case 400:
		return status.Errorf(grpcCodes.InvalidArgument, "%s", cleErr.Error())
	case 401:
		return status.Errorf(grpcCodes.Unauthenticated, "%s", cleErr.Error())
	case 403:
		return status.Errorf(grpcCodes.PermissionDenied, "%s", cleErr.Error())
	case 409:
		return status.Errorf(grpcCodes.AlreadyExists, "%s", cleErr.Error())
	case 429:
		return status.Errorf(grpcCodes.ResourceExhausted, "%s", cleErr.Error())
	case 503:
		return status.Errorf(grpcCodes.Unavailable, "%s", cleErr.Error())
	default:
		return status.Errorf(grpcCodes.Internal, "internal server error: %v", err)
	}
}

// callerAddress extracts the best available caller identity from the incoming
// context: a forwarded address when present, otherwise the peer address.
func callerAddress(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ips := md.Get("x-forwarded-for"); len(ips) > 0 {
			return ips[0]
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

// ChainUnaryInterceptors 链式调用所有拦截器
func (ic *InterceptorChain) ChainUnaryInterceptors() grpc.ServerOption {
	return grpc.ChainUnaryInterceptor(
		ic.UnaryRecoveryInterceptor(),  // 1. 恢复 panic
		ic.UnaryLoggingInterceptor(),   // 2. 日志
		ic.UnaryRateLimitInterceptor(), // 3. 限流
		ic.UnaryErrorInterceptor(),     // 4. 错误转换
	)
}
