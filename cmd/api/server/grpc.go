package server

import (
	"user-api/internal/adapter/grpc/middleware"
	"user-api/pkg/logger"

	"go.uber.org/zap"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// SetupGRPC creates the gRPC server. Only the standard health service is
// registered; any other method is answered with codes.Unimplemented.
func SetupGRPC(serviceName string, l *zap.Logger, rateLimiter *middleware.RateLimiter) (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RequestIDInterceptor(),
			rateLimiter.UnaryInterceptor(),
		),
		// Stream interceptors also wrap the unknown service handler
		grpc.ChainStreamInterceptor(
			logger.RequestIDStreamInterceptor(),
			rateLimiter.StreamInterceptor(),
		),
		grpc.UnknownServiceHandler(unknownMethodHandler(l)),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return grpcServer, healthServer
}

func unknownMethodHandler(l *zap.Logger) grpc.StreamHandler {
	return func(srv any, stream grpc.ServerStream) error {
		method, _ := grpc.MethodFromServerStream(stream)
		logger.WithContext(stream.Context(), l).Debug("no route", zap.String("method", method))
		return status.Errorf(codes.Unimplemented, "unknown method %s", method)
	}
}
