package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	ginhandler "user-api/internal/adapter/gin/handler"
	ginrouter "user-api/internal/adapter/gin/router"
	"user-api/internal/adapter/grpc/middleware"
	"user-api/internal/config"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	GRPC   *grpc.Server
	Health *health.Server
	HTTP   *http.Server

	grpcListener net.Listener
	httpListener net.Listener
	ready        chan struct{}
	readyOnce    sync.Once
}

// New creates a new server instance
func New(
	cfg *config.Config,
	l *zap.Logger,
	handler *ginhandler.DefaultHandler,
	rateLimiter *middleware.RateLimiter,
) *Server {
	grpcServer, healthServer := SetupGRPC(cfg.Logger.ServiceName, l, rateLimiter)

	return &Server{
		Config: cfg,
		Logger: l,
		GRPC:   grpcServer,
		Health: healthServer,
		HTTP: SetupGinServer(handler, rateLimiter, ginrouter.Options{
			DocsEnabled: cfg.App.DocsEnabled,
		}, httpAddress(cfg), l),
		ready: make(chan struct{}),
	}
}

// Start binds both listeners and serves until one of the servers stops
func (s *Server) Start() error {
	if err := s.Listen(context.Background()); err != nil {
		return err
	}
	return s.Serve()
}

// Listen binds the gRPC and HTTP listeners
func (s *Server) Listen(ctx context.Context) error {
	lc := net.ListenConfig{}

	grpcLis, err := lc.Listen(ctx, "tcp", grpcAddress(s.Config))
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}

	httpLis, err := lc.Listen(ctx, "tcp", s.HTTP.Addr)
	if err != nil {
		_ = grpcLis.Close()
		return fmt.Errorf("failed to listen for HTTP: %w", err)
	}

	s.grpcListener = grpcLis
	s.httpListener = httpLis
	s.readyOnce.Do(func() { close(s.ready) })
	return nil
}

// Ready is closed once both listeners are bound
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Serve runs both servers on the bound listeners. A server that was shut
// down is not an error; a server that fails stops the other one.
func (s *Server) Serve() error {
	if s.grpcListener == nil || s.httpListener == nil {
		return errors.New("server is not listening")
	}

	var g errgroup.Group

	g.Go(func() error {
		s.Logger.Info("gRPC server running", zap.String("address", s.grpcListener.Addr().String()))
		if err := s.GRPC.Serve(s.grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			_ = s.HTTP.Close()
			return fmt.Errorf("failed to start gRPC server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.Logger.Info("HTTP server running", zap.String("address", s.httpListener.Addr().String()))
		if err := s.HTTP.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.GRPC.Stop()
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// GRPCAddr returns the bound gRPC address, or nil before Listen
func (s *Server) GRPCAddr() net.Addr {
	if s.grpcListener == nil {
		return nil
	}
	return s.grpcListener.Addr()
}

// HTTPAddr returns the bound HTTP address, or nil before Listen
func (s *Server) HTTPAddr() net.Addr {
	if s.httpListener == nil {
		return nil
	}
	return s.httpListener.Addr()
}

// grpcAddress returns the gRPC server address
func grpcAddress(cfg *config.Config) string {
	return ":" + cfg.App.GRPCPort
}

// httpAddress returns the HTTP server address
func httpAddress(cfg *config.Config) string {
	return ":" + cfg.App.HTTPPort
}
