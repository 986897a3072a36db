package server

import (
	"net/http"
	"time"

	ginhandler "user-api/internal/adapter/gin/handler"
	ginrouter "user-api/internal/adapter/gin/router"
	grpcmiddleware "user-api/internal/adapter/grpc/middleware"

	"go.uber.org/zap"
)

// SetupGinServer creates and configures the Gin HTTP server
func SetupGinServer(
	handler *ginhandler.DefaultHandler,
	rateLimiter *grpcmiddleware.RateLimiter,
	opts ginrouter.Options,
	ginAddr string,
	l *zap.Logger,
) *http.Server {
	router := ginrouter.SetupRouter(handler, rateLimiter, opts, l)

	l.Info("Gin HTTP server configured",
		zap.String("address", ginAddr),
		zap.Bool("docs_enabled", opts.DocsEnabled),
	)

	return &http.Server{
		Addr:              ginAddr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
