package router

import (
	"user-api/internal/adapter/gin/handler"
	"user-api/internal/adapter/gin/middleware"
	grpcmiddleware "user-api/internal/adapter/grpc/middleware"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Options controls the framework-level surface of the router
type Options struct {
	DocsEnabled bool
}

// SetupRouter configures and returns a Gin router with middleware and the
// framework default endpoints. No application routes are registered, so
// every other request is answered by the not found handler.
func SetupRouter(
	defaultHandler *handler.DefaultHandler,
	rateLimiter *grpcmiddleware.RateLimiter,
	opts Options,
	log *zap.Logger,
) *gin.Engine {
	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.HandleMethodNotAllowed = true

	// Global middleware
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.RateLimiter(rateLimiter, log))

	if opts.DocsEnabled {
		router.GET("/openapi.json", defaultHandler.OpenAPI)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/openapi.json"),
		)))
		router.GET("/redoc", defaultHandler.Redoc)
	}

	router.NoRoute(defaultHandler.NotFound)
	router.NoMethod(defaultHandler.MethodNotAllowed)

	return router
}
