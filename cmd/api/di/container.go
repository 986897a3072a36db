package di

import (
	"context"
	"fmt"

	"user-api/cmd/api/infrastructure"
	"user-api/internal/adapter/docs"
	ginhandler "user-api/internal/adapter/gin/handler"
	"user-api/internal/adapter/grpc/middleware"
	"user-api/internal/config"
	"user-api/internal/domain/user"
	redisclient "user-api/pkg/redis"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	RedisClient    *redisclient.Client
	UserSchema     *user.Schema
	RateLimiter    *middleware.RateLimiter
	DefaultHandler *ginhandler.DefaultHandler
}

// NewContainer creates and initializes all application dependencies.
// Redis is only dialed when rate limiting is enabled.
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	var (
		rdb         *redisclient.Client
		limiterConn *redis.Client
	)
	if cfg.RateLimit.Enabled {
		var err error
		rdb, err = infrastructure.NewRedisClient(ctx, cfg, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		limiterConn = rdb.Client
	}

	rateLimiter := middleware.NewRateLimiter(
		limiterConn,
		middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstCapacity:     cfg.RateLimit.BurstCapacity,
			Enabled:           cfg.RateLimit.Enabled,
		},
		l,
	)

	defaultHandler, err := ginhandler.NewDefaultHandler(
		docs.New(cfg.Logger.ServiceName, cfg.Logger.ServiceVersion),
		l,
	)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, fmt.Errorf("failed to build default handler: %w", err)
	}

	return &Container{
		Config:         cfg,
		Logger:         l,
		RedisClient:    rdb,
		UserSchema:     user.NewSchema(l),
		RateLimiter:    rateLimiter,
		DefaultHandler: defaultHandler,
	}, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}
	return nil
}
