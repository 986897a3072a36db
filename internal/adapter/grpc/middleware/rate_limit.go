package middleware

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// tokenBucketScript refills and consumes one bucket atomically.
// Bucket state is the hash {last_refill, tokens}; returns 1 when allowed.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local requested = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
	local last_refill = tonumber(bucket[1]) or now
	local tokens = tonumber(bucket[2]) or capacity

	local elapsed = math.max(0, now - last_refill)
	tokens = math.min(capacity, tokens + elapsed * rate)

	local allowed = 0
	if tokens >= requested then
		tokens = tokens - requested
		allowed = 1
	end

	redis.call('HSET', key, 'last_refill', now, 'tokens', tokens)
	redis.call('EXPIRE', key, 60)
	return allowed
`)

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstCapacity     int
	Enabled           bool
}

// RateLimiter implements token bucket rate limiting backed by Redis.
// It fails open: when Redis is unavailable requests are allowed.
type RateLimiter struct {
	client *redis.Client
	config RateLimiterConfig
	log    *zap.Logger
}

// NewRateLimiter creates a new rate limiter. A nil client disables limiting.
func NewRateLimiter(client *redis.Client, config RateLimiterConfig, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: config,
		log:    log,
	}
}

// Enabled reports whether requests are subject to limiting.
func (rl *RateLimiter) Enabled() bool {
	return rl != nil && rl.config.Enabled && rl.client != nil
}

// Config returns the limiter configuration.
func (rl *RateLimiter) Config() RateLimiterConfig {
	return rl.config
}

// Allow consumes one token from the bucket identified by key.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if !rl.Enabled() {
		return true, nil
	}

	now := float64(time.Now().UnixNano()) / float64(time.Second)
	allowed, err := tokenBucketScript.Run(ctx, rl.client, []string{"ratelimit:tb:" + key},
		rl.config.RequestsPerSecond,
		rl.config.BurstCapacity,
		now,
		1, // Always request 1 token
	).Int64()
	if err != nil {
		return true, fmt.Errorf("rate limiter script failed: %w", err)
	}

	return allowed == 1, nil
}

// UnaryInterceptor returns a gRPC unary interceptor for rate limiting.
// Unary handlers are registered methods, so buckets are keyed per method.
func (rl *RateLimiter) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if err := rl.check(ctx, info.FullMethod, info.FullMethod); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamInterceptor returns a gRPC stream interceptor for rate limiting.
// It also wraps the unknown service handler, whose method names are chosen
// by the caller, so all streams from one client share a single bucket.
func (rl *RateLimiter) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if err := rl.check(ss.Context(), "stream", info.FullMethod); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

// check consumes a token for the client in ctx. It returns a
// ResourceExhausted status when the bucket is empty and nil otherwise.
func (rl *RateLimiter) check(ctx context.Context, bucket, method string) error {
	if !rl.Enabled() {
		return nil
	}

	clientIP := rl.getClientIP(ctx)
	key := fmt.Sprintf("grpc:%s:%s", bucket, clientIP)

	allowed, err := rl.Allow(ctx, key)
	if err != nil {
		rl.log.Warn("rate limiter redis error, allowing request",
			zap.String("client_ip", clientIP),
			zap.String("method", method),
			zap.Error(err),
		)
		return nil
	}

	if !allowed {
		rl.log.Warn("rate limit exceeded",
			zap.String("client_ip", clientIP),
			zap.String("method", method),
			zap.Float64("limit", rl.config.RequestsPerSecond),
			zap.Int("burst", rl.config.BurstCapacity),
		)
		return status.Errorf(codes.ResourceExhausted,
			"rate limit exceeded: %.2f requests/second (burst capacity: %d)",
			rl.config.RequestsPerSecond, rl.config.BurstCapacity)
	}

	return nil
}

// getClientIP extracts the client IP address from the gRPC context.
func (rl *RateLimiter) getClientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if xff := md.Get("x-forwarded-for"); len(xff) > 0 {
			return xff[0]
		}
		if xri := md.Get("x-real-ip"); len(xri) > 0 {
			return xri[0]
		}
	}

	if p, ok := peer.FromContext(ctx); ok {
		// Drop the port so reconnecting does not yield a fresh bucket
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}

	return "unknown"
}
