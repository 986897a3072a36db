package middleware

import (
	"context"
	"net"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

// mockHandler is a simple handler that returns a fixed response
func mockHandler(ctx context.Context, req any) (any, error) {
	return "success", nil
}

func peerContext(t *testing.T) context.Context {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:12345")
	require.NoError(t, err)
	return peer.NewContext(context.Background(), &peer.Peer{Addr: addr})
}

var testInfo = &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

func TestRateLimiter_WithinLimit(t *testing.T) {
	client, _ := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{
		RequestsPerSecond: 10,
		BurstCapacity:     10,
		Enabled:           true,
	}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	ctx := peerContext(t)

	for i := 0; i < 5; i++ {
		resp, err := interceptor(ctx, nil, testInfo, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimiter_ExceedBurst(t *testing.T) {
	client, _ := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstCapacity:     3,
		Enabled:           true,
	}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	ctx := peerContext(t)

	for i := 0; i < 3; i++ {
		_, err := interceptor(ctx, nil, testInfo, mockHandler)
		require.NoError(t, err)
	}

	resp, err := interceptor(ctx, nil, testInfo, mockHandler)
	require.Error(t, err)
	assert.Nil(t, resp)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.ResourceExhausted, st.Code())
	assert.Contains(t, st.Message(), "rate limit exceeded")
}

func TestRateLimiter_SeparateKeysPerClient(t *testing.T) {
	client, _ := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstCapacity:     1,
		Enabled:           true,
	}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()

	first := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-forwarded-for", "10.0.0.1"))
	second := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-real-ip", "10.0.0.2"))

	_, err := interceptor(first, nil, testInfo, mockHandler)
	require.NoError(t, err)
	_, err = interceptor(second, nil, testInfo, mockHandler)
	require.NoError(t, err)

	_, err = interceptor(first, nil, testInfo, mockHandler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestRateLimiter_Disabled(t *testing.T) {
	client, mr := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstCapacity:     1,
		Enabled:           false,
	}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	ctx := peerContext(t)

	for i := 0; i < 5; i++ {
		_, err := interceptor(ctx, nil, testInfo, mockHandler)
		require.NoError(t, err)
	}
	assert.Empty(t, mr.Keys())
}

func TestRateLimiter_NilClient(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimiterConfig{RequestsPerSecond: 1, BurstCapacity: 1, Enabled: true}, zaptest.NewLogger(t))

	assert.False(t, rl.Enabled())
	allowed, err := rl.Allow(context.Background(), "key")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_FailOpen(t *testing.T) {
	client, mr := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstCapacity:     1,
		Enabled:           true,
	}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	ctx := peerContext(t)

	mr.Close()

	for i := 0; i < 3; i++ {
		resp, err := interceptor(ctx, nil, testInfo, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimiter_StoresBucket(t *testing.T) {
	client, mr := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{
		RequestsPerSecond: 1,
		BurstCapacity:     5,
		Enabled:           true,
	}, zaptest.NewLogger(t))

	allowed, err := rl.Allow(context.Background(), "GET:/x:127.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	key := "ratelimit:tb:GET:/x:127.0.0.1"
	assert.True(t, mr.Exists(key))
	assert.NotEmpty(t, mr.HGet(key, "tokens"))
	assert.Greater(t, mr.TTL(key).Seconds(), 0.0)
}

// fakeStream is a grpc.ServerStream that only carries a context
type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *fakeStream) Context() context.Context {
	return s.ctx
}

func mockStreamHandler(srv any, stream grpc.ServerStream) error {
	return nil
}

func TestRateLimiter_StreamSharesBucketAcrossMethods(t *testing.T) {
	client, mr := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstCapacity:     1,
		Enabled:           true,
	}, zaptest.NewLogger(t))
	interceptor := rl.StreamInterceptor()
	stream := &fakeStream{ctx: peerContext(t)}

	err := interceptor(nil, stream, &grpc.StreamServerInfo{FullMethod: "/a.A/One"}, mockStreamHandler)
	require.NoError(t, err)

	for _, method := range []string{"/a.A/Two", "/b.B/Three", "/c.C/Four"} {
		err = interceptor(nil, stream, &grpc.StreamServerInfo{FullMethod: method}, mockStreamHandler)
		assert.Equal(t, codes.ResourceExhausted, status.Code(err), method)
	}

	assert.Equal(t, []string{"ratelimit:tb:grpc:stream:127.0.0.1"}, mr.Keys())
}

func TestRateLimiter_IgnoresPeerPort(t *testing.T) {
	client, _ := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstCapacity:     1,
		Enabled:           true,
	}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()

	peerOn := func(port int) context.Context {
		return peer.NewContext(context.Background(), &peer.Peer{
			Addr: &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: port},
		})
	}

	_, err := interceptor(peerOn(40001), nil, testInfo, mockHandler)
	require.NoError(t, err)

	_, err = interceptor(peerOn(40002), nil, testInfo, mockHandler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}
