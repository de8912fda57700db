// Package ratelimit implements per-peer rate limiting for the gRPC surface
// using Redis or local memory.
package ratelimit

import (
	"context"
	"fmt"
	"net"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	pb "github.com/blazerhq/blazer/gen/proto"
	"github.com/blazerhq/blazer/internal/v1/logging"
	"github.com/blazerhq/blazer/internal/v1/metrics"
)

// RateLimiter holds per-method limiter instances keyed by peer IP.
type RateLimiter struct {
	ping  *limiter.Limiter
	room  *limiter.Limiter
	store limiter.Store
}

// New creates a RateLimiter. With a Redis client the limits are shared
// across restarts; without one a process-local memory store is used.
func New(pingRate, roomRate string, redisClient *redis.Client) (*RateLimiter, error) {
	pingLimit, err := limiter.NewRateFromFormatted(pingRate)
	if err != nil {
		return nil, fmt.Errorf("invalid ping rate: %w", err)
	}

	roomLimit, err := limiter.NewRateFromFormatted(roomRate)
	if err != nil {
		return nil, fmt.Errorf("invalid room rate: %w", err)
	}

	var store limiter.Store
	if redisClient != nil {
		s, err := sredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{
			Prefix: "limiter:v1:",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		store = s
		logging.Info(context.Background(), "Rate limiter using Redis store")
	} else {
		store = memory.NewStore()
		logging.Warn(context.Background(), "Rate limiter using memory store (Redis unavailable)")
	}

	return &RateLimiter{
		ping:  limiter.New(store, pingLimit),
		room:  limiter.New(store, roomLimit),
		store: store,
	}, nil
}

// peerIP extracts the caller's IP from the gRPC peer info.
func peerIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}

// check applies the limiter for key, failing open on store errors.
func (rl *RateLimiter) check(ctx context.Context, l *limiter.Limiter, method, key string) error {
	lctx, err := l.Get(ctx, key)
	if err != nil {
		logging.Error(ctx, "Rate limiter store failed", zap.Error(err))
		return nil // fail open
	}
	if lctx.Reached {
		metrics.RateLimitExceeded.WithLabelValues(method).Inc()
		return status.Errorf(codes.ResourceExhausted, "rate limit exceeded, retry after %d", lctx.Reset)
	}
	return nil
}

// UnaryInterceptor limits Ping calls per peer IP.
func (rl *RateLimiter) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if rl != nil && info.FullMethod == pb.Lobby_Ping_FullMethodName {
			if err := rl.check(ctx, rl.ping, info.FullMethod, peerIP(ctx)); err != nil {
				return nil, err
			}
		}
		return handler(ctx, req)
	}
}

// StreamInterceptor limits RoomService streams per peer IP.
func (rl *RateLimiter) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if rl != nil && info.FullMethod == pb.Lobby_RoomService_FullMethodName {
			if err := rl.check(ss.Context(), rl.room, info.FullMethod, peerIP(ss.Context())); err != nil {
				return err
			}
		}
		return handler(srv, ss)
	}
}
