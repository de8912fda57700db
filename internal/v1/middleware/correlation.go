// Package middleware holds gRPC interceptors shared by the RPC surface.
package middleware

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/blazerhq/blazer/internal/v1/logging"
)

const correlationHeader = "x-correlation-id"

// correlationID takes the caller-provided correlation id from metadata or
// mints a fresh one.
func correlationID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(correlationHeader); len(vals) > 0 && vals[0] != "" {
			return vals[0]
		}
	}
	return uuid.NewString()
}

// UnaryCorrelation attaches a correlation id to the request context so every
// log line of the call can be tied together.
func UnaryCorrelation() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return handler(logging.WithCorrelationID(ctx, correlationID(ctx)), req)
	}
}

// StreamCorrelation is the streaming counterpart of UnaryCorrelation.
func StreamCorrelation() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := logging.WithCorrelationID(ss.Context(), correlationID(ss.Context()))
		return handler(srv, &correlatedStream{ServerStream: ss, ctx: ctx})
	}
}

// correlatedStream overrides Context so handlers observe the enriched one.
type correlatedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *correlatedStream) Context() context.Context {
	return s.ctx
}
