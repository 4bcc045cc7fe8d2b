package grpcx

import (
	"context"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/counselbook/libs/httpx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// RequestIDMetadataKey mirrors httpx.RequestIDHeader in gRPC metadata form.
const RequestIDMetadataKey = "x-request-id"

// UnaryClientRequestIDInterceptor forwards the request id already in ctx, if any.
func UnaryClientRequestIDInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if id := httpx.RequestIDFromContext(ctx); id != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, RequestIDMetadataKey, id)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// UnaryServerRequestIDInterceptor adopts the caller's request id or mints one,
// echoes it in the response header and stores it where httpx loggers look.
func UnaryServerRequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := incomingRequestID(ctx)
		if id == "" {
			id = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDMetadataKey, id))
		return handler(httpx.ContextWithRequestID(ctx, id), req)
	}
}

func incomingRequestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if vals := md.Get(RequestIDMetadataKey); len(vals) > 0 && len(vals[0]) <= 128 {
		return vals[0]
	}
	return ""
}
