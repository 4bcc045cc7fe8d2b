package grpcx

import (
	"context"
	"testing"

	"github.com/md-rashed-zaman/counselbook/libs/httpx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestServerInterceptorReadsIncomingID(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDMetadataKey, "req-42"))

	var seen string
	_, err := UnaryServerRequestIDInterceptor()(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/M"},
		func(ctx context.Context, _ any) (any, error) {
			seen = httpx.RequestIDFromContext(ctx)
			return nil, nil
		})
	if err != nil {
		t.Fatalf("interceptor returned error: %v", err)
	}
	if seen != "req-42" {
		t.Fatalf("expected req-42, got %q", seen)
	}
}

func TestServerInterceptorMintsMissingID(t *testing.T) {
	var seen string
	_, err := UnaryServerRequestIDInterceptor()(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/M"},
		func(ctx context.Context, _ any) (any, error) {
			seen = httpx.RequestIDFromContext(ctx)
			return nil, nil
		})
	if err != nil {
		t.Fatalf("interceptor returned error: %v", err)
	}
	if seen == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestClientInterceptorPropagatesHTTPID(t *testing.T) {
	ctx := httpx.ContextWithRequestID(context.Background(), "from-http")

	var outgoing []string
	invoker := func(ctx context.Context, _ string, _, _ any, _ *grpc.ClientConn, _ ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		outgoing = md.Get(RequestIDMetadataKey)
		return nil
	}
	if err := UnaryClientRequestIDInterceptor()(ctx, "/svc/M", nil, nil, nil, invoker); err != nil {
		t.Fatalf("interceptor returned error: %v", err)
	}
	if len(outgoing) != 1 || outgoing[0] != "from-http" {
		t.Fatalf("unexpected outgoing metadata: %v", outgoing)
	}
}
