package grpcx

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type DialOptions struct {
	// If nil, defaults to insecure credentials (local dev, or mTLS terminated by the mesh).
	TransportCredentials grpc.DialOption
}

// Dial builds a lazily connecting client with tracing and request-id propagation.
// Callers bound each RPC with their own context deadline.
func Dial(addr string, opts DialOptions, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithChainUnaryInterceptor(UnaryClientRequestIDInterceptor()),
	}
	if opts.TransportCredentials != nil {
		dialOpts = append(dialOpts, opts.TransportCredentials)
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	dialOpts = append(dialOpts, extra...)

	return grpc.NewClient(addr, dialOpts...)
}

// ServerOptions returns the interceptors every gRPC server in the repo installs.
func ServerOptions(extra ...grpc.ServerOption) []grpc.ServerOption {
	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(UnaryServerRequestIDInterceptor()),
	}
	return append(opts, extra...)
}
