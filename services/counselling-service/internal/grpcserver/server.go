package grpcserver

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/md-rashed-zaman/counselbook/libs/grpcx"
	"github.com/md-rashed-zaman/counselbook/libs/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service key reported alongside the overall "" entry.
const ServiceName = "counselbook.counselling"

// Server exposes grpc.health.v1 and keeps it in sync with the readiness checks.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	logger   *slog.Logger
	checks   []runtime.ReadyCheck
	interval time.Duration
}

func New(logger *slog.Logger, interval time.Duration, checks ...runtime.ReadyCheck) *Server {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	srv := grpc.NewServer(grpcx.ServerOptions()...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return &Server{grpc: srv, health: hs, logger: logger, checks: checks, interval: interval}
}

// Refresh runs the checks once and publishes SERVING or NOT_SERVING.
func (s *Server) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if failures := runtime.RunChecks(ctx, 2*time.Second, s.checks...); len(failures) > 0 {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		s.logger.Warn("grpc health degraded", "failures", failures)
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Serve blocks until ctx is cancelled or the listener fails.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.Refresh(ctx)
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Refresh(ctx)
			}
		}
	}()
	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpc.GracefulStop()
	}()

	s.logger.Info("grpc server starting", "addr", lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil && ctx.Err() == nil {
		return err
	}
	s.logger.Info("grpc server stopped")
	return nil
}
