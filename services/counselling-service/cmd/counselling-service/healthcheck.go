package main

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/counselbook/libs/grpcx"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/grpcserver"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// healthcheckCmd probes the gRPC health endpoint; suitable as a container HEALTHCHECK.
func healthcheckCmd(load loader) *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Query the gRPC health service and exit non-zero unless SERVING",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				cfg, err := load()
				if err != nil {
					return err
				}
				addr = "localhost:" + cfg.GRPCPort
			}
			conn, err := grpcx.Dial(addr, grpcx.DialOptions{})
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: grpcserver.ServiceName})
			if err != nil {
				return err
			}
			if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("status %s", resp.GetStatus())
			}
			fmt.Fprintln(cmd.OutOrStdout(), "SERVING")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "host:port of the gRPC server (defaults to localhost:GRPC_PORT)")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "RPC deadline")
	return cmd
}
