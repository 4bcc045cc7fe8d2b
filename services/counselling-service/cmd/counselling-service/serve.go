package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/counselbook/libs/auth"
	"github.com/md-rashed-zaman/counselbook/libs/db"
	"github.com/md-rashed-zaman/counselbook/libs/httpx"
	"github.com/md-rashed-zaman/counselbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/counselbook/libs/otel"
	"github.com/md-rashed-zaman/counselbook/libs/runtime"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/config"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/grpcserver"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/handlers"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/outbox"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/payments"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/scheduling"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/storage"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func serveCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the gRPC health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	logger := runtime.NewLogger(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  cfg.ServiceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSamplingRatio,
	})
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	var (
		store  scheduling.Store
		checks []runtime.ReadyCheck
		pool   *db.Pool
	)
	switch cfg.Store {
	case config.StorePostgres:
		pool, err = db.Open(ctx, cfg.DatabaseURL, db.Options{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			return err
		}
		defer pool.Close()
		applied, err := db.NewMigrator(pool, storage.Migrations()).Up(ctx)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied", "count", applied)
		store = storage.NewPostgres(pool)
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	default:
		logger.Warn("using in-memory store; data is lost on restart")
		store = storage.NewMemory()
	}

	opts := []scheduling.Option{scheduling.WithLocation(loc)}
	if strings.TrimSpace(cfg.StripeSecretKey) != "" {
		gateway, err := payments.NewStripeGateway(payments.StripeConfig{
			SecretKey:  cfg.StripeSecretKey,
			Currency:   cfg.PaymentCurrency,
			SuccessURL: cfg.CheckoutSuccessURL,
			CancelURL:  cfg.CheckoutCancelURL,
		})
		if err != nil {
			return err
		}
		opts = append(opts, scheduling.WithPayments(gateway))
	} else {
		logger.Info("stripe not configured; checkout disabled")
	}
	svc := scheduling.NewService(store, logger, opts...)

	verifier, err := newVerifier(cfg)
	if err != nil {
		return err
	}
	webhooks := payments.NewWebhookVerifier(cfg.StripeWebhookSecret, time.Duration(cfg.StripeWebhookToleranceSeconds)*time.Second)

	brokers := kafkax.SplitBrokers(cfg.KafkaBrokers)
	if len(brokers) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	rateLimit := httpx.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute).Middleware()
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		rdb := httpx.NewRedisClient(httpx.RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer func() { _ = rdb.Close() }()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
		rateLimit = httpx.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, cfg.ServiceName).Middleware(logger, cfg.RateLimitFailOpen)
	}

	if pool != nil {
		startOutbox(ctx, cfg, pool, brokers, logger)
	}

	mux := runtime.NewBaseMux(checks...)
	handlers.New(svc, verifier, webhooks, logger).Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(httpx.SplitList(cfg.CORSAllowedOrigins))),
		rateLimit,
		httpx.WithBodyLimit(cfg.RequestBodyLimitBytes),
		httpx.WithTimeout(cfg.RequestTimeout()),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "counselling")

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	health := grpcserver.New(logger, 10*time.Second, checks...)
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := health.Serve(ctx, lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return runtime.ServeHTTP(ctx, srv, logger, 10*time.Second)
}

func newVerifier(cfg *config.Config) (*auth.Verifier, error) {
	vc := auth.VerifierConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   30 * time.Second,
	}
	if strings.TrimSpace(cfg.JWKSURL) != "" {
		vc.JWKS = auth.NewJWKSClient(cfg.JWKSURL, time.Duration(cfg.JWKSCacheSeconds)*time.Second)
	}
	return auth.NewVerifier(vc)
}

func startOutbox(ctx context.Context, cfg *config.Config, pool *db.Pool, brokers []string, logger *slog.Logger) {
	repo := outbox.NewRepository(pool)
	if len(brokers) > 0 {
		publisher := outbox.NewPublisher(pool, repo, logger, outbox.PublisherConfig{
			Brokers:   brokers,
			PollEvery: cfg.OutboxPollInterval(),
			BatchSize: cfg.OutboxBatchSize,
		})
		go publisher.Run(ctx)
	} else {
		logger.Info("KAFKA_BROKERS empty; outbox events stay unpublished")
	}

	if _, err := outbox.NewPruner(repo, logger, cfg.OutboxRetention()).Start(ctx, cfg.OutboxPruneCron); err != nil {
		logger.Error("outbox pruner disabled", "err", err, "schedule", cfg.OutboxPruneCron)
	}
}
