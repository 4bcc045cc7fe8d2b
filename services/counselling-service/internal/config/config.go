package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	ServiceName string `mapstructure:"SERVICE_NAME"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	Port        string `mapstructure:"PORT"`
	GRPCPort    string `mapstructure:"GRPC_PORT"`

	Store       string `mapstructure:"STORE"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	Timezone    string `mapstructure:"TIMEZONE"`

	JWTSecret        string `mapstructure:"JWT_SECRET"`
	JWTIssuer        string `mapstructure:"JWT_ISSUER"`
	JWTAudience      string `mapstructure:"JWT_AUDIENCE"`
	JWKSURL          string `mapstructure:"JWKS_URL"`
	JWKSCacheSeconds int    `mapstructure:"JWKS_CACHE_SECONDS"`

	KafkaBrokers         string `mapstructure:"KAFKA_BROKERS"`
	OutboxPollMS         int    `mapstructure:"OUTBOX_POLL_MS"`
	OutboxBatchSize      int    `mapstructure:"OUTBOX_BATCH_SIZE"`
	OutboxPruneCron      string `mapstructure:"OUTBOX_PRUNE_CRON"`
	OutboxRetentionHours int    `mapstructure:"OUTBOX_RETENTION_HOURS"`

	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisDB            int    `mapstructure:"REDIS_DB"`
	RateLimitPerMinute int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	RateLimitFailOpen  bool   `mapstructure:"RATE_LIMIT_FAIL_OPEN"`

	CORSAllowedOrigins    string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestBodyLimitBytes int64  `mapstructure:"REQUEST_BODY_LIMIT_BYTES"`
	RequestTimeoutSeconds int    `mapstructure:"REQUEST_TIMEOUT_SECONDS"`

	StripeSecretKey               string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret           string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripeWebhookToleranceSeconds int    `mapstructure:"STRIPE_WEBHOOK_TOLERANCE_SECONDS"`
	PaymentCurrency               string `mapstructure:"PAYMENT_CURRENCY"`
	CheckoutSuccessURL            string `mapstructure:"CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL             string `mapstructure:"CHECKOUT_CANCEL_URL"`

	OTelEnabled       bool    `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint      string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelSamplingRatio float64 `mapstructure:"OTEL_SAMPLING_RATIO"`
}

var defaults = map[string]any{
	"SERVICE_NAME":                     "counselling-service",
	"LOG_LEVEL":                        "info",
	"PORT":                             "8080",
	"GRPC_PORT":                        "9090",
	"STORE":                            StorePostgres,
	"DATABASE_URL":                     "",
	"DB_MAX_CONNS":                     10,
	"DB_MIN_CONNS":                     1,
	"TIMEZONE":                         "UTC",
	"JWT_SECRET":                       "",
	"JWT_ISSUER":                       "",
	"JWT_AUDIENCE":                     "",
	"JWKS_URL":                         "",
	"JWKS_CACHE_SECONDS":               300,
	"KAFKA_BROKERS":                    "",
	"OUTBOX_POLL_MS":                   1000,
	"OUTBOX_BATCH_SIZE":                50,
	"OUTBOX_PRUNE_CRON":                "@daily",
	"OUTBOX_RETENTION_HOURS":           168,
	"REDIS_ADDR":                       "",
	"REDIS_PASSWORD":                   "",
	"REDIS_DB":                         0,
	"RATE_LIMIT_PER_MINUTE":            120,
	"RATE_LIMIT_FAIL_OPEN":             true,
	"CORS_ALLOWED_ORIGINS":             "",
	"REQUEST_BODY_LIMIT_BYTES":         1 << 20,
	"REQUEST_TIMEOUT_SECONDS":          15,
	"STRIPE_SECRET_KEY":                "",
	"STRIPE_WEBHOOK_SECRET":            "",
	"STRIPE_WEBHOOK_TOLERANCE_SECONDS": 300,
	"PAYMENT_CURRENCY":                 "usd",
	"CHECKOUT_SUCCESS_URL":             "http://localhost:8080/checkout/success",
	"CHECKOUT_CANCEL_URL":              "http://localhost:8080/checkout/cancel",
	"OTEL_ENABLED":                     false,
	"OTEL_EXPORTER_OTLP_ENDPOINT":      "localhost:4317",
	"OTEL_SAMPLING_RATIO":              1.0,
}

// Load reads the environment, falling back to envFile (usually ".env") when it exists.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
		// Unmarshal only sees env vars that are bound explicitly.
		_ = v.BindEnv(key)
	}
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !isMissingFile(err) {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	cfg.PaymentCurrency = strings.ToLower(strings.TrimSpace(cfg.PaymentCurrency))
	return cfg, nil
}

func isMissingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Validate checks the settings serve needs before opening any connection.
func (c *Config) Validate() error {
	if err := validPort("PORT", c.Port); err != nil {
		return err
	}
	if err := validPort("GRPC_PORT", c.GRPCPort); err != nil {
		return err
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("DATABASE_URL is required when STORE=postgres")
		}
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StoreMemory, StorePostgres, c.Store)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if strings.TrimSpace(c.JWTSecret) == "" && strings.TrimSpace(c.JWKSURL) == "" {
		return errors.New("JWT_SECRET or JWKS_URL is required")
	}
	if len(c.PaymentCurrency) != 3 {
		return fmt.Errorf("PAYMENT_CURRENCY must be a three-letter ISO code, got %q", c.PaymentCurrency)
	}
	if c.OutboxRetentionHours <= 0 {
		return errors.New("OUTBOX_RETENTION_HOURS must be positive")
	}
	return nil
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c *Config) OutboxPollInterval() time.Duration {
	return time.Duration(c.OutboxPollMS) * time.Millisecond
}

func (c *Config) OutboxRetention() time.Duration {
	return time.Duration(c.OutboxRetentionHours) * time.Hour
}

func validPort(key, raw string) error {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("%s must be a port number, got %q", key, raw)
	}
	return nil
}
