// Package config loads server configuration from defaults, an optional YAML
// file and SPLITGEN_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/limits"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
)

// FileEnv names the variable pointing at the YAML config file.
const FileEnv = "SPLITGEN_CONFIG"

// devSecret is accepted only when Env is "dev".
const devSecret = "dev-secret-change-me"

// Config holds all application configuration.
type Config struct {
	// Env is "dev" or "prod". Dev relaxes secret validation.
	Env string `yaml:"env"`

	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Cache     CacheConfig     `yaml:"cache"`
	Receipts  ReceiptsConfig  `yaml:"receipts"`
	Stripe    StripeConfig    `yaml:"stripe"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Jobs      JobsConfig      `yaml:"jobs"`

	// Limits overrides the built-in quotas per tier.
	Limits map[models.Tier]limits.Override `yaml:"limits"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// AllowedOrigin is sent as Access-Control-Allow-Origin.
	AllowedOrigin string `yaml:"allowed_origin"`
}

// DatabaseConfig selects the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds session settings.
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenDuration time.Duration `yaml:"token_duration"`
}

// LoggingConfig selects level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CacheConfig sizes the summary cache. An empty RedisURL keeps the cache
// in-process only.
type CacheConfig struct {
	Size     int           `yaml:"size"`
	TTL      time.Duration `yaml:"ttl"`
	RedisURL string        `yaml:"redis_url"`
}

// ReceiptsConfig selects where receipt files go. A non-empty S3Bucket
// selects S3; otherwise files are written under Dir.
type ReceiptsConfig struct {
	Dir            string `yaml:"dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`

	S3Bucket       string `yaml:"s3_bucket"`
	S3Region       string `yaml:"s3_region"`
	S3Endpoint     string `yaml:"s3_endpoint"`
	S3AccessKey    string `yaml:"s3_access_key"`
	S3SecretKey    string `yaml:"s3_secret_key"`
	S3UsePathStyle bool   `yaml:"s3_use_path_style"`
}

// StripeConfig holds webhook settings.
type StripeConfig struct {
	WebhookSecret string `yaml:"webhook_secret"`
	// PremiumPriceIDs are the provider price IDs that grant the premium tier.
	PremiumPriceIDs []string      `yaml:"premium_price_ids"`
	Tolerance       time.Duration `yaml:"tolerance"`
}

// TelemetryConfig enables tracing when OTLPEndpoint is set.
type TelemetryConfig struct {
	ServiceName  string `yaml:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// JobsConfig holds cron schedules. An empty schedule disables the job.
type JobsConfig struct {
	ExpirySweep    string        `yaml:"expiry_sweep"`
	EventPrune     string        `yaml:"event_prune"`
	EventRetention time.Duration `yaml:"event_retention"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Env: "dev",
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigin:   "*",
		},
		Database: DatabaseConfig{Path: "./data/bills.db"},
		Auth: AuthConfig{
			JWTSecret:     devSecret,
			TokenDuration: 24 * time.Hour,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Cache:   CacheConfig{Size: 1024, TTL: 10 * time.Minute},
		Receipts: ReceiptsConfig{
			Dir:            "./data/receipts",
			MaxUploadBytes: 10 << 20,
			S3Region:       "us-east-1",
		},
		Stripe:    StripeConfig{Tolerance: 5 * time.Minute},
		Telemetry: TelemetryConfig{ServiceName: "split-generator", Insecure: true},
		Jobs: JobsConfig{
			ExpirySweep:    "@hourly",
			EventPrune:     "@daily",
			EventRetention: 90 * 24 * time.Hour,
		},
	}
}

// Load builds the configuration and validates it.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Env = getEnv("SPLITGEN_ENV", c.Env)

	c.Server.Addr = getEnv("SPLITGEN_ADDR", c.Server.Addr)
	c.Server.ReadTimeout = getEnvDuration("SPLITGEN_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("SPLITGEN_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("SPLITGEN_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("SPLITGEN_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.AllowedOrigin = getEnv("SPLITGEN_ALLOWED_ORIGIN", c.Server.AllowedOrigin)

	c.Database.Path = getEnv("SPLITGEN_DB_PATH", c.Database.Path)

	c.Auth.JWTSecret = getEnv("SPLITGEN_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.TokenDuration = getEnvDuration("SPLITGEN_TOKEN_DURATION", c.Auth.TokenDuration)

	c.Logging.Level = getEnv("SPLITGEN_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("SPLITGEN_LOG_FORMAT", c.Logging.Format)

	c.Cache.Size = getEnvInt("SPLITGEN_CACHE_SIZE", c.Cache.Size)
	c.Cache.TTL = getEnvDuration("SPLITGEN_CACHE_TTL", c.Cache.TTL)
	c.Cache.RedisURL = getEnv("SPLITGEN_REDIS_URL", c.Cache.RedisURL)

	c.Receipts.Dir = getEnv("SPLITGEN_RECEIPTS_DIR", c.Receipts.Dir)
	c.Receipts.MaxUploadBytes = int64(getEnvInt("SPLITGEN_RECEIPTS_MAX_BYTES", int(c.Receipts.MaxUploadBytes)))
	c.Receipts.S3Bucket = getEnv("SPLITGEN_S3_BUCKET", c.Receipts.S3Bucket)
	c.Receipts.S3Region = getEnv("SPLITGEN_S3_REGION", c.Receipts.S3Region)
	c.Receipts.S3Endpoint = getEnv("SPLITGEN_S3_ENDPOINT", c.Receipts.S3Endpoint)
	c.Receipts.S3AccessKey = getEnv("SPLITGEN_S3_ACCESS_KEY", c.Receipts.S3AccessKey)
	c.Receipts.S3SecretKey = getEnv("SPLITGEN_S3_SECRET_KEY", c.Receipts.S3SecretKey)
	c.Receipts.S3UsePathStyle = getEnvBool("SPLITGEN_S3_USE_PATH_STYLE", c.Receipts.S3UsePathStyle)

	c.Stripe.WebhookSecret = getEnv("SPLITGEN_STRIPE_WEBHOOK_SECRET", c.Stripe.WebhookSecret)
	if ids := getEnv("SPLITGEN_STRIPE_PREMIUM_PRICE_IDS", ""); ids != "" {
		c.Stripe.PremiumPriceIDs = splitList(ids)
	}
	c.Stripe.Tolerance = getEnvDuration("SPLITGEN_STRIPE_TOLERANCE", c.Stripe.Tolerance)

	c.Telemetry.ServiceName = getEnv("SPLITGEN_OTEL_SERVICE_NAME", c.Telemetry.ServiceName)
	c.Telemetry.OTLPEndpoint = getEnv("SPLITGEN_OTEL_ENDPOINT", c.Telemetry.OTLPEndpoint)
	c.Telemetry.Insecure = getEnvBool("SPLITGEN_OTEL_INSECURE", c.Telemetry.Insecure)

	c.Jobs.ExpirySweep = getEnv("SPLITGEN_JOB_EXPIRY_SWEEP", c.Jobs.ExpirySweep)
	c.Jobs.EventPrune = getEnv("SPLITGEN_JOB_EVENT_PRUNE", c.Jobs.EventPrune)
	c.Jobs.EventRetention = getEnvDuration("SPLITGEN_EVENT_RETENTION", c.Jobs.EventRetention)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Env != "dev" && c.Env != "prod" {
		errs = append(errs, fmt.Errorf("env must be dev or prod, got %q", c.Env))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	if c.Env == "prod" && c.Auth.JWTSecret == devSecret {
		errs = append(errs, errors.New("jwt secret must be set in prod"))
	}
	if c.Auth.TokenDuration <= 0 {
		errs = append(errs, errors.New("token duration must be positive"))
	}
	if c.Cache.Size <= 0 {
		errs = append(errs, errors.New("cache size must be positive"))
	}
	if c.Receipts.S3Bucket == "" && c.Receipts.Dir == "" {
		errs = append(errs, errors.New("receipts need an s3 bucket or a local directory"))
	}
	if c.Receipts.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("receipt upload limit must be positive"))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.Logging.Format))
	}
	for tier := range c.Limits {
		if !tier.Valid() {
			errs = append(errs, fmt.Errorf("unknown tier %q in limits", tier))
		}
	}

	return errors.Join(errs...)
}

// Quotas returns the built-in quotas with the configured overrides applied.
func (c *Config) Quotas() map[models.Tier]limits.Quotas {
	return limits.MergeQuotas(c.Limits)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
