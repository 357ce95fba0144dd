package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/joho/godotenv"
)

// Environment name constants used in ENVIRONMENT config field.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

// Feed modes used in FEED_MODE config field.
const (
	FeedDebounced = "debounced"
	FeedDirect    = "direct"
)

// Config holds all configuration for the application
type Config struct {
	// Application
	LogLevel    string `conf:"default:info,env:LOG_LEVEL"`
	Environment string `conf:"default:development,enum:development|testing|production,env:ENVIRONMENT"`

	// HTTP
	HTTPAddr           string `conf:"default:0.0.0.0:8080,env:HTTP_ADDR"`
	CORSAllowedOrigins string `conf:"default:*,env:CORS_ALLOWED_ORIGINS"`
	RateLimitPerMinute int    `conf:"default:600,env:RATE_LIMIT_PER_MINUTE"`

	// Feed
	FeedMode               string        `conf:"default:debounced,enum:debounced|direct,env:FEED_MODE"`
	DebounceDelay          time.Duration `conf:"default:50ms,env:DEBOUNCE_DELAY"`
	DebounceResetOnEnqueue bool          `conf:"default:true,env:DEBOUNCE_RESET_ON_ENQUEUE"`
	DrainTimeout           time.Duration `conf:"default:10s,env:DRAIN_TIMEOUT"`

	// Simulator
	SimulatorInterval time.Duration `conf:"default:200ms,env:SIMULATOR_INTERVAL"`
	SimulatorItems    int           `conf:"default:5,env:SIMULATOR_ITEMS"`

	// Observability
	ServiceName    string `conf:"default:itemfeed,env:SERVICE_NAME"`
	ServiceVersion string `conf:"default:dev,env:SERVICE_VERSION"`
	OtelEndpoint   string `conf:"env:OTEL_ENDPOINT"`
	SentryDSN      string `conf:"env:SENTRY_DSN,noprint"`
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	var cfg Config
	_ = godotenv.Load()
	if _, err := conf.Parse("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values conf tags cannot express.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.DebounceDelay <= 0 {
		errs = append(errs, fmt.Errorf("DEBOUNCE_DELAY must be positive (got %s)", cfg.DebounceDelay))
	}
	if cfg.FeedMode != FeedDebounced && cfg.FeedMode != FeedDirect {
		errs = append(errs, fmt.Errorf("FEED_MODE must be %q or %q (got %q)", FeedDebounced, FeedDirect, cfg.FeedMode))
	}
	if cfg.RateLimitPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive (got %d)", cfg.RateLimitPerMinute))
	}
	if cfg.SimulatorInterval <= 0 {
		errs = append(errs, fmt.Errorf("SIMULATOR_INTERVAL must be positive (got %s)", cfg.SimulatorInterval))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %w", errors.Join(errs...))
}

// ValidateForProduction enforces operational requirements when ENVIRONMENT=production.
// No-ops for non-production environments.
func ValidateForProduction(cfg *Config) error {
	if cfg.Environment != EnvProduction {
		return nil
	}

	var errs []string

	if cfg.LogLevel == "debug" {
		errs = append(errs, "LOG_LEVEL must not be 'debug' in production (every delivery is logged at debug)")
	}

	if strings.TrimSpace(cfg.CORSAllowedOrigins) == "*" {
		errs = append(errs, "CORS_ALLOWED_ORIGINS must list explicit origins in production")
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("production config validation failed: %s", strings.Join(errs, "; "))
}
