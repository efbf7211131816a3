package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// StoreMode selects which record-store adapter the engine talks to.
const (
	StoreModePostgres = "postgres"
	StoreModeHTTP     = "http"
)

// Config holds all configuration for the deduplication engine.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Record store. "postgres" runs against a local database, "http" against
	// a remote grid-style record store API.
	StoreMode        string        `envconfig:"STORE_MODE" default:"postgres"`
	DatabaseURL      string        `envconfig:"DATABASE_URL" default:""`
	StoreBaseURL     string        `envconfig:"STORE_BASE_URL" default:""`
	StoreAPIToken    string        `envconfig:"STORE_API_TOKEN" default:""`
	StoreHTTPTimeout time.Duration `envconfig:"STORE_HTTP_TIMEOUT" default:"30s"`

	// Downstream batch job signalled after each successful run. Empty means
	// no-op trigger (local development only).
	DownstreamWebhookURL string `envconfig:"DOWNSTREAM_WEBHOOK_URL" default:""`

	// Scheduled job loop.
	RunIntervalMinutes int `envconfig:"RUN_INTERVAL_MINUTES" default:"60"`

	// Per-run defaults.
	DryRun              bool    `envconfig:"DEDUP_DRY_RUN" default:"false"`
	ConfidenceThreshold float64 `envconfig:"DEDUP_CONFIDENCE_THRESHOLD" default:"0.7"`
	MaxRecords          int     `envconfig:"DEDUP_MAX_RECORDS" default:"100"`
	LookbackDays        int     `envconfig:"DEDUP_LOOKBACK_DAYS" default:"30"`

	// Optional YAML file overriding scoring weights, completeness weights,
	// source priorities and the incident-type vocabulary.
	WeightsFile string `envconfig:"DEDUP_WEIGHTS_FILE" default:""`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreMode {
	case StoreModePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_MODE=postgres")
		}
	case StoreModeHTTP:
		if strings.TrimSpace(c.StoreBaseURL) == "" {
			return fmt.Errorf("STORE_BASE_URL is required when STORE_MODE=http")
		}
	default:
		return fmt.Errorf("STORE_MODE must be %q or %q, got %q", StoreModePostgres, StoreModeHTTP, c.StoreMode)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("DEDUP_CONFIDENCE_THRESHOLD must be in [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.MaxRecords < 1 {
		return fmt.Errorf("DEDUP_MAX_RECORDS must be >= 1")
	}
	if c.LookbackDays < 1 {
		return fmt.Errorf("DEDUP_LOOKBACK_DAYS must be >= 1")
	}
	if c.RunIntervalMinutes < 1 {
		return fmt.Errorf("RUN_INTERVAL_MINUTES must be >= 1")
	}
	if c.StoreHTTPTimeout <= 0 {
		return fmt.Errorf("STORE_HTTP_TIMEOUT must be positive")
	}
	return nil
}
