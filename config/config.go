package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"skillforge/adapters/redis"
	"skillforge/adapters/sqlx"
	"skillforge/leaderboard"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" toml:"environment" env:"SKILLFORGE_ENV"`
	Profile     string      `json:"profile" toml:"profile" env:"SKILLFORGE_PROFILE"`

	// Server configuration
	Server ServerConfig `json:"server" toml:"server"`

	// Storage configuration
	Storage StorageConfig `json:"storage" toml:"storage"`

	// Event bus configuration
	Events EventsConfig `json:"events" toml:"events"`

	// Leaderboard snapshot scheduling
	Leaderboard LeaderboardConfig `json:"leaderboard" toml:"leaderboard"`

	// Outbound webhooks
	Webhooks WebhookConfig `json:"webhooks" toml:"webhooks"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" toml:"logging"`

	// Metrics and monitoring
	Metrics MetricsConfig `json:"metrics" toml:"metrics"`

	// Security configuration
	Security SecurityConfig `json:"security" toml:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" toml:"address" env:"SKILLFORGE_SERVER_ADDR"`
	PathPrefix        string        `json:"path_prefix" toml:"path_prefix" env:"SKILLFORGE_SERVER_PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" toml:"cors_origin" env:"SKILLFORGE_SERVER_CORS_ORIGIN"`
	ReadTimeout       time.Duration `json:"read_timeout" toml:"read_timeout" env:"SKILLFORGE_SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" toml:"write_timeout" env:"SKILLFORGE_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" toml:"idle_timeout" env:"SKILLFORGE_SERVER_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" toml:"read_header_timeout" env:"SKILLFORGE_SERVER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" toml:"shutdown_timeout" env:"SKILLFORGE_SERVER_SHUTDOWN_TIMEOUT"`
}

// StorageConfig holds storage adapter configuration
type StorageConfig struct {
	Adapter string       `json:"adapter" toml:"adapter" env:"SKILLFORGE_STORAGE_ADAPTER"`
	Redis   redis.Config `json:"redis,omitempty" toml:"redis"`
	SQL     sqlx.Config  `json:"sql,omitempty" toml:"sql"`
	File    FileConfig   `json:"file,omitempty" toml:"file"`
}

// FileConfig holds JSON file storage configuration
type FileConfig struct {
	Path string `json:"path" toml:"path" env:"SKILLFORGE_STORAGE_FILE_PATH"`
}

// EventsConfig selects how the event bus dispatches to handlers.
type EventsConfig struct {
	Dispatch  string `json:"dispatch" toml:"dispatch" env:"SKILLFORGE_EVENTS_DISPATCH"`
	Workers   int    `json:"workers" toml:"workers" env:"SKILLFORGE_EVENTS_WORKERS"`
	QueueSize int    `json:"queue_size" toml:"queue_size" env:"SKILLFORGE_EVENTS_QUEUE_SIZE"`
}

// LeaderboardConfig controls the periodic scoring pass.
type LeaderboardConfig struct {
	Enabled  bool          `json:"enabled" toml:"enabled" env:"SKILLFORGE_LEADERBOARD_ENABLED"`
	Interval time.Duration `json:"interval" toml:"interval" env:"SKILLFORGE_LEADERBOARD_INTERVAL"`
	// Boards lists "period:category" pairs; empty means every combination.
	Boards []string `json:"boards,omitempty" toml:"boards" env:"SKILLFORGE_LEADERBOARD_BOARDS"`
}

// Keys parses Boards.
func (l LeaderboardConfig) Keys() ([]leaderboard.Key, error) {
	if len(l.Boards) == 0 {
		return leaderboard.DefaultKeys(), nil
	}
	keys := make([]leaderboard.Key, 0, len(l.Boards))
	for _, b := range l.Boards {
		period, category, ok := strings.Cut(b, ":")
		if !ok {
			return nil, fmt.Errorf("board %q must be period:category", b)
		}
		k, err := leaderboard.ParseKey(period, category)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// WebhookConfig lists endpoints that receive domain events.
type WebhookConfig struct {
	Endpoints []string      `json:"endpoints,omitempty" toml:"endpoints" env:"SKILLFORGE_WEBHOOK_ENDPOINTS"`
	Events    []string      `json:"events,omitempty" toml:"events" env:"SKILLFORGE_WEBHOOK_EVENTS"`
	Secret    string        `json:"secret,omitempty" toml:"secret" env:"SKILLFORGE_WEBHOOK_SECRET"`
	Timeout   time.Duration `json:"timeout" toml:"timeout" env:"SKILLFORGE_WEBHOOK_TIMEOUT"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" toml:"level" env:"SKILLFORGE_LOG_LEVEL"`
	Format     string            `json:"format" toml:"format" env:"SKILLFORGE_LOG_FORMAT"`
	Output     string            `json:"output" toml:"output" env:"SKILLFORGE_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" toml:"attributes" env:"SKILLFORGE_LOG_ATTRIBUTES"`
}

// MetricsConfig holds metrics and monitoring configuration
type MetricsConfig struct {
	Enabled       bool   `json:"enabled" toml:"enabled" env:"SKILLFORGE_METRICS_ENABLED"`
	Address       string `json:"address" toml:"address" env:"SKILLFORGE_METRICS_ADDR"`
	Path          string `json:"path" toml:"path" env:"SKILLFORGE_METRICS_PATH"`
	CollectSystem bool   `json:"collect_system" toml:"collect_system" env:"SKILLFORGE_METRICS_COLLECT_SYSTEM"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" toml:"enable_rate_limit" env:"SKILLFORGE_SECURITY_RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty" toml:"rate_limit"`
	APIKeys         []string        `json:"api_keys,omitempty" toml:"api_keys" env:"SKILLFORGE_SECURITY_API_KEYS"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute" toml:"requests_per_minute" env:"SKILLFORGE_SECURITY_RATE_LIMIT_RPM"`
	BurstSize         int           `json:"burst_size" toml:"burst_size" env:"SKILLFORGE_SECURITY_RATE_LIMIT_BURST"`
	CleanupInterval   time.Duration `json:"cleanup_interval" toml:"cleanup_interval" env:"SKILLFORGE_SECURITY_RATE_LIMIT_CLEANUP"`
}

// Load builds the configuration from defaults and SKILLFORGE_* variables.
// SKILLFORGE_CONFIG, when set, names a JSON or TOML file read first.
func Load() (*Config, error) {
	if path := os.Getenv("SKILLFORGE_CONFIG"); path != "" {
		return LoadFromFile(path)
	}
	return finish(DefaultConfig())
}

// LoadFromFile decodes a .json or .toml file over the defaults; environment
// variables still win over file values.
func LoadFromFile(path string) (*Config, error) {
	decode, err := decoderFor(path)
	if err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}
	f, err := os.Open(filepath.Clean(path)) // #nosec G304 - extension checked above
	if err != nil {
		return nil, fmt.Errorf("open config file %s: %w", path, err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	if err := decode(f, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return finish(cfg)
}

func decoderFor(path string) (func(io.Reader, *Config) error, error) {
	if path == "" {
		return nil, errors.New("config file path cannot be empty")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return func(r io.Reader, cfg *Config) error { return json.NewDecoder(r).Decode(cfg) }, nil
	case ".toml":
		return func(r io.Reader, cfg *Config) error {
			_, err := toml.NewDecoder(r).Decode(cfg)
			return err
		}, nil
	}
	return nil, errors.New("config file must have .json or .toml extension")
}

func finish(cfg *Config) (*Config, error) {
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "/api",
			CORSOrigin:        "*",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Adapter: "memory",
			Redis:   redis.DefaultConfig(),
			SQL:     sqlx.DefaultConfig(sqlx.DriverPostgres),
			File: FileConfig{
				Path: "./data/skillforge.json",
			},
		},
		Events: EventsConfig{
			Dispatch:  "async",
			Workers:   4,
			QueueSize: 1024,
		},
		Leaderboard: LeaderboardConfig{
			Enabled:  true,
			Interval: time.Hour,
		},
		Webhooks: WebhookConfig{
			Timeout: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled:       false,
			Address:       ":9090",
			Path:          "/metrics",
			CollectSystem: true,
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				BurstSize:         10,
				CleanupInterval:   5 * time.Minute,
			},
			APIKeys: []string{},
		},
	}
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	// Create a copy for redaction
	cfg := *c

	// Redact sensitive information
	if cfg.Storage.SQL.DSN != "" {
		cfg.Storage.SQL.DSN = "[REDACTED]"
	}
	if cfg.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = "[REDACTED]"
	}
	if cfg.Webhooks.Secret != "" {
		cfg.Webhooks.Secret = "[REDACTED]"
	}
	if len(cfg.Security.APIKeys) > 0 {
		cfg.Security.APIKeys = []string{fmt.Sprintf("[%d REDACTED]", len(c.Security.APIKeys))}
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
