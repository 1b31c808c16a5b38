package config

import (
	"fmt"
	"time"
)

// LoadProfile returns the defaults tuned for a named deployment profile.
// Environment variables are not applied.
func LoadProfile(name string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Profile = name
	switch name {
	case "development":
		cfg.Environment = EnvDevelopment
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
		cfg.Leaderboard.Interval = time.Minute
	case "testing":
		cfg.Environment = EnvTesting
		cfg.Events.Dispatch = "sync"
		cfg.Leaderboard.Enabled = false
		cfg.Logging.Level = "warn"
	case "staging":
		cfg.Environment = EnvStaging
		cfg.Storage.Adapter = "redis"
		cfg.Metrics.Enabled = true
		cfg.Leaderboard.Interval = 15 * time.Minute
	case "production":
		cfg.Environment = EnvProduction
		cfg.Storage.Adapter = "sql"
		cfg.Storage.SQL.DSN = "postgres://skillforge@localhost:5432/skillforge?sslmode=require"
		cfg.Server.CORSOrigin = ""
		cfg.Metrics.Enabled = true
		cfg.Security.EnableRateLimit = true
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", name, err)
	}
	return cfg, nil
}
