package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"skillforge/adapters/sqlx"
	"skillforge/core"
)

// problems accumulates validation failures for one section.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p *problems) positive(name string, ok bool) {
	if !ok {
		p.addf("%s must be positive", name)
	}
}

func (p *problems) oneOf(name, got string, allowed ...string) {
	if !slices.Contains(allowed, got) {
		p.addf("%s must be one of: %s", name, strings.Join(allowed, ", "))
	}
}

// nest records err under a section label.
func (p *problems) nest(section string, err error) {
	if err != nil {
		p.addf("%s: %v", section, err)
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return errors.New(strings.Join(p, "; "))
}

// Validate checks every section and reports all failures together.
func (c *Config) Validate() error {
	var p problems
	if c.Environment == "" {
		p.addf("environment cannot be empty")
	}
	p.nest("server config", c.Server.Validate())
	p.nest("storage config", c.Storage.Validate())
	p.nest("events config", c.Events.Validate())
	p.nest("leaderboard config", c.Leaderboard.Validate())
	p.nest("webhook config", c.Webhooks.Validate())
	p.nest("logging config", c.Logging.Validate())
	p.nest("metrics config", c.Metrics.Validate())
	p.nest("security config", c.Security.Validate())
	return p.err()
}

func (s *ServerConfig) Validate() error {
	var p problems
	if s.Address == "" {
		p.addf("address cannot be empty")
	}
	p.positive("read_timeout", s.ReadTimeout > 0)
	p.positive("write_timeout", s.WriteTimeout > 0)
	p.positive("idle_timeout", s.IdleTimeout > 0)
	p.positive("read_header_timeout", s.ReadHeaderTimeout > 0)
	p.positive("shutdown_timeout", s.ShutdownTimeout > 0)
	return p.err()
}

// Validate checks the adapter name and the settings that adapter reads.
func (s *StorageConfig) Validate() error {
	var p problems
	p.oneOf("adapter", s.Adapter, "memory", "redis", "sql", "file")
	switch s.Adapter {
	case "file":
		p.nest("file config", s.File.Validate())
	case "redis":
		if s.Redis.Addr == "" {
			p.addf("redis config: addr cannot be empty")
		}
	case "sql":
		if !slices.Contains([]sqlx.Driver{sqlx.DriverPostgres, sqlx.DriverMySQL, sqlx.DriverSQLite}, s.SQL.Driver) {
			p.addf("sql config: unsupported driver %q", s.SQL.Driver)
		}
		if s.SQL.DSN == "" {
			p.addf("sql config: dsn cannot be empty")
		}
	}
	return p.err()
}

func (f *FileConfig) Validate() error {
	if f.Path == "" {
		return errors.New("path cannot be empty")
	}
	return nil
}

func (l *LoggingConfig) Validate() error {
	var p problems
	p.oneOf("level", l.Level, "debug", "info", "warn", "error")
	p.oneOf("format", l.Format, "json", "text")
	p.oneOf("output", l.Output, "stdout", "stderr")
	return p.err()
}

func (m *MetricsConfig) Validate() error {
	if !m.Enabled {
		return nil
	}
	var p problems
	if m.Address == "" {
		p.addf("address cannot be empty when metrics are enabled")
	}
	if m.Path == "" {
		p.addf("path cannot be empty when metrics are enabled")
	}
	return p.err()
}

// Validate requires a worker pool and queue only for async dispatch.
func (e *EventsConfig) Validate() error {
	var p problems
	switch e.Dispatch {
	case "", "sync":
	case "async":
		if e.Workers <= 0 {
			p.addf("workers must be > 0 for async dispatch")
		}
		if e.QueueSize <= 0 {
			p.addf("queue_size must be > 0 for async dispatch")
		}
	default:
		p.addf("dispatch must be one of: sync, async")
	}
	return p.err()
}

func (l *LeaderboardConfig) Validate() error {
	if !l.Enabled {
		return nil
	}
	if l.Interval <= 0 {
		return errors.New("interval must be positive when leaderboards are enabled")
	}
	_, err := l.Keys()
	return err
}

// Validate requires http(s) endpoints and known event type names.
func (w *WebhookConfig) Validate() error {
	var p problems
	for i, ep := range w.Endpoints {
		u, err := url.Parse(ep)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			p.addf("endpoints[%d] must be an http(s) URL", i)
		}
	}
	for _, name := range w.Events {
		if !slices.Contains(core.AllEventTypes, core.EventType(name)) {
			p.addf("unknown event type %q", name)
		}
	}
	if len(w.Endpoints) > 0 && w.Timeout <= 0 {
		p.addf("timeout must be positive")
	}
	return p.err()
}

func (s SecurityConfig) Validate() error {
	var p problems
	if s.EnableRateLimit {
		if s.RateLimit.RequestsPerMinute <= 0 {
			p.addf("rate_limit.requests_per_minute must be > 0 when rate limiting is enabled")
		}
		if s.RateLimit.BurstSize <= 0 {
			p.addf("rate_limit.burst_size must be > 0 when rate limiting is enabled")
		}
	}
	for i, key := range s.APIKeys {
		if strings.TrimSpace(key) == "" {
			p.addf("api_keys[%d] is empty", i)
		}
	}
	return p.err()
}
