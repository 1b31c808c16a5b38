package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"skillforge/api/httpapi"
	"skillforge/config"
	"skillforge/core"
	"skillforge/engine"
	"skillforge/gamify"
	"skillforge/integrations/webhook"
	"skillforge/leaderboard"
	"skillforge/metrics"
	"skillforge/realtime"
)

// App aggregates the assembled server components.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Hub           *realtime.Hub
	Service       *engine.GamifyService
	Handler       http.Handler
	Server        *http.Server
	MetricsServer *MetricsServer
}

// MetricsServer serves the Prometheus registry on its own listener. Server is
// nil when metrics are disabled.
type MetricsServer struct {
	Server *http.Server
}

func provideConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Environment == config.EnvProduction {
		if err := cfg.LoadSecretsFromEnv(ctx); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideMetrics(cfg *config.Config) *metrics.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New(cfg.Metrics.CollectSystem)
}

func provideStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (engine.Storage, func(), error) {
	storage, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if c, ok := storage.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Error("closing storage", "error", err)
			}
		}
	}
	return storage, cleanup, nil
}

func provideWebhook(cfg *config.Config, logger *slog.Logger) *webhook.Sink {
	wh := cfg.Webhooks
	if len(wh.Endpoints) == 0 {
		return nil
	}
	types := make([]core.EventType, 0, len(wh.Events))
	for _, e := range wh.Events {
		types = append(types, core.EventType(e))
	}
	return webhook.New(wh.Endpoints,
		webhook.WithClient(&http.Client{Timeout: wh.Timeout}),
		webhook.WithEventTypes(types...),
		webhook.WithSecret(wh.Secret),
		webhook.WithLogger(logger),
	)
}

func provideService(cfg *config.Config, logger *slog.Logger, hub *realtime.Hub, m *metrics.Metrics, storage engine.Storage, sink *webhook.Sink) (*engine.GamifyService, func(), error) {
	mode := engine.DispatchSync
	if cfg.Events.Dispatch == "async" {
		mode = engine.DispatchAsync
	}
	opts := []gamify.Option{
		gamify.WithLogger(logger),
		gamify.WithStorage(storage),
		gamify.WithRealtime(hub),
		gamify.WithDispatchMode(mode),
		gamify.WithBusOptions(engine.WithWorkers(cfg.Events.Workers), engine.WithQueueSize(cfg.Events.QueueSize)),
		gamify.WithWebhook(sink),
	}
	if m != nil {
		opts = append(opts, gamify.WithMetrics(m))
	}
	if cfg.Leaderboard.Enabled {
		keys, err := cfg.Leaderboard.Keys()
		if err != nil {
			return nil, nil, fmt.Errorf("leaderboard boards: %w", err)
		}
		opts = append(opts, gamify.WithLeaderboards(
			leaderboard.WithKeys(keys...),
			leaderboard.WithInterval(cfg.Leaderboard.Interval),
		))
	}
	svc := gamify.New(opts...)
	return svc, svc.Close, nil
}

func provideHandler(svc *engine.GamifyService, hub *realtime.Hub, cfg *config.Config) http.Handler {
	return httpapi.NewMux(svc, hub, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func provideMetricsServer(cfg *config.Config, m *metrics.Metrics) *MetricsServer {
	if m == nil {
		return &MetricsServer{}
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, m.Handler())
	return &MetricsServer{Server: &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}}
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	out := os.Stdout
	if cfg.Logging.Output == "stderr" {
		out = os.Stderr
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func convertAttributes(attrs map[string]string) []slog.Attr {
	result := make([]slog.Attr, 0, len(attrs))
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage creates the appropriate storage adapter based on configuration.
func setupStorage(ctx context.Context, cfg *config.Config) (engine.Storage, error) {
	return gamify.OpenStorage(ctx, cfg.Storage)
}
