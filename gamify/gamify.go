// Package gamify assembles a ready-to-use GamifyService from optional parts.
package gamify

import (
	"log/slog"
	"time"

	mem "skillforge/adapters/memory"
	"skillforge/engine"
	"skillforge/integrations/webhook"
	"skillforge/leaderboard"
	"skillforge/metrics"
	"skillforge/realtime"
)

// Option configures the Gamify service builder.
type Option func(*options)

type options struct {
	storage   engine.Storage
	mode      engine.DispatchMode
	busOpts   []engine.BusOption
	hub       *realtime.Hub
	metrics   *metrics.Metrics
	webhooks  []*webhook.Sink
	logger    *slog.Logger
	now       func() time.Time
	boards    bool
	boardOpts []leaderboard.SchedulerOption
	onUnknown func(string)
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *options) { c.storage = s } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *options) { c.mode = m } }

// WithBusOptions tunes the async event bus.
func WithBusOptions(opts ...engine.BusOption) Option {
	return func(c *options) { c.busOpts = append(c.busOpts, opts...) }
}

// WithRealtime wires a realtime hub to receive all engine events.
func WithRealtime(h *realtime.Hub) Option { return func(c *options) { c.hub = h } }

// WithMetrics records events, unknown actions, dropped events and
// leaderboard passes.
func WithMetrics(m *metrics.Metrics) Option { return func(c *options) { c.metrics = m } }

// WithWebhook forwards events to an outbound webhook sink.
func WithWebhook(s *webhook.Sink) Option {
	return func(c *options) {
		if s != nil {
			c.webhooks = append(c.webhooks, s)
		}
	}
}

func WithLogger(l *slog.Logger) Option { return func(c *options) { c.logger = l } }

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option { return func(c *options) { c.now = now } }

// WithUnknownActionHook observes actions missing from the catalog.
func WithUnknownActionHook(fn func(string)) Option { return func(c *options) { c.onUnknown = fn } }

// WithLeaderboards enables snapshot scheduling. The storage must also
// implement engine.SnapshotStore; otherwise the option is ignored.
func WithLeaderboards(opts ...leaderboard.SchedulerOption) Option {
	return func(c *options) {
		c.boards = true
		c.boardOpts = append(c.boardOpts, opts...)
	}
}

// New builds a configured GamifyService. If not provided, defaults are used:
//   - storage: in-memory
//   - dispatch: async
//   - leaderboards: off
func New(opts ...Option) *engine.GamifyService {
	cfg := &options{mode: engine.DispatchAsync, logger: slog.Default()}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.storage == nil {
		cfg.storage = mem.New()
	}

	busOpts := cfg.busOpts
	if cfg.metrics != nil {
		busOpts = append(busOpts, engine.WithDropHandler(cfg.metrics.DroppedEvent))
	}
	bus := engine.NewEventBus(cfg.mode, busOpts...)

	svcOpts := []engine.ServiceOption{engine.WithLogger(cfg.logger)}
	if cfg.now != nil {
		svcOpts = append(svcOpts, engine.WithClock(cfg.now))
	}
	if cfg.onUnknown != nil || cfg.metrics != nil {
		svcOpts = append(svcOpts, engine.WithUnknownActionHook(func(action string) {
			if cfg.metrics != nil {
				cfg.metrics.UnknownAction(action)
			}
			if cfg.onUnknown != nil {
				cfg.onUnknown(action)
			}
		}))
	}
	if cfg.boards {
		if snaps, ok := cfg.storage.(engine.SnapshotStore); ok {
			schedOpts := append([]leaderboard.SchedulerOption{leaderboard.WithLogger(cfg.logger)}, cfg.boardOpts...)
			if cfg.metrics != nil {
				schedOpts = append(schedOpts, leaderboard.WithObserver(cfg.metrics.ObservePass))
			}
			sched := leaderboard.NewScheduler(cfg.storage, snaps, schedOpts...)
			svcOpts = append(svcOpts, engine.WithLeaderboards(snaps, sched))
		} else {
			cfg.logger.Warn("storage cannot hold leaderboard snapshots; leaderboards disabled")
		}
	}
	svc := engine.NewGamifyService(cfg.storage, bus, svcOpts...)

	if cfg.hub != nil {
		bus.SubscribeAll(cfg.hub.Broadcast)
	}
	if cfg.metrics != nil {
		bus.SubscribeAll(cfg.metrics.OnEvent)
	}
	for _, sink := range cfg.webhooks {
		bus.SubscribeAll(sink.OnEvent)
	}
	return svc
}
