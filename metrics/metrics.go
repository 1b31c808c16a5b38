// Package metrics exposes Prometheus counters for awarded progression.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"skillforge/core"
)

const namespace = "skillforge"

// Metrics holds the collectors registered for one process.
type Metrics struct {
	registry *prometheus.Registry

	events         *prometheus.CounterVec
	xp             prometheus.Counter
	currency       *prometheus.CounterVec
	levelUps       *prometheus.CounterVec
	achievements   *prometheus.CounterVec
	unknownActions *prometheus.CounterVec
	droppedEvents  prometheus.Counter
	passDuration   prometheus.Histogram
	passFailures   prometheus.Counter
	lastPass       prometheus.Gauge
}

// New registers every collector on a fresh registry. collectSystem adds the
// Go runtime and process collectors.
func New(collectSystem bool) *Metrics {
	reg := prometheus.NewRegistry()
	if collectSystem {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Domain events published, by type.",
		}, []string{"type"}),
		xp: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "xp_awarded_total",
			Help:      "Experience points awarded.",
		}),
		currency: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "currency_awarded_total",
			Help:      "Currency awarded, by kind.",
		}, []string{"kind"}),
		levelUps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_ups_total",
			Help:      "Levels reached, by level.",
		}, []string{"level"}),
		achievements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievements_unlocked_total",
			Help:      "Achievements unlocked, by id.",
		}, []string{"achievement"}),
		unknownActions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_actions_total",
			Help:      "Actions ignored because they are not in the catalog.",
		}, []string{"action"}),
		droppedEvents: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped by the async bus.",
		}),
		passDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "leaderboard_pass_duration_seconds",
			Help:      "Duration of leaderboard scoring passes.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		passFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaderboard_pass_failures_total",
			Help:      "Leaderboard passes that failed to publish every board.",
		}),
		lastPass: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "leaderboard_last_success_timestamp_seconds",
			Help:      "Unix time of the last fully successful leaderboard pass.",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// OnEvent records one bus event. It has the bus handler signature.
func (m *Metrics) OnEvent(_ context.Context, ev core.Event) {
	m.events.WithLabelValues(string(ev.Type)).Inc()
	switch ev.Type {
	case core.EventXPAwarded:
		m.xp.Add(float64(ev.Delta))
	case core.EventCurrencyAwarded:
		m.currency.WithLabelValues(string(ev.Metric)).Add(float64(ev.Delta))
	case core.EventLevelUp:
		m.levelUps.WithLabelValues(strconv.FormatInt(ev.Level, 10)).Inc()
	case core.EventAchievementUnlocked:
		m.achievements.WithLabelValues(string(ev.Achievement)).Inc()
	}
}

// UnknownAction counts an ignored action.
func (m *Metrics) UnknownAction(action string) {
	m.unknownActions.WithLabelValues(action).Inc()
}

// DroppedEvent counts an event the bus could not queue.
func (m *Metrics) DroppedEvent(core.Event) {
	m.droppedEvents.Inc()
}

// ObservePass records a leaderboard pass. It has the scheduler observer
// signature.
func (m *Metrics) ObservePass(d time.Duration, err error) {
	m.passDuration.Observe(d.Seconds())
	if err != nil {
		m.passFailures.Inc()
		return
	}
	m.lastPass.SetToCurrentTime()
}
