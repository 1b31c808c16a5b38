package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillforge/core"
)

func TestOnEvent(t *testing.T) {
	m := New(false)
	ctx := context.Background()
	m.OnEvent(ctx, core.NewXPAwarded("u", "create_post", 10, 10))
	m.OnEvent(ctx, core.NewXPAwarded("u", "create_post", 20, 30))
	m.OnEvent(ctx, core.NewCurrencyAwarded("u", "create_post", core.MetricPersonalCurrency, 2, 2))
	m.OnEvent(ctx, core.NewLevelUp("u", 2, "Curious Explorer"))
	m.OnEvent(ctx, core.NewAchievementUnlocked("u", "first_post", time.Now()))

	assert.Equal(t, float64(30), testutil.ToFloat64(m.xp))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.currency.WithLabelValues(string(core.MetricPersonalCurrency))))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.levelUps.WithLabelValues("2")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.achievements.WithLabelValues("first_post")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.events.WithLabelValues(string(core.EventXPAwarded))))
}

func TestObservePass(t *testing.T) {
	m := New(false)
	m.ObservePass(50*time.Millisecond, nil)
	m.ObservePass(10*time.Millisecond, errors.New("sink down"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.passFailures))
	assert.Greater(t, testutil.ToFloat64(m.lastPass), float64(0))
	assert.Equal(t, 1, testutil.CollectAndCount(m.passDuration))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(true)
	m.UnknownAction("teleport")
	m.DroppedEvent(core.Event{})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `skillforge_unknown_actions_total{action="teleport"} 1`))
	assert.Contains(t, body, "skillforge_events_dropped_total 1")
	assert.Contains(t, body, "go_goroutines")
}
