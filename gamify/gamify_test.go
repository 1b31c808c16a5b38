package gamify

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	mem "skillforge/adapters/memory"
	sqlxAdapter "skillforge/adapters/sqlx"
	"skillforge/config"
	"skillforge/core"
	"skillforge/engine"
	"skillforge/leaderboard"
	"skillforge/metrics"
	"skillforge/realtime"
)

func TestNewDefaultsAndOptions(t *testing.T) {
	hub := realtime.NewHub()
	svc := New(
		WithRealtime(hub),
		WithStorage(mem.New()),
		WithDispatchMode(engine.DispatchSync),
	)
	defer svc.Close()

	_, ch := hub.SubscribeFiltered(16, realtime.Filter{Types: []core.EventType{core.EventXPAwarded}})

	out, err := svc.RecordAction(context.Background(), "alice", "create_post")
	if err != nil || out.XP != 30 {
		t.Fatalf("record action xp=%d err=%v", out.XP, err)
	}

	ev := <-ch
	if ev.UserID != "alice" || ev.Type != core.EventXPAwarded || ev.Delta != 10 || ev.Action != "create_post" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestInMemoryFallback(t *testing.T) {
	svc := New(WithDispatchMode(engine.DispatchSync))
	defer svc.Close()
	if _, err := svc.RecordAction(context.Background(), "bob", "add_comment"); err != nil {
		t.Fatalf("fallback record action: %v", err)
	}
	rec, err := svc.State(context.Background(), "bob")
	if err != nil {
		t.Fatalf("fallback state: %v", err)
	}
	if rec.Counters.ExperiencePoints == 0 || rec.Counters.TotalComments != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if svc.Scheduler() != nil {
		t.Fatalf("leaderboards should be off by default")
	}
}

func TestMetricsWiring(t *testing.T) {
	m := metrics.New(false)
	var unknown []string
	svc := New(
		WithDispatchMode(engine.DispatchSync),
		WithMetrics(m),
		WithUnknownActionHook(func(a string) { unknown = append(unknown, a) }),
	)
	defer svc.Close()

	ctx := context.Background()
	if _, err := svc.RecordAction(ctx, "carol", "create_post"); err != nil {
		t.Fatalf("record action: %v", err)
	}
	if _, err := svc.RecordAction(ctx, "carol", "teleport"); err != nil {
		t.Fatalf("unknown action: %v", err)
	}
	if len(unknown) != 1 || unknown[0] != "teleport" {
		t.Fatalf("hook not called: %v", unknown)
	}

	if got := counterValue(t, m, "skillforge_xp_awarded_total"); got != 30 {
		t.Fatalf("xp metric = %v, want 30", got)
	}
	if got := counterValue(t, m, "skillforge_unknown_actions_total"); got != 1 {
		t.Fatalf("unknown metric = %v, want 1", got)
	}
}

func TestLeaderboardsWiring(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	key := leaderboard.Key{Period: leaderboard.PeriodWeekly, Category: leaderboard.CategoryOverall}
	svc := New(
		WithDispatchMode(engine.DispatchSync),
		WithClock(func() time.Time { return now }),
		WithLeaderboards(leaderboard.WithKeys(key)),
	)
	defer svc.Close()
	if svc.Scheduler() == nil {
		t.Fatalf("expected scheduler with memory storage")
	}

	ctx := context.Background()
	if _, err := svc.RecordAction(ctx, "dave", "create_post"); err != nil {
		t.Fatalf("record action: %v", err)
	}
	if _, err := svc.RecomputeLeaderboards(ctx); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	snap, err := svc.Leaderboard(ctx, key)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(snap.Rows) != 1 || snap.Rows[0].UserID != "dave" || snap.Rows[0].Rank != 1 {
		t.Fatalf("unexpected rows: %+v", snap.Rows)
	}
}

func counterValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig().Storage

	s, err := OpenStorage(ctx, cfg)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := s.(*mem.Store); !ok {
		t.Fatalf("expected memory store, got %T", s)
	}

	cfg.Adapter = "sql"
	cfg.SQL = sqlxAdapter.DefaultConfig(sqlxAdapter.DriverSQLite)
	cfg.SQL.DSN = filepath.Join(t.TempDir(), "skillforge.db")
	s, err = OpenStorage(ctx, cfg)
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer s.(io.Closer).Close()

	svc := New(WithStorage(s), WithDispatchMode(engine.DispatchSync))
	defer svc.Close()
	out, err := svc.RecordAction(ctx, "erin", "create_post")
	if err != nil || out.XP != 30 {
		t.Fatalf("record on sqlite: %+v err=%v", out, err)
	}

	cfg.Adapter = "tape"
	if _, err := OpenStorage(ctx, cfg); err == nil {
		t.Fatal("expected error for unknown adapter")
	}
}
