package sqlx_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "skillforge/adapters/sqlx"
	"skillforge/core"
	"skillforge/leaderboard"
)

func newSQLiteStore(t *testing.T) *storage.Store {
	t.Helper()
	cfg := storage.DefaultConfig(storage.DriverSQLite)
	cfg.DSN = filepath.Join(t.TempDir(), "skillforge.db")
	store, err := storage.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLite_RoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	unlocked := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.Mutate(ctx, "alice", func(r *core.UserRecord) error {
		r.Counters.TotalPosts = 1
		r.Counters.ExperiencePoints = 30
		r.Achievements["first_post"] = unlocked
		r.Badges["first_post"] = struct{}{}
		return nil
	})
	require.NoError(t, err)

	_, err = store.Mutate(ctx, "alice", func(r *core.UserRecord) error {
		require.Contains(t, r.Achievements, core.AchievementID("first_post"))
		r.Counters.TotalPosts++
		return nil
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Counters.TotalPosts)
	assert.Equal(t, int64(30), got.Counters.ExperiencePoints)
	assert.True(t, got.Achievements["first_post"].Equal(unlocked))
	assert.Contains(t, got.Badges, core.Badge("first_post"))

	missing, err := store.Get(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(1), missing.Counters.Level)
}

func TestSQLite_AddDaily(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	used, err := store.AddDaily(ctx, "u", "xp:create_post", "2026-01-01", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), used)
	used, err = store.AddDaily(ctx, "u", "xp:create_post", "2026-01-01", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(20), used)
	used, err = store.AddDaily(ctx, "u", "xp:create_post", "2026-01-02", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), used)
}

func TestSQLite_ListAndSnapshots(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	for _, u := range []core.UserID{"bob", "alice"} {
		_, err := store.Mutate(ctx, u, func(r *core.UserRecord) error {
			r.Counters.ExperiencePoints = int64(len(u)) * 100
			r.Badges["starter"] = struct{}{}
			return nil
		})
		require.NoError(t, err)
	}
	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, core.UserID("alice"), list[0].UserID)
	assert.Contains(t, list[1].Badges, core.Badge("starter"))

	key := leaderboard.Key{Period: leaderboard.PeriodAllTime, Category: leaderboard.CategoryXP}
	first := leaderboard.Build(key, time.Now(), list)
	require.NoError(t, store.ReplaceSnapshot(ctx, first))
	second := leaderboard.Build(key, time.Now(), list[:1])
	require.NoError(t, store.ReplaceSnapshot(ctx, second))

	got, err := store.Snapshot(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, core.UserID("alice"), got.Rows[0].UserID)
	assert.Equal(t, float64(500), got.Rows[0].Score)
	assert.Equal(t, 1, got.Rows[0].Rank)
}
