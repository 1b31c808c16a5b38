package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillforge/core"
	"skillforge/leaderboard"
)

// newTestClient spins up a miniredis server and returns it with a client.
func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestStore_Mutate(t *testing.T) {
	_, client := newTestClient(t)
	store := NewWithClient(client)
	ctx := context.Background()

	rec, err := store.Mutate(ctx, "test-user", func(r *core.UserRecord) error {
		r.Counters.TotalPosts = 3
		r.Counters.ExperiencePoints = 30
		r.Achievements["first_post"] = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		r.Badges["first_post"] = struct{}{}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Counters.TotalPosts)

	got, err := store.Get(ctx, "test-user")
	require.NoError(t, err)
	assert.Equal(t, int64(30), got.Counters.ExperiencePoints)
	assert.Contains(t, got.Achievements, core.AchievementID("first_post"))
	assert.Contains(t, got.Badges, core.Badge("first_post"))
}

func TestStore_MutateErrorLeavesRecord(t *testing.T) {
	_, client := newTestClient(t)
	store := NewWithClient(client)
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := store.Mutate(ctx, "u", func(r *core.UserRecord) error {
		r.Counters.ExperiencePoints = 99
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Get(ctx, "u")
	require.NoError(t, err)
	assert.Zero(t, got.Counters.ExperiencePoints)
	assert.Equal(t, int64(1), got.Counters.Level)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_ConcurrentMutate(t *testing.T) {
	_, client := newTestClient(t)
	store := NewWithClient(client)
	store.maxRetries = 1000
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Mutate(ctx, "u", func(r *core.UserRecord) error {
				r.Counters.TotalHelpGiven++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Counters.TotalHelpGiven)
}

func TestStore_AddDaily(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewWithClient(client)
	ctx := context.Background()

	total, err := store.AddDaily(ctx, "u", "xp:create_post", "2026-01-01", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
	total, err = store.AddDaily(ctx, "u", "xp:create_post", "2026-01-01", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(20), total)

	assert.Equal(t, dailyTTL, mr.TTL(userDailyKey("u", "xp:create_post", "2026-01-01")))

	mr.FastForward(dailyTTL + time.Second)
	total, err = store.AddDaily(ctx, "u", "xp:create_post", "2026-01-01", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
}

func TestStore_List(t *testing.T) {
	_, client := newTestClient(t)
	store := NewWithClient(client)
	ctx := context.Background()

	for _, u := range []core.UserID{"bob", "alice"} {
		_, err := store.Mutate(ctx, u, func(r *core.UserRecord) error {
			r.Counters.ExperiencePoints = 10
			return nil
		})
		require.NoError(t, err)
	}
	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, core.UserID("alice"), list[0].UserID)
	assert.Equal(t, core.UserID("bob"), list[1].UserID)
}

func TestStore_Snapshots(t *testing.T) {
	_, client := newTestClient(t)
	store := NewWithClient(client)
	ctx := context.Background()
	key := leaderboard.Key{Period: leaderboard.PeriodWeekly, Category: leaderboard.CategoryXP}

	_, err := store.Snapshot(ctx, key)
	require.ErrorIs(t, err, leaderboard.ErrNoSnapshot)

	rec := core.NewUserRecord("a")
	rec.Counters.ExperiencePoints = 42
	snap := leaderboard.Build(key, time.Now(), []core.UserRecord{rec})
	require.NoError(t, store.ReplaceSnapshot(ctx, snap))

	got, err := store.Snapshot(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, float64(42), got.Rows[0].Score)
}

func TestNew_ConnectionFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.DialTimeout = 100 * time.Millisecond
	_, err := New(cfg)
	assert.Error(t, err)
}
