package sqlx_test

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	storage "skillforge/adapters/sqlx"
	"skillforge/core"
	"skillforge/leaderboard"
)

func newMockStore(t *testing.T, driver storage.Driver) (*storage.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	xdb := storage.NewWithDB(libsqlx.NewDb(db, string(driver)), driver)
	cleanup := func() {
		_ = db.Close()
	}
	return xdb, mock, cleanup
}

func expectLoad(mock sqlmock.Sqlmock, user string, counters string) {
	mock.ExpectQuery(`SELECT user_id, counters, updated_at FROM user_records WHERE user_id = .+ FOR UPDATE`).
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "counters", "updated_at"}).AddRow(user, counters, int64(0)))
	mock.ExpectQuery(`SELECT user_id, achievement_id, unlocked_at FROM user_achievements`).
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "achievement_id", "unlocked_at"}))
	mock.ExpectQuery(`SELECT user_id, badge FROM user_badges`).
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "badge"}))
}

func TestSQLMock_Mutate_Postgres(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	ctx := context.Background()
	user := "u1"

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO user_records .+ ON CONFLICT DO NOTHING`).
		WithArgs(user, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectLoad(mock, user, `{"total_posts":0,"level":1}`)
	mock.ExpectExec(`UPDATE user_records SET counters`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), user).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_achievements .+ ON CONFLICT DO NOTHING`).
		WithArgs(user, "first_post", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_badges .+ ON CONFLICT DO NOTHING`).
		WithArgs(user, "first_post").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec, err := store.Mutate(ctx, core.UserID(user), func(r *core.UserRecord) error {
		r.Counters.TotalPosts++
		r.Achievements["first_post"] = time.Now()
		r.Badges["first_post"] = struct{}{}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), rec.Counters.TotalPosts)
	require.Equal(t, int64(1), rec.Counters.Level)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Mutate_MySQLUsesInsertIgnore(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverMySQL)
	defer cleanup()

	user := "u1"
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT IGNORE INTO user_records`).
		WithArgs(user, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	expectLoad(mock, user, `{"experience_points":40,"level":1}`)
	mock.ExpectExec(`UPDATE user_records SET counters`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), user).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec, err := store.Mutate(context.Background(), core.UserID(user), func(r *core.UserRecord) error {
		r.Counters.ExperiencePoints += 10
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(50), rec.Counters.ExperiencePoints)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Mutate_RollbackOnError(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	user := "u1"
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO user_records`).
		WithArgs(user, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectLoad(mock, user, `{"level":1}`)
	mock.ExpectRollback()

	boom := errors.New("boom")
	_, err := store.Mutate(context.Background(), core.UserID(user), func(*core.UserRecord) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AddDaily(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	user, key, day := "u1", "xp:create_post", "2026-01-01"
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM daily_budgets`).
		WithArgs(user, day).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO daily_budgets`).
		WithArgs(user, key, day).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE daily_budgets SET used = used \+`).
		WithArgs(int64(10), user, key, day).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT used FROM daily_budgets`).
		WithArgs(user, key, day).
		WillReturnRows(sqlmock.NewRows([]string{"used"}).AddRow(int64(20)))
	mock.ExpectCommit()

	used, err := store.AddDaily(context.Background(), core.UserID(user), key, day, 10)
	require.NoError(t, err)
	require.Equal(t, int64(20), used)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Snapshot_NotFound(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	mock.ExpectQuery(`SELECT snapshot_id, taken_at FROM leaderboard_snapshots`).
		WithArgs("weekly", "xp").
		WillReturnRows(sqlmock.NewRows([]string{"snapshot_id", "taken_at"}))

	_, err := store.Snapshot(context.Background(), leaderboard.Key{Period: leaderboard.PeriodWeekly, Category: leaderboard.CategoryXP})
	require.ErrorIs(t, err, leaderboard.ErrNoSnapshot)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_ReplaceSnapshot(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	key := leaderboard.Key{Period: leaderboard.PeriodAllTime, Category: leaderboard.CategoryOverall}
	a, b := core.NewUserRecord("a"), core.NewUserRecord("b")
	a.Counters.ExperiencePoints = 10
	snap := leaderboard.Build(key, time.Now(), []core.UserRecord{a, b})

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM leaderboard_rows`).WithArgs("all_time", "overall").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM leaderboard_snapshots`).WithArgs("all_time", "overall").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO leaderboard_snapshots`).
		WithArgs("all_time", "overall", snap.ID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO leaderboard_rows`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, store.ReplaceSnapshot(context.Background(), snap))
	require.NoError(t, mock.ExpectationsWereMet())
}
