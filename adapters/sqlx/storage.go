// Package sqlx stores user records, daily budgets and leaderboard snapshots
// in a relational database through jmoiron/sqlx. PostgreSQL, MySQL and
// SQLite are supported.
package sqlx

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"skillforge/core"
	"skillforge/leaderboard"
)

// Driver selects the SQL dialect.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite"
)

func init() {
	sqlx.BindDriver(string(DriverSQLite), sqlx.QUESTION)
}

// Config holds database connection settings.
type Config struct {
	Driver          Driver        `json:"driver" toml:"driver" env:"SKILLFORGE_STORAGE_SQL_DRIVER"`
	DSN             string        `json:"dsn" toml:"dsn" env:"SKILLFORGE_STORAGE_SQL_DSN"`
	MaxOpenConns    int           `json:"max_open_conns" toml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" toml:"conn_max_lifetime"`
}

// DefaultConfig returns pool defaults for driver with an empty DSN.
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Store implements the engine storage interfaces on top of sqlx.
type Store struct {
	db     *sqlx.DB
	driver Driver
}

// New opens and pings the database and creates the schema if needed.
func New(ctx context.Context, cfg Config) (*Store, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}
	db, err := sqlx.Open(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite {
		// SQLite allows one writer; a single connection serializes transactions.
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	s := NewWithDB(db, cfg.Driver)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing handle (useful for testing).
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

func (s *Store) Close() error { return s.db.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS user_records (
		user_id VARCHAR(191) NOT NULL PRIMARY KEY,
		counters TEXT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_achievements (
		user_id VARCHAR(191) NOT NULL,
		achievement_id VARCHAR(191) NOT NULL,
		unlocked_at BIGINT NOT NULL,
		PRIMARY KEY (user_id, achievement_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_badges (
		user_id VARCHAR(191) NOT NULL,
		badge VARCHAR(191) NOT NULL,
		PRIMARY KEY (user_id, badge)
	)`,
	`CREATE TABLE IF NOT EXISTS daily_budgets (
		user_id VARCHAR(191) NOT NULL,
		budget_key VARCHAR(191) NOT NULL,
		budget_day VARCHAR(10) NOT NULL,
		used BIGINT NOT NULL,
		PRIMARY KEY (user_id, budget_key, budget_day)
	)`,
	`CREATE TABLE IF NOT EXISTS leaderboard_snapshots (
		period VARCHAR(32) NOT NULL,
		category VARCHAR(32) NOT NULL,
		snapshot_id VARCHAR(64) NOT NULL,
		taken_at BIGINT NOT NULL,
		PRIMARY KEY (period, category)
	)`,
	`CREATE TABLE IF NOT EXISTS leaderboard_rows (
		period VARCHAR(32) NOT NULL,
		category VARCHAR(32) NOT NULL,
		row_rank INTEGER NOT NULL,
		user_id VARCHAR(191) NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (period, category, row_rank)
	)`,
}

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// insertIgnore builds an INSERT that silently skips existing keys.
func (s *Store) insertIgnore(table, columns, values string) string {
	if s.driver == DriverMySQL {
		return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)", table, columns, values)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING", table, columns, values)
}

func (s *Store) forUpdate() string {
	if s.driver == DriverSQLite {
		return ""
	}
	return " FOR UPDATE"
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(string) string
}

type recordRow struct {
	UserID    string `db:"user_id"`
	Counters  string `db:"counters"`
	UpdatedAt int64  `db:"updated_at"`
}

type achievementRow struct {
	UserID        string `db:"user_id"`
	AchievementID string `db:"achievement_id"`
	UnlockedAt    int64  `db:"unlocked_at"`
}

type badgeRow struct {
	UserID string `db:"user_id"`
	Badge  string `db:"badge"`
}

type snapshotRow struct {
	Period   string  `db:"period"`
	Category string  `db:"category"`
	Rank     int     `db:"row_rank"`
	UserID   string  `db:"user_id"`
	Score    float64 `db:"score"`
}

func encodeCounters(c core.Counters) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode counters: %w", err)
	}
	return string(b), nil
}

func (r recordRow) decode() (core.UserRecord, error) {
	rec := core.NewUserRecord(core.UserID(r.UserID))
	if err := json.Unmarshal([]byte(r.Counters), &rec.Counters); err != nil {
		return core.UserRecord{}, fmt.Errorf("decode counters for %s: %w", r.UserID, err)
	}
	rec.Updated = time.Unix(0, r.UpdatedAt).UTC()
	return rec, nil
}

// Mutate locks the user's row, applies fn and writes back the counters and
// any achievements or badges fn added, all in one transaction.
func (s *Store) Mutate(ctx context.Context, user core.UserID, fn func(*core.UserRecord) error) (core.UserRecord, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.UserRecord{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	initial, err := encodeCounters(core.NewUserRecord(user).Counters)
	if err != nil {
		return core.UserRecord{}, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(s.insertIgnore("user_records", "user_id, counters, updated_at", "?, ?, ?")),
		string(user), initial, time.Now().UnixNano()); err != nil {
		return core.UserRecord{}, fmt.Errorf("ensure user row: %w", err)
	}

	rec, err := s.load(ctx, tx, user, s.forUpdate())
	if err != nil {
		return core.UserRecord{}, err
	}
	before := rec.Clone()
	if err := fn(&rec); err != nil {
		return core.UserRecord{}, err
	}

	counters, err := encodeCounters(rec.Counters)
	if err != nil {
		return core.UserRecord{}, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE user_records SET counters = ?, updated_at = ? WHERE user_id = ?`),
		counters, rec.Updated.UnixNano(), string(user)); err != nil {
		return core.UserRecord{}, fmt.Errorf("update user row: %w", err)
	}
	for id, at := range rec.Achievements {
		if _, had := before.Achievements[id]; had {
			continue
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(s.insertIgnore("user_achievements", "user_id, achievement_id, unlocked_at", "?, ?, ?")),
			string(user), string(id), at.UnixNano()); err != nil {
			return core.UserRecord{}, fmt.Errorf("insert achievement %s: %w", id, err)
		}
	}
	for b := range rec.Badges {
		if _, had := before.Badges[b]; had {
			continue
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(s.insertIgnore("user_badges", "user_id, badge", "?, ?")),
			string(user), string(b)); err != nil {
			return core.UserRecord{}, fmt.Errorf("insert badge %s: %w", b, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return core.UserRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

func (s *Store) load(ctx context.Context, q queryer, user core.UserID, suffix string) (core.UserRecord, error) {
	var row recordRow
	err := sqlx.GetContext(ctx, q, &row, q.Rebind(`SELECT user_id, counters, updated_at FROM user_records WHERE user_id = ?`+suffix), string(user))
	if errors.Is(err, sql.ErrNoRows) {
		return core.NewUserRecord(user), nil
	}
	if err != nil {
		return core.UserRecord{}, fmt.Errorf("load user %s: %w", user, err)
	}
	rec, err := row.decode()
	if err != nil {
		return core.UserRecord{}, err
	}

	var achievements []achievementRow
	if err := sqlx.SelectContext(ctx, q, &achievements,
		q.Rebind(`SELECT user_id, achievement_id, unlocked_at FROM user_achievements WHERE user_id = ?`), string(user)); err != nil {
		return core.UserRecord{}, fmt.Errorf("load achievements: %w", err)
	}
	for _, a := range achievements {
		rec.Achievements[core.AchievementID(a.AchievementID)] = time.Unix(0, a.UnlockedAt).UTC()
	}

	var badges []badgeRow
	if err := sqlx.SelectContext(ctx, q, &badges,
		q.Rebind(`SELECT user_id, badge FROM user_badges WHERE user_id = ?`), string(user)); err != nil {
		return core.UserRecord{}, fmt.Errorf("load badges: %w", err)
	}
	for _, b := range badges {
		rec.Badges[core.Badge(b.Badge)] = struct{}{}
	}
	return rec, nil
}

// AddDaily increments a per-day budget and drops the user's budgets for
// earlier days.
func (s *Store) AddDaily(ctx context.Context, user core.UserID, key, day string, delta int64) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM daily_budgets WHERE user_id = ? AND budget_day < ?`),
		string(user), day); err != nil {
		return 0, fmt.Errorf("prune daily budgets: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(s.insertIgnore("daily_budgets", "user_id, budget_key, budget_day, used", "?, ?, ?, 0")),
		string(user), key, day); err != nil {
		return 0, fmt.Errorf("ensure daily budget: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE daily_budgets SET used = used + ? WHERE user_id = ? AND budget_key = ? AND budget_day = ?`),
		delta, string(user), key, day); err != nil {
		return 0, fmt.Errorf("add daily budget: %w", err)
	}
	var used int64
	if err := tx.GetContext(ctx, &used, tx.Rebind(`SELECT used FROM daily_budgets WHERE user_id = ? AND budget_key = ? AND budget_day = ?`),
		string(user), key, day); err != nil {
		return 0, fmt.Errorf("read daily budget: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return used, nil
}

func (s *Store) Get(ctx context.Context, user core.UserID) (core.UserRecord, error) {
	return s.load(ctx, s.db, user, "")
}

// List loads every stored record ordered by user id.
func (s *Store) List(ctx context.Context) ([]core.UserRecord, error) {
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT user_id, counters, updated_at FROM user_records ORDER BY user_id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]core.UserRecord, 0, len(rows))
	index := make(map[string]int, len(rows))
	for _, r := range rows {
		rec, err := r.decode()
		if err != nil {
			return nil, err
		}
		index[r.UserID] = len(out)
		out = append(out, rec)
	}

	var achievements []achievementRow
	if err := s.db.SelectContext(ctx, &achievements, `SELECT user_id, achievement_id, unlocked_at FROM user_achievements`); err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	for _, a := range achievements {
		if i, ok := index[a.UserID]; ok {
			out[i].Achievements[core.AchievementID(a.AchievementID)] = time.Unix(0, a.UnlockedAt).UTC()
		}
	}
	var badges []badgeRow
	if err := s.db.SelectContext(ctx, &badges, `SELECT user_id, badge FROM user_badges`); err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	for _, b := range badges {
		if i, ok := index[b.UserID]; ok {
			out[i].Badges[core.Badge(b.Badge)] = struct{}{}
		}
	}
	return out, nil
}

// ReplaceSnapshot swaps a board's rows for snap in one transaction.
func (s *Store) ReplaceSnapshot(ctx context.Context, snap leaderboard.Snapshot) error {
	period, category := string(snap.Key.Period), string(snap.Key.Category)
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM leaderboard_rows WHERE period = ? AND category = ?`), period, category); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM leaderboard_snapshots WHERE period = ? AND category = ?`), period, category); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO leaderboard_snapshots (period, category, snapshot_id, taken_at) VALUES (?, ?, ?, ?)`),
		period, category, snap.ID, snap.TakenAt.UnixNano()); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if len(snap.Rows) > 0 {
		rows := make([]snapshotRow, len(snap.Rows))
		for i, r := range snap.Rows {
			rows[i] = snapshotRow{Period: period, Category: category, Rank: r.Rank, UserID: string(r.UserID), Score: r.Score}
		}
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO leaderboard_rows (period, category, row_rank, user_id, score) VALUES (:period, :category, :row_rank, :user_id, :score)`,
			rows); err != nil {
			return fmt.Errorf("insert rows: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) Snapshot(ctx context.Context, key leaderboard.Key) (leaderboard.Snapshot, error) {
	var head struct {
		ID      string `db:"snapshot_id"`
		TakenAt int64  `db:"taken_at"`
	}
	err := s.db.GetContext(ctx, &head, s.db.Rebind(`SELECT snapshot_id, taken_at FROM leaderboard_snapshots WHERE period = ? AND category = ?`),
		string(key.Period), string(key.Category))
	if errors.Is(err, sql.ErrNoRows) {
		return leaderboard.Snapshot{}, leaderboard.ErrNoSnapshot
	}
	if err != nil {
		return leaderboard.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	var rows []snapshotRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT period, category, row_rank, user_id, score FROM leaderboard_rows WHERE period = ? AND category = ? ORDER BY row_rank`),
		string(key.Period), string(key.Category)); err != nil {
		return leaderboard.Snapshot{}, fmt.Errorf("load rows: %w", err)
	}
	taken := time.Unix(0, head.TakenAt).UTC()
	snap := leaderboard.Snapshot{ID: head.ID, Key: key, TakenAt: taken, Rows: make([]leaderboard.Row, len(rows))}
	for i, r := range rows {
		snap.Rows[i] = leaderboard.Row{UserID: core.UserID(r.UserID), Score: r.Score, Rank: r.Rank, Period: key.Period, Category: key.Category, TakenAt: taken}
	}
	return snap, nil
}
