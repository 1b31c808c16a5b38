package leaderboard

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"skillforge/core"
)

// Period labels a snapshot. Scores are computed over cumulative counters;
// any windowing happens in the counter store.
type Period string

const (
	PeriodAllTime Period = "all_time"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Periods lists every supported period.
var Periods = []Period{PeriodAllTime, PeriodWeekly, PeriodMonthly}

// Valid reports whether p is a supported period.
func (p Period) Valid() bool {
	for _, k := range Periods {
		if k == p {
			return true
		}
	}
	return false
}

// Key identifies one board.
type Key struct {
	Period   Period   `json:"period"`
	Category Category `json:"category"`
}

func (k Key) String() string { return fmt.Sprintf("%s:%s", k.Period, k.Category) }

// ParseKey validates a period and category pair.
func ParseKey(period, category string) (Key, error) {
	k := Key{Period: Period(period), Category: Category(category)}
	if !k.Period.Valid() {
		return Key{}, fmt.Errorf("unknown leaderboard period %q", period)
	}
	if !k.Category.Valid() {
		return Key{}, fmt.Errorf("unknown leaderboard category %q", category)
	}
	return k, nil
}

// Row is one ranked line of a snapshot.
type Row struct {
	UserID   core.UserID `json:"user_id"`
	Score    float64     `json:"score"`
	Rank     int         `json:"rank"`
	Period   Period      `json:"period"`
	Category Category    `json:"category"`
	TakenAt  time.Time   `json:"taken_at"`
}

// Snapshot is a complete ranked batch for one key. Snapshots replace each
// other wholesale; rows are never patched.
type Snapshot struct {
	ID      string    `json:"id"`
	Key     Key       `json:"key"`
	TakenAt time.Time `json:"taken_at"`
	Rows    []Row     `json:"rows"`
}

// Build scores every record for key and ranks them 1..n by score
// descending, ties broken by ascending user id.
func Build(key Key, at time.Time, records []core.UserRecord) Snapshot {
	board := NewSkipList()
	for _, r := range records {
		board.Update(r.UserID, ScoreFor(key.Category, StatsFromCounters(r.Counters)))
	}
	return fromBoard(key, at.UTC(), board)
}

func fromBoard(key Key, at time.Time, board Board) Snapshot {
	ordered := board.TopN(-1)
	rows := make([]Row, len(ordered))
	for i, e := range ordered {
		rows[i] = Row{UserID: e.User, Score: e.Score, Rank: i + 1, Period: key.Period, Category: key.Category, TakenAt: at}
	}
	return Snapshot{ID: uuid.NewString(), Key: key, TakenAt: at, Rows: rows}
}

// Top returns up to n leading rows; n <= 0 returns all.
func (s Snapshot) Top(n int) []Row {
	if n <= 0 || n >= len(s.Rows) {
		return s.Rows
	}
	return s.Rows[:n]
}

// Find returns a user's row.
func (s Snapshot) Find(user core.UserID) (Row, bool) {
	for _, r := range s.Rows {
		if r.UserID == user {
			return r, true
		}
	}
	return Row{}, false
}

// ErrNoSnapshot is returned by snapshot stores before a board's first pass.
var ErrNoSnapshot = errors.New("leaderboard snapshot not found")
