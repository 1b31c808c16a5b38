package memory

import (
	"context"
	"sort"
	"sync"

	"skillforge/core"
	"skillforge/leaderboard"
)

// Store is a concurrent in-memory Storage and SnapshotStore implementation.
type Store struct {
	users sync.Map // map[core.UserID]*userRecord

	dailyMu   sync.Mutex
	daily     map[dailyKey]int64
	latestDay string

	snapMu    sync.RWMutex
	snapshots map[leaderboard.Key]leaderboard.Snapshot
}

type userRecord struct {
	mu     sync.Mutex
	state  core.UserRecord
	stored bool
}

type dailyKey struct {
	user core.UserID
	key  string
	day  string
}

func New() *Store {
	return &Store{
		daily:     map[dailyKey]int64{},
		snapshots: map[leaderboard.Key]leaderboard.Snapshot{},
	}
}

func (s *Store) getOrCreate(user core.UserID) *userRecord {
	if v, ok := s.users.Load(user); ok {
		return v.(*userRecord)
	}
	rec := &userRecord{state: core.NewUserRecord(user)}
	actual, _ := s.users.LoadOrStore(user, rec)
	return actual.(*userRecord)
}

// Mutate applies fn to a copy of the record and keeps the copy only when fn
// succeeds. Calls for one user are serialized.
func (s *Store) Mutate(_ context.Context, user core.UserID, fn func(*core.UserRecord) error) (core.UserRecord, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	next := rec.state.Clone()
	if err := fn(&next); err != nil {
		return core.UserRecord{}, err
	}
	rec.state = next
	rec.stored = true
	return next.Clone(), nil
}

func (s *Store) AddDaily(_ context.Context, user core.UserID, key, day string, delta int64) (int64, error) {
	s.dailyMu.Lock()
	defer s.dailyMu.Unlock()
	k := dailyKey{user: user, key: key, day: day}
	next, err := core.AddSafe(s.daily[k], delta)
	if err != nil {
		return 0, err
	}
	s.daily[k] = next
	// Budgets only matter for the latest day; prune once when it advances.
	if day > s.latestDay {
		s.latestDay = day
		for other := range s.daily {
			if other.day < day {
				delete(s.daily, other)
			}
		}
	}
	return next, nil
}

func (s *Store) Get(_ context.Context, user core.UserID) (core.UserRecord, error) {
	v, ok := s.users.Load(user)
	if !ok {
		return core.NewUserRecord(user), nil
	}
	rec := v.(*userRecord)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.state.Clone(), nil
}

// List returns every user that has been written at least once, ordered by id.
func (s *Store) List(_ context.Context) ([]core.UserRecord, error) {
	var out []core.UserRecord
	s.users.Range(func(_, v any) bool {
		rec := v.(*userRecord)
		rec.mu.Lock()
		if rec.stored {
			out = append(out, rec.state.Clone())
		}
		rec.mu.Unlock()
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *Store) ReplaceSnapshot(_ context.Context, snap leaderboard.Snapshot) error {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	s.snapshots[snap.Key] = snap
	return nil
}

func (s *Store) Snapshot(_ context.Context, key leaderboard.Key) (leaderboard.Snapshot, error) {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	snap, ok := s.snapshots[key]
	if !ok {
		return leaderboard.Snapshot{}, leaderboard.ErrNoSnapshot
	}
	return snap, nil
}

var _ interface {
	Mutate(context.Context, core.UserID, func(*core.UserRecord) error) (core.UserRecord, error)
	AddDaily(context.Context, core.UserID, string, string, int64) (int64, error)
	Get(context.Context, core.UserID) (core.UserRecord, error)
	List(context.Context) ([]core.UserRecord, error)
	ReplaceSnapshot(context.Context, leaderboard.Snapshot) error
	Snapshot(context.Context, leaderboard.Key) (leaderboard.Snapshot, error)
} = (*Store)(nil)
