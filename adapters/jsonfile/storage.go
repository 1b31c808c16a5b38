package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"skillforge/core"
	"skillforge/leaderboard"
)

// Store persists entire state to a single JSON file.
// Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory cache for speed
	data document
}

type document struct {
	Users     map[core.UserID]core.UserRecord `json:"users"`
	Daily     map[string]int64                `json:"daily,omitempty"`
	Snapshots map[string]leaderboard.Snapshot `json:"snapshots,omitempty"`
}

func newDocument() document {
	return document{
		Users:     map[core.UserID]core.UserRecord{},
		Daily:     map[string]int64{},
		Snapshots: map[string]leaderboard.Snapshot{},
	}
}

func New(path string) (*Store, error) {
	s := &Store{path: path, data: newDocument()}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	doc := newDocument()
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	if doc.Users == nil {
		doc.Users = map[core.UserID]core.UserRecord{}
	}
	if doc.Daily == nil {
		doc.Daily = map[string]int64{}
	}
	if doc.Snapshots == nil {
		doc.Snapshots = map[string]leaderboard.Snapshot{}
	}
	s.data = doc
	return nil
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) get(user core.UserID) core.UserRecord {
	if rec, ok := s.data.Users[user]; ok {
		return rec.Clone()
	}
	return core.NewUserRecord(user)
}

func (s *Store) Mutate(_ context.Context, user core.UserID, fn func(*core.UserRecord) error) (core.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.get(user)
	if err := fn(&rec); err != nil {
		return core.UserRecord{}, err
	}
	prev, had := s.data.Users[user]
	s.data.Users[user] = rec
	if err := s.persist(); err != nil {
		if had {
			s.data.Users[user] = prev
		} else {
			delete(s.data.Users, user)
		}
		return core.UserRecord{}, err
	}
	return rec.Clone(), nil
}

// AddDaily keeps budgets for the given day only; earlier days are dropped
// on write.
func (s *Store) AddDaily(_ context.Context, user core.UserID, key, day string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := day + "|" + string(user) + "|" + key
	next, err := core.AddSafe(s.data.Daily[k], delta)
	if err != nil {
		return 0, err
	}
	for other := range s.data.Daily {
		if otherDay, _, _ := strings.Cut(other, "|"); otherDay < day {
			delete(s.data.Daily, other)
		}
	}
	s.data.Daily[k] = next
	if err := s.persist(); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) Get(_ context.Context, user core.UserID) (core.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(user), nil
}

func (s *Store) List(_ context.Context) ([]core.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.UserRecord, 0, len(s.data.Users))
	for _, rec := range s.data.Users {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *Store) ReplaceSnapshot(_ context.Context, snap leaderboard.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Snapshots[snap.Key.String()] = snap
	return s.persist()
}

func (s *Store) Snapshot(_ context.Context, key leaderboard.Key) (leaderboard.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.data.Snapshots[key.String()]
	if !ok {
		return leaderboard.Snapshot{}, leaderboard.ErrNoSnapshot
	}
	return snap, nil
}
