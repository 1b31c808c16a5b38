package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"skillforge/core"
)

// Source lists every user record for a scoring pass.
type Source interface {
	List(ctx context.Context) ([]core.UserRecord, error)
}

// Sink publishes a finished snapshot, replacing the previous one for its key.
type Sink interface {
	ReplaceSnapshot(ctx context.Context, snap Snapshot) error
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithKeys sets the boards regenerated on every pass.
func WithKeys(keys ...Key) SchedulerOption {
	return func(s *Scheduler) {
		if len(keys) > 0 {
			s.keys = append([]Key(nil), keys...)
		}
	}
}

// WithInterval sets the time between passes.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithObserver receives the duration and outcome of every pass.
func WithObserver(fn func(time.Duration, error)) SchedulerOption {
	return func(s *Scheduler) { s.observe = fn }
}

// Scheduler regenerates leaderboard snapshots from a full read of user
// records. A pass builds every snapshot before publishing any of them, so a
// failed read or build publishes nothing.
type Scheduler struct {
	source   Source
	sink     Sink
	keys     []Key
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	observe  func(time.Duration, error)

	mu sync.Mutex // serialises passes
}

// DefaultKeys is every period crossed with every category.
func DefaultKeys() []Key {
	keys := make([]Key, 0, len(Periods)*len(Categories))
	for _, p := range Periods {
		for _, c := range Categories {
			keys = append(keys, Key{Period: p, Category: c})
		}
	}
	return keys
}

func NewScheduler(source Source, sink Sink, opts ...SchedulerOption) *Scheduler {
	if source == nil || sink == nil {
		panic("NewScheduler requires non-nil source and sink")
	}
	s := &Scheduler{
		source:   source,
		sink:     sink,
		keys:     DefaultKeys(),
		interval: time.Hour,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Keys returns the boards this scheduler maintains.
func (s *Scheduler) Keys() []Key { return append([]Key(nil), s.keys...) }

// RunOnce performs one scoring pass and returns the published snapshots.
// Every board is built from the same record listing, then published on its
// own: a board whose ReplaceSnapshot fails keeps its previous snapshot while
// the others are still replaced, and the failures are joined into err.
func (s *Scheduler) RunOnce(ctx context.Context) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	snaps, err := s.pass(ctx)
	if s.observe != nil {
		s.observe(time.Since(start), err)
	}
	return snaps, err
}

func (s *Scheduler) pass(ctx context.Context) ([]Snapshot, error) {
	records, err := s.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list user records: %w", err)
	}
	at := s.now().UTC()
	snaps := make([]Snapshot, 0, len(s.keys))
	for _, k := range s.keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		snaps = append(snaps, Build(k, at, records))
	}

	var errs []error
	published := make([]Snapshot, 0, len(snaps))
	for _, snap := range snaps {
		if err := s.sink.ReplaceSnapshot(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("replace %s: %w", snap.Key, err))
			continue
		}
		published = append(published, snap)
	}
	if len(errs) > 0 {
		return published, errors.Join(errs...)
	}
	s.logger.Info("leaderboard snapshots published", "boards", len(published), "users", len(records))
	return published, nil
}

// Run performs a pass immediately and then on every interval until ctx is
// done. Pass failures are logged; the previous snapshots stay in place.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("leaderboard pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
