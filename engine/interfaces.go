package engine

import (
	"context"

	"skillforge/core"
	"skillforge/leaderboard"
)

// Storage is the persistence collaborator owning per-user state.
type Storage interface {
	// Mutate atomically applies fn to the user's record and persists the
	// result. Implementations using optimistic locking may call fn more than
	// once; fn must derive everything from the record it is handed.
	Mutate(ctx context.Context, user core.UserID, fn func(*core.UserRecord) error) (core.UserRecord, error)
	// AddDaily atomically adds delta to a counter scoped to (user, key, day)
	// and returns the new total. Counters for past days may expire.
	AddDaily(ctx context.Context, user core.UserID, key string, day string, delta int64) (int64, error)
	// Get returns the user's record, or a fresh one if none exists.
	Get(ctx context.Context, user core.UserID) (core.UserRecord, error)
	// List returns every stored record.
	List(ctx context.Context) ([]core.UserRecord, error)
}

// SnapshotStore keeps the latest leaderboard snapshot per board.
type SnapshotStore interface {
	// ReplaceSnapshot swaps in a complete snapshot for its key; readers see
	// either the old batch or the new one, never a mix.
	ReplaceSnapshot(ctx context.Context, snap leaderboard.Snapshot) error
	// Snapshot returns the latest snapshot or leaderboard.ErrNoSnapshot.
	Snapshot(ctx context.Context, key leaderboard.Key) (leaderboard.Snapshot, error)
}
