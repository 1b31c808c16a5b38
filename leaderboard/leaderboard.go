// Package leaderboard scores users and produces ranked snapshots.
package leaderboard

import "skillforge/core"

// Entry is a user's position key on a live board.
type Entry struct {
	User  core.UserID `json:"user_id"`
	Score float64     `json:"score"`
}

// Board abstracts ordered score storage. Ordering is score descending, then
// user id ascending.
type Board interface {
	Update(user core.UserID, score float64)
	Remove(user core.UserID)
	TopN(n int) []Entry
	// Range pages through the board from a 1-based rank.
	Range(start, n int) []Entry
	Rank(user core.UserID) (int, bool)
	Get(user core.UserID) (Entry, bool)
	Len() int
}
