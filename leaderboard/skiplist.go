package leaderboard

import (
	"math/rand/v2"
	"sync"

	"skillforge/core"
)

const (
	maxHeight = 24
	promote   = 4 // one in promote nodes gains each extra level
)

// lane is one forward pointer of a node. span counts the bottom-level hops
// it skips, which is what makes rank lookups logarithmic.
type lane struct {
	next *node
	span int
}

type node struct {
	e     Entry
	lanes []lane
}

// SkipList is an indexed skip list ordered by score descending, then user id
// ascending. Updates, removals and rank lookups are O(log n).
type SkipList struct {
	mu     sync.RWMutex
	head   *node
	height int
	size   int
	byUser map[core.UserID]Entry
	rng    *rand.Rand
}

func NewSkipList() *SkipList {
	return &SkipList{
		head:   &node{lanes: make([]lane, maxHeight)},
		height: 1,
		byUser: map[core.UserID]Entry{},
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// before reports whether a ranks ahead of b.
func before(a, b Entry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.User < b.User
}

func (s *SkipList) pickHeight() int {
	h := 1
	for h < maxHeight && s.rng.IntN(promote) == 0 {
		h++
	}
	return h
}

// descend walks towards e, recording the last node before it on every level
// and the bottom-level rank of that node.
func (s *SkipList) descend(e Entry) (prev [maxHeight]*node, rank [maxHeight]int) {
	cur := s.head
	for i := s.height - 1; i >= 0; i-- {
		if i < s.height-1 {
			rank[i] = rank[i+1]
		}
		for cur.lanes[i].next != nil && before(cur.lanes[i].next.e, e) {
			rank[i] += cur.lanes[i].span
			cur = cur.lanes[i].next
		}
		prev[i] = cur
	}
	return prev, rank
}

// Update inserts user or moves it to score.
func (s *SkipList) Update(user core.UserID, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byUser[user]; ok {
		if old.Score == score {
			return
		}
		s.unlink(old)
	}
	e := Entry{User: user, Score: score}
	prev, rank := s.descend(e)

	h := s.pickHeight()
	if h > s.height {
		for i := s.height; i < h; i++ {
			prev[i] = s.head
			rank[i] = 0
			s.head.lanes[i].span = s.size
		}
		s.height = h
	}

	n := &node{e: e, lanes: make([]lane, h)}
	for i := 0; i < h; i++ {
		n.lanes[i].next = prev[i].lanes[i].next
		prev[i].lanes[i].next = n
		// rank[0]-rank[i] is the distance from prev[i] to the new node's
		// predecessor on the bottom level.
		n.lanes[i].span = prev[i].lanes[i].span - (rank[0] - rank[i])
		prev[i].lanes[i].span = rank[0] - rank[i] + 1
	}
	for i := h; i < s.height; i++ {
		prev[i].lanes[i].span++
	}
	s.byUser[user] = e
	s.size++
}

func (s *SkipList) unlink(e Entry) {
	prev, _ := s.descend(e)
	target := prev[0].lanes[0].next
	if target == nil || target.e.User != e.User {
		return
	}
	for i := 0; i < s.height; i++ {
		if prev[i].lanes[i].next == target {
			prev[i].lanes[i].span += target.lanes[i].span - 1
			prev[i].lanes[i].next = target.lanes[i].next
		} else {
			prev[i].lanes[i].span--
		}
	}
	for s.height > 1 && s.head.lanes[s.height-1].next == nil {
		s.head.lanes[s.height-1].span = 0
		s.height--
	}
	delete(s.byUser, e.User)
	s.size--
}

func (s *SkipList) Remove(user core.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.byUser[user]; ok {
		s.unlink(e)
	}
}

// Rank returns the 1-based position of user.
func (s *SkipList) Rank(user core.UserID) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byUser[user]
	if !ok {
		return 0, false
	}
	_, rank := s.descend(e)
	return rank[0] + 1, true
}

// Range returns up to n entries starting at the 1-based rank start.
// n < 0 returns everything from start on.
func (s *SkipList) Range(start, n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if start < 1 || start > s.size || n == 0 {
		return nil
	}
	if n < 0 || n > s.size-start+1 {
		n = s.size - start + 1
	}

	// Skip ahead on the upper lanes until just before start.
	cur, traversed := s.head, 0
	for i := s.height - 1; i >= 0; i-- {
		for cur.lanes[i].next != nil && traversed+cur.lanes[i].span < start {
			traversed += cur.lanes[i].span
			cur = cur.lanes[i].next
		}
	}
	out := make([]Entry, 0, n)
	for cur = cur.lanes[0].next; cur != nil && len(out) < n; cur = cur.lanes[0].next {
		out = append(out, cur.e)
	}
	return out
}

// TopN returns up to n entries in rank order; n < 0 returns all of them.
func (s *SkipList) TopN(n int) []Entry {
	return s.Range(1, n)
}

func (s *SkipList) Get(user core.UserID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byUser[user]
	return e, ok
}

func (s *SkipList) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

var _ Board = (*SkipList)(nil)
