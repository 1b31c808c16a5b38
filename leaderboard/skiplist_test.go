package leaderboard

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"

	"skillforge/core"
)

func TestSkipListBasic(t *testing.T) {
	s := NewSkipList()
	s.Update(core.UserID("a"), 10)
	s.Update(core.UserID("b"), 20)
	s.Update(core.UserID("c"), 15)
	top := s.TopN(3)
	if len(top) != 3 || top[0].User != core.UserID("b") || top[1].User != core.UserID("c") || top[2].User != core.UserID("a") {
		t.Fatalf("unexpected order: %#v", top)
	}
	s.Update(core.UserID("a"), 25)
	top = s.TopN(1)
	if top[0].User != core.UserID("a") {
		t.Fatalf("top should be a, got %#v", top)
	}
	if s.Len() != 3 {
		t.Fatalf("update must not duplicate users, len=%d", s.Len())
	}
}

func TestSkipListTiesByUserID(t *testing.T) {
	s := NewSkipList()
	s.Update("carol", 200)
	s.Update("alice", 50)
	s.Update("bob", 200)
	top := s.TopN(-1)
	if len(top) != 3 || top[0].User != "bob" || top[1].User != "carol" || top[2].User != "alice" {
		t.Fatalf("unexpected order: %#v", top)
	}
}

func TestSkipListRemove(t *testing.T) {
	s := NewSkipList()
	s.Update("a", 1)
	s.Update("b", 2)
	s.Remove("b")
	if _, ok := s.Get("b"); ok {
		t.Fatal("b should be gone")
	}
	if e, ok := s.Get("a"); !ok || e.Score != 1 {
		t.Fatalf("a missing: %#v", e)
	}
	if got := s.TopN(0); got != nil {
		t.Fatalf("TopN(0) should be nil, got %#v", got)
	}
}

func TestSkipListRankAndRange(t *testing.T) {
	s := NewSkipList()
	for i, u := range []core.UserID{"a", "b", "c", "d", "e"} {
		s.Update(u, float64(10*(i+1)))
	}
	if r, ok := s.Rank("e"); !ok || r != 1 {
		t.Fatalf("rank(e) = %d,%v", r, ok)
	}
	if r, ok := s.Rank("a"); !ok || r != 5 {
		t.Fatalf("rank(a) = %d,%v", r, ok)
	}
	if _, ok := s.Rank("zed"); ok {
		t.Fatal("unknown user should have no rank")
	}

	page := s.Range(2, 2)
	if len(page) != 2 || page[0].User != "d" || page[1].User != "c" {
		t.Fatalf("unexpected page: %#v", page)
	}
	if tail := s.Range(4, -1); len(tail) != 2 || tail[1].User != "a" {
		t.Fatalf("unexpected tail: %#v", tail)
	}
	if got := s.Range(6, 1); got != nil {
		t.Fatalf("range past end should be nil, got %#v", got)
	}

	s.Update("a", 100)
	if r, _ := s.Rank("a"); r != 1 {
		t.Fatalf("a should lead after update, rank %d", r)
	}
	s.Remove("e")
	if r, _ := s.Rank("d"); r != 2 {
		t.Fatalf("d should be second after e leaves, rank %d", r)
	}
}

func TestSkipListMatchesSortedOrder(t *testing.T) {
	s := NewSkipList()
	rng := rand.New(rand.NewPCG(1, 2))
	scores := map[core.UserID]float64{}
	for i := 0; i < 2000; i++ {
		u := core.UserID(fmt.Sprintf("u%03d", rng.IntN(300)))
		if rng.IntN(5) == 0 {
			s.Remove(u)
			delete(scores, u)
			continue
		}
		sc := float64(rng.IntN(50))
		s.Update(u, sc)
		scores[u] = sc
	}

	want := make([]Entry, 0, len(scores))
	for u, sc := range scores {
		want = append(want, Entry{User: u, Score: sc})
	}
	sort.Slice(want, func(i, j int) bool { return before(want[i], want[j]) })

	got := s.TopN(-1)
	if len(got) != len(want) || s.Len() != len(want) {
		t.Fatalf("len got=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %#v want %#v", i, got[i], want[i])
		}
		if r, ok := s.Rank(want[i].User); !ok || r != i+1 {
			t.Fatalf("rank(%s) = %d, want %d", want[i].User, r, i+1)
		}
	}
}
