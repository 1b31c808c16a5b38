package core

import (
	"math"
	"testing"
	"time"
)

func TestAddSafe(t *testing.T) {
	if v, err := AddSafe(10, 5); err != nil || v != 15 {
		t.Fatalf("got %v %v", v, err)
	}
	if _, err := AddSafe(math.MaxInt64, 1); err == nil {
		t.Fatalf("expected overflow")
	}
}

func TestNormalizeUserID(t *testing.T) {
	id, err := NormalizeUserID(" Alice ")
	if err != nil || id != "alice" {
		t.Fatalf("got %v %v", id, err)
	}
	if _, err := NormalizeUserID("   "); err == nil {
		t.Fatalf("expected empty error")
	}
}

func TestValidateBadgeID(t *testing.T) {
	if err := ValidateBadgeID("first_post"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := ValidateBadgeID("bad badge"); err == nil {
		t.Fatalf("expected invalid badge err")
	}
}

func TestCountersFieldAndAdd(t *testing.T) {
	var c Counters
	ok, err := c.Add(FieldPosts, 3)
	if !ok || err != nil {
		t.Fatalf("add posts: ok=%v err=%v", ok, err)
	}
	if c.Field(FieldPosts) != 3 || c.TotalPosts != 3 {
		t.Fatalf("want 3 posts, got %d", c.TotalPosts)
	}
	if ok, _ := c.Add(CounterField("nope"), 1); ok {
		t.Fatal("unknown field should not be applied")
	}
	if c.Field(CounterField("nope")) != 0 {
		t.Fatal("unknown field should read as 0")
	}
}

func TestAverageRating(t *testing.T) {
	if (Counters{}).AverageRating() != 0 {
		t.Fatal("no ratings should average 0")
	}
	c := Counters{RatingSum: 9, RatingCount: 2}
	if c.AverageRating() != 4.5 {
		t.Fatalf("got %v", c.AverageRating())
	}
}

func TestUserRecordCloneIsDeep(t *testing.T) {
	r := NewUserRecord("u")
	r.Achievements["first_post"] = time.Now()
	cp := r.Clone()
	cp.Achievements["other"] = time.Now()
	cp.Badges["b"] = struct{}{}
	if len(r.Achievements) != 1 || len(r.Badges) != 0 {
		t.Fatal("clone shares maps with original")
	}
	if r.Counters.Level != 1 {
		t.Fatalf("new record should start at level 1, got %d", r.Counters.Level)
	}
}
