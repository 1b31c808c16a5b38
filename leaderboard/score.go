package leaderboard

import "skillforge/core"

// Weights of the overall score. Rare, high-effort actions dominate cheap,
// frequent ones.
const (
	WeightXP            = 1
	WeightPosts         = 10
	WeightSkillExchange = 50
	WeightEvents        = 30
	WeightRating        = 100
	WeightStreakDay     = 5
)

// Stats is the counter subset the scorer reads.
type Stats struct {
	TotalXP             int64   `json:"total_xp"`
	TotalPosts          int64   `json:"total_posts"`
	TotalSkillExchanges int64   `json:"total_skill_exchanges"`
	TotalEvents         int64   `json:"total_events"`
	AverageRating       float64 `json:"average_rating"`
	StreakDays          int64   `json:"streak_days"`
}

// StatsFromCounters projects a counter snapshot onto Stats.
func StatsFromCounters(c core.Counters) Stats {
	return Stats{
		TotalXP:             c.ExperiencePoints,
		TotalPosts:          c.TotalPosts,
		TotalSkillExchanges: c.TotalSkillExchanges,
		TotalEvents:         c.TotalEvents,
		AverageRating:       c.AverageRating(),
		StreakDays:          c.StreakDays,
	}
}

// Score is the weighted linear combination used by the overall board.
func Score(s Stats) float64 {
	return float64(s.TotalXP*WeightXP) +
		float64(s.TotalPosts*WeightPosts) +
		float64(s.TotalSkillExchanges*WeightSkillExchange) +
		float64(s.TotalEvents*WeightEvents) +
		s.AverageRating*WeightRating +
		float64(s.StreakDays*WeightStreakDay)
}

// Category selects which score a board ranks by.
type Category string

const (
	CategoryOverall   Category = "overall"
	CategoryXP        Category = "xp"
	CategoryExchanges Category = "exchanges"
	CategoryStreak    Category = "streak"
)

// Categories lists every supported category.
var Categories = []Category{CategoryOverall, CategoryXP, CategoryExchanges, CategoryStreak}

// Valid reports whether c is a supported category.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// ScoreFor scores stats for a category; unknown categories use Score.
func ScoreFor(c Category, s Stats) float64 {
	switch c {
	case CategoryXP:
		return float64(s.TotalXP)
	case CategoryExchanges:
		return float64(s.TotalSkillExchanges)
	case CategoryStreak:
		return float64(s.StreakDays)
	default:
		return Score(s)
	}
}
