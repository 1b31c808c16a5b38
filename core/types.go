package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

// UserID uniquely identifies a user in the gamification domain.
type UserID string

// Metric names a balance that engine events report deltas against.
type Metric string

const (
	MetricXP               Metric = "xp"
	MetricPersonalCurrency Metric = "personal_currency"
	MetricClubCurrency     Metric = "club_currency"
)

// Badge represents a named badge identifier.
type Badge string

// AchievementID identifies an entry of the achievement catalog.
type AchievementID string

// CounterField names one cumulative per-user counter.
type CounterField string

const (
	FieldPosts            CounterField = "total_posts"
	FieldComments         CounterField = "total_comments"
	FieldSkillOffers      CounterField = "total_skill_offers"
	FieldSkillExchanges   CounterField = "total_skill_exchanges"
	FieldClubs            CounterField = "total_clubs"
	FieldEvents           CounterField = "total_events"
	FieldHelpGiven        CounterField = "total_help_given"
	FieldRatingsGiven     CounterField = "total_ratings_given"
	FieldStreakDays       CounterField = "streak_days"
	FieldPersonalCurrency CounterField = "total_personal_currency"
	FieldClubCurrency     CounterField = "total_club_currency"
	FieldExperience       CounterField = "experience_points"
	FieldLevel            CounterField = "level"
)

// Counters is the cumulative per-user counter snapshot. All fields only grow
// through additive deltas, except StreakDays which the login bookkeeping
// resets when a day is missed.
type Counters struct {
	TotalPosts            int64  `json:"total_posts"`
	TotalComments         int64  `json:"total_comments"`
	TotalSkillOffers      int64  `json:"total_skill_offers"`
	TotalSkillExchanges   int64  `json:"total_skill_exchanges"`
	TotalClubs            int64  `json:"total_clubs"`
	TotalEvents           int64  `json:"total_events"`
	TotalHelpGiven        int64  `json:"total_help_given"`
	TotalRatingsGiven     int64  `json:"total_ratings_given"`
	StreakDays            int64  `json:"streak_days"`
	LongestStreak         int64  `json:"longest_streak"`
	LastActiveDay         string `json:"last_active_day,omitempty"`
	TotalPersonalCurrency int64  `json:"total_personal_currency"`
	TotalClubCurrency     int64  `json:"total_club_currency"`
	ExperiencePoints      int64  `json:"experience_points"`
	Level                 int64  `json:"level"`
	RatingSum             int64  `json:"rating_sum"`
	RatingCount           int64  `json:"rating_count"`
}

// Field returns the value of a named counter. Unknown names read as 0.
func (c Counters) Field(f CounterField) int64 {
	if p := c.ref(f); p != nil {
		return *p
	}
	return 0
}

// Add increments a named counter. It reports false for unknown names.
func (c *Counters) Add(f CounterField, delta int64) (bool, error) {
	p := c.ref(f)
	if p == nil {
		return false, nil
	}
	next, err := AddSafe(*p, delta)
	if err != nil {
		return true, err
	}
	*p = next
	return true, nil
}

func (c *Counters) ref(f CounterField) *int64 {
	switch f {
	case FieldPosts:
		return &c.TotalPosts
	case FieldComments:
		return &c.TotalComments
	case FieldSkillOffers:
		return &c.TotalSkillOffers
	case FieldSkillExchanges:
		return &c.TotalSkillExchanges
	case FieldClubs:
		return &c.TotalClubs
	case FieldEvents:
		return &c.TotalEvents
	case FieldHelpGiven:
		return &c.TotalHelpGiven
	case FieldRatingsGiven:
		return &c.TotalRatingsGiven
	case FieldStreakDays:
		return &c.StreakDays
	case FieldPersonalCurrency:
		return &c.TotalPersonalCurrency
	case FieldClubCurrency:
		return &c.TotalClubCurrency
	case FieldExperience:
		return &c.ExperiencePoints
	case FieldLevel:
		return &c.Level
	}
	return nil
}

// AverageRating is RatingSum/RatingCount, or 0 with no ratings.
func (c Counters) AverageRating() float64 {
	if c.RatingCount == 0 {
		return 0
	}
	return float64(c.RatingSum) / float64(c.RatingCount)
}

// UserRecord is everything persisted for one user: counters plus the
// achievements and badges granted so far, each at most once.
type UserRecord struct {
	UserID       UserID                      `json:"user_id"`
	Counters     Counters                    `json:"counters"`
	Achievements map[AchievementID]time.Time `json:"achievements"`
	Badges       map[Badge]struct{}          `json:"badges"`
	Updated      time.Time                   `json:"updated"`
}

// NewUserRecord returns an empty record at level 1.
func NewUserRecord(user UserID) UserRecord {
	return UserRecord{
		UserID:       user,
		Counters:     Counters{Level: 1},
		Achievements: map[AchievementID]time.Time{},
		Badges:       map[Badge]struct{}{},
		Updated:      time.Now().UTC(),
	}
}

// Clone returns a deep copy so callers never share maps with a store.
func (r UserRecord) Clone() UserRecord {
	cp := UserRecord{
		UserID:       r.UserID,
		Counters:     r.Counters,
		Achievements: make(map[AchievementID]time.Time, len(r.Achievements)),
		Badges:       make(map[Badge]struct{}, len(r.Badges)),
		Updated:      r.Updated,
	}
	for k, v := range r.Achievements {
		cp.Achievements[k] = v
	}
	for k := range r.Badges {
		cp.Badges[k] = struct{}{}
	}
	return cp
}

// Granted returns the set of unlocked achievement ids.
func (r UserRecord) Granted() map[AchievementID]struct{} {
	out := make(map[AchievementID]struct{}, len(r.Achievements))
	for id := range r.Achievements {
		out[id] = struct{}{}
	}
	return out
}

// AddSafe adds delta to base ensuring no signed overflow occurs.
func AddSafe(base int64, delta int64) (int64, error) {
	if (delta > 0 && base > math.MaxInt64-delta) || (delta < 0 && base < math.MinInt64-delta) {
		return 0, errors.New("integer overflow in AddSafe")
	}
	return base + delta, nil
}

// NormalizeUserID trims and lowercases user identifiers.
func NormalizeUserID(id UserID) (UserID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", errors.New("empty user id")
	}
	return UserID(strings.ToLower(s)), nil
}

// ValidateBadgeID ensures non-empty badge id with simple charset check.
func ValidateBadgeID(b Badge) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return errors.New("empty badge id")
	}
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			continue
		}
		return errors.New("invalid badge id")
	}
	return nil
}

// DayKey formats t as the UTC calendar day used for daily budgets and streaks.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
