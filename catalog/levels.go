package catalog

import "math"

// Unbounded is the MaxXP of the top level.
const Unbounded int64 = math.MaxInt64

// LevelRewards is granted once, the first time a user reaches a level.
type LevelRewards struct {
	PersonalCurrency int64 `json:"personal_currency,omitempty"`
	ClubCurrency     int64 `json:"club_currency,omitempty"`
}

// Empty reports whether the bundle grants nothing.
func (r LevelRewards) Empty() bool { return r.PersonalCurrency == 0 && r.ClubCurrency == 0 }

// LevelDefinition is one row of the level table. MinXP and MaxXP are
// inclusive; consecutive rows are contiguous.
type LevelDefinition struct {
	Level   int64        `json:"level"`
	MinXP   int64        `json:"min_xp"`
	MaxXP   int64        `json:"max_xp"`
	Title   string       `json:"title"`
	Rewards LevelRewards `json:"rewards"`
}

// Top reports whether this is the last, uncapped level.
func (l LevelDefinition) Top() bool { return l.MaxXP == Unbounded }

var levels = []LevelDefinition{
	{Level: 1, MinXP: 0, MaxXP: 99, Title: "Novice Learner"},
	{Level: 2, MinXP: 100, MaxXP: 249, Title: "Curious Explorer", Rewards: LevelRewards{PersonalCurrency: 50}},
	{Level: 3, MinXP: 250, MaxXP: 499, Title: "Skill Seeker", Rewards: LevelRewards{PersonalCurrency: 75}},
	{Level: 4, MinXP: 500, MaxXP: 999, Title: "Knowledge Sharer", Rewards: LevelRewards{PersonalCurrency: 100, ClubCurrency: 25}},
	{Level: 5, MinXP: 1000, MaxXP: 1999, Title: "Skill Builder", Rewards: LevelRewards{PersonalCurrency: 150, ClubCurrency: 50}},
	{Level: 6, MinXP: 2000, MaxXP: 3499, Title: "Expert Exchanger", Rewards: LevelRewards{PersonalCurrency: 200, ClubCurrency: 75}},
	{Level: 7, MinXP: 3500, MaxXP: 5499, Title: "Community Mentor", Rewards: LevelRewards{PersonalCurrency: 300, ClubCurrency: 100}},
	{Level: 8, MinXP: 5500, MaxXP: 7999, Title: "Master Teacher", Rewards: LevelRewards{PersonalCurrency: 400, ClubCurrency: 150}},
	{Level: 9, MinXP: 8000, MaxXP: 11999, Title: "Skill Sage", Rewards: LevelRewards{PersonalCurrency: 500, ClubCurrency: 200}},
	{Level: 10, MinXP: 12000, MaxXP: Unbounded, Title: "Legendary Swapper", Rewards: LevelRewards{PersonalCurrency: 1000, ClubCurrency: 500}},
}

// Levels returns the level table ordered by level ascending.
func Levels() []LevelDefinition {
	return append([]LevelDefinition(nil), levels...)
}

// LookupLevel returns the definition of a level number.
func LookupLevel(level int64) (LevelDefinition, bool) {
	if level < 1 || level > int64(len(levels)) {
		return LevelDefinition{}, false
	}
	return levels[level-1], true
}
