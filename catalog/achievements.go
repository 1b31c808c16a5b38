package catalog

import "skillforge/core"

// AchievementType is the closed set of achievement categories.
type AchievementType string

const (
	TypeMilestone AchievementType = "milestone"
	TypeSocial    AchievementType = "social"
	TypeSkill     AchievementType = "skill"
	TypeStreak    AchievementType = "streak"
	TypeCommunity AchievementType = "community"
	TypeEconomy   AchievementType = "economy"
)

// Timeframe is advisory metadata on a criterion. Counters are compared as
// supplied; windowing is the counter owner's job.
type Timeframe string

const (
	TimeframeNone  Timeframe = ""
	TimeframeDay   Timeframe = "day"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
)

// Criteria keys that are not catalog actions.
const (
	CriteriaEarnCurrency = "earn_currency"
	CriteriaEarnXP       = "earn_xp"
	CriteriaReachLevel   = "reach_level"
)

// Criteria unlocks an achievement once the counter mapped from Action
// reaches Count.
type Criteria struct {
	Action    string    `json:"action"`
	Count     int64     `json:"count"`
	Timeframe Timeframe `json:"timeframe,omitempty"`
}

// AchievementRewards is granted once, with the unlock.
type AchievementRewards struct {
	XP               int64      `json:"xp"`
	PersonalCurrency int64      `json:"personal_currency,omitempty"`
	ClubCurrency     int64      `json:"club_currency,omitempty"`
	Badge            core.Badge `json:"badge,omitempty"`
}

// AchievementDefinition is one row of the achievement catalog.
type AchievementDefinition struct {
	ID          core.AchievementID `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Type        AchievementType    `json:"type"`
	Criteria    Criteria           `json:"criteria"`
	Rewards     AchievementRewards `json:"rewards"`
}

var achievements = []AchievementDefinition{
	// milestones
	{
		ID: "first_post", Name: "First Words", Description: "Publish your first post",
		Type: TypeMilestone, Criteria: Criteria{Action: string(ActionCreatePost), Count: 1},
		Rewards: AchievementRewards{XP: 20, PersonalCurrency: 5, Badge: "first_post"},
	},
	{
		ID: "prolific_poster", Name: "Prolific Poster", Description: "Publish 50 posts",
		Type: TypeMilestone, Criteria: Criteria{Action: string(ActionCreatePost), Count: 50},
		Rewards: AchievementRewards{XP: 200, PersonalCurrency: 50, Badge: "prolific_poster"},
	},
	{
		ID: "level_five", Name: "Rising Star", Description: "Reach level 5",
		Type: TypeMilestone, Criteria: Criteria{Action: CriteriaReachLevel, Count: 5},
		Rewards: AchievementRewards{XP: 0, PersonalCurrency: 100, Badge: "rising_star"},
	},
	{
		ID: "xp_10000", Name: "Seasoned", Description: "Earn 10,000 XP",
		Type: TypeMilestone, Criteria: Criteria{Action: CriteriaEarnXP, Count: 10000},
		Rewards: AchievementRewards{XP: 0, PersonalCurrency: 250, Badge: "seasoned"},
	},

	// skills
	{
		ID: "first_offer", Name: "Open Hand", Description: "Offer your first skill",
		Type: TypeSkill, Criteria: Criteria{Action: string(ActionCreateSkillOffer), Count: 1},
		Rewards: AchievementRewards{XP: 30, PersonalCurrency: 10, Badge: "open_hand"},
	},
	{
		ID: "skill_sharer", Name: "Skill Sharer", Description: "Offer 10 skills",
		Type: TypeSkill, Criteria: Criteria{Action: string(ActionCreateSkillOffer), Count: 10},
		Rewards: AchievementRewards{XP: 150, PersonalCurrency: 40},
	},
	{
		ID: "first_exchange", Name: "Fair Trade", Description: "Complete your first skill exchange",
		Type: TypeSkill, Criteria: Criteria{Action: string(ActionCompleteSkillExchange), Count: 1},
		Rewards: AchievementRewards{XP: 50, PersonalCurrency: 20, Badge: "fair_trade"},
	},
	{
		ID: "exchange_master", Name: "Exchange Master", Description: "Complete 25 skill exchanges",
		Type: TypeSkill, Criteria: Criteria{Action: string(ActionCompleteSkillExchange), Count: 25},
		Rewards: AchievementRewards{XP: 500, PersonalCurrency: 150, ClubCurrency: 50, Badge: "exchange_master"},
	},

	// social
	{
		ID: "club_joiner", Name: "Joiner", Description: "Join your first club",
		Type: TypeSocial, Criteria: Criteria{Action: string(ActionJoinClub), Count: 1},
		Rewards: AchievementRewards{XP: 20, ClubCurrency: 10},
	},
	{
		ID: "social_butterfly", Name: "Social Butterfly", Description: "Be part of 5 clubs",
		Type: TypeSocial, Criteria: Criteria{Action: string(ActionJoinClub), Count: 5},
		Rewards: AchievementRewards{XP: 100, ClubCurrency: 50, Badge: "social_butterfly"},
	},
	{
		ID: "event_goer", Name: "Show Up", Description: "Attend your first event",
		Type: TypeSocial, Criteria: Criteria{Action: string(ActionAttendEvent), Count: 1},
		Rewards: AchievementRewards{XP: 25, PersonalCurrency: 5},
	},
	{
		ID: "event_regular", Name: "Regular", Description: "Take part in 10 events",
		Type: TypeSocial, Criteria: Criteria{Action: string(ActionAttendEvent), Count: 10},
		Rewards: AchievementRewards{XP: 150, PersonalCurrency: 30, Badge: "regular"},
	},

	// streaks
	{
		ID: "streak_3", Name: "Warming Up", Description: "Log in 3 days in a row",
		Type: TypeStreak, Criteria: Criteria{Action: string(ActionDailyLogin), Count: 3, Timeframe: TimeframeDay},
		Rewards: AchievementRewards{XP: 15},
	},
	{
		ID: "week_warrior", Name: "Week Warrior", Description: "Log in 7 days in a row",
		Type: TypeStreak, Criteria: Criteria{Action: string(ActionDailyLogin), Count: 7, Timeframe: TimeframeWeek},
		Rewards: AchievementRewards{XP: 75, PersonalCurrency: 25, Badge: "week_warrior"},
	},
	{
		ID: "monthly_devotee", Name: "Monthly Devotee", Description: "Log in 30 days in a row",
		Type: TypeStreak, Criteria: Criteria{Action: string(ActionDailyLogin), Count: 30, Timeframe: TimeframeMonth},
		Rewards: AchievementRewards{XP: 300, PersonalCurrency: 100, Badge: "monthly_devotee"},
	},

	// community
	{
		ID: "helping_hand", Name: "Helping Hand", Description: "Help other members 10 times",
		Type: TypeCommunity, Criteria: Criteria{Action: string(ActionHelpGiven), Count: 10},
		Rewards: AchievementRewards{XP: 100, PersonalCurrency: 25, Badge: "helping_hand"},
	},
	{
		ID: "pillar", Name: "Pillar of the Community", Description: "Help other members 100 times",
		Type: TypeCommunity, Criteria: Criteria{Action: string(ActionHelpGiven), Count: 100},
		Rewards: AchievementRewards{XP: 1000, PersonalCurrency: 250, ClubCurrency: 100, Badge: "pillar"},
	},

	// economy
	{
		ID: "saver", Name: "Saver", Description: "Earn 500 personal currency",
		Type: TypeEconomy, Criteria: Criteria{Action: CriteriaEarnCurrency, Count: 500},
		Rewards: AchievementRewards{XP: 50},
	},
	{
		ID: "tycoon", Name: "Tycoon", Description: "Earn 5,000 personal currency",
		Type: TypeEconomy, Criteria: Criteria{Action: CriteriaEarnCurrency, Count: 5000},
		Rewards: AchievementRewards{XP: 250, Badge: "tycoon"},
	},
}

var achievementIndex = func() map[core.AchievementID]AchievementDefinition {
	m := make(map[core.AchievementID]AchievementDefinition, len(achievements))
	for _, a := range achievements {
		m[a.ID] = a
	}
	return m
}()

// Achievements returns the achievement catalog in evaluation order.
func Achievements() []AchievementDefinition {
	return append([]AchievementDefinition(nil), achievements...)
}

// LookupAchievement resolves an achievement id.
func LookupAchievement(id core.AchievementID) (AchievementDefinition, bool) {
	a, ok := achievementIndex[id]
	return a, ok
}
