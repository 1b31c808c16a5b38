// Package achievement decides which catalog achievements a counter snapshot
// satisfies. It holds no state: callers pass what was already granted.
package achievement

import (
	"skillforge/catalog"
	"skillforge/core"
)

// criteriaCounters maps a criterion action onto the counter it is measured
// against. Criterion actions are not necessarily catalog actions.
var criteriaCounters = map[string]core.CounterField{
	string(catalog.ActionCreatePost):            core.FieldPosts,
	string(catalog.ActionAddComment):            core.FieldComments,
	string(catalog.ActionCreateSkillOffer):      core.FieldSkillOffers,
	string(catalog.ActionCompleteSkillExchange): core.FieldSkillExchanges,
	string(catalog.ActionJoinClub):              core.FieldClubs,
	string(catalog.ActionCreateClub):            core.FieldClubs,
	string(catalog.ActionAttendEvent):           core.FieldEvents,
	string(catalog.ActionCreateEvent):           core.FieldEvents,
	string(catalog.ActionDailyLogin):            core.FieldStreakDays,
	string(catalog.ActionHelpGiven):             core.FieldHelpGiven,
	string(catalog.ActionGiveRating):            core.FieldRatingsGiven,
	catalog.CriteriaEarnCurrency:                core.FieldPersonalCurrency,
	catalog.CriteriaEarnXP:                      core.FieldExperience,
	catalog.CriteriaReachLevel:                  core.FieldLevel,
}

// CounterFor returns the counter value a criterion action is measured
// against. Unmapped actions read as 0.
func CounterFor(c core.Counters, action string) int64 {
	field, ok := criteriaCounters[action]
	if !ok {
		return 0
	}
	return c.Field(field)
}

// Met reports whether a snapshot satisfies an achievement's threshold.
func Met(c core.Counters, def catalog.AchievementDefinition) bool {
	return CounterFor(c, def.Criteria.Action) >= def.Criteria.Count
}

// Evaluate returns, in catalog order, every achievement whose threshold the
// snapshot meets. It re-evaluates from scratch on every call.
func Evaluate(c core.Counters) []core.AchievementID {
	var out []core.AchievementID
	for _, def := range catalog.Achievements() {
		if Met(c, def) {
			out = append(out, def.ID)
		}
	}
	return out
}

// NewlyEarned returns the achievements the snapshot meets that are not in
// granted, in catalog order.
func NewlyEarned(c core.Counters, granted map[core.AchievementID]struct{}) []catalog.AchievementDefinition {
	var out []catalog.AchievementDefinition
	for _, def := range catalog.Achievements() {
		if _, done := granted[def.ID]; done {
			continue
		}
		if Met(c, def) {
			out = append(out, def)
		}
	}
	return out
}
