// Package catalog holds the static reward tables: actions, currency, levels
// and achievements. Tables are built once at init and never mutated; every
// accessor returns copies.
package catalog

import "skillforge/core"

// Action is a known user action key. Strings outside the declared constants
// are valid input everywhere but resolve to the unknown branch of Lookup.
type Action string

const (
	ActionCreatePost            Action = "create_post"
	ActionAddComment            Action = "add_comment"
	ActionCreateSkillOffer      Action = "create_skill_offer"
	ActionCompleteSkillExchange Action = "complete_skill_exchange"
	ActionJoinClub              Action = "join_club"
	ActionCreateClub            Action = "create_club"
	ActionCreateEvent           Action = "create_event"
	ActionAttendEvent           Action = "attend_event"
	ActionDailyLogin            Action = "daily_login"
	ActionGiveRating            Action = "give_rating"
	ActionReceivePositiveRating Action = "receive_positive_rating"
	ActionHelpGiven             Action = "help_given"
	ActionCompleteProfile       Action = "complete_profile"
)

// ActionDefinition is one row of the action catalog.
type ActionDefinition struct {
	Action Action `json:"action"`
	BaseXP int64  `json:"base_xp"`
	// MaxPerDay is the most XP this action may earn a user per UTC day.
	// Zero means uncapped.
	MaxPerDay int64 `json:"max_per_day,omitempty"`
	// Counter is the cumulative counter bumped each time the action is
	// recorded, empty when the action has no counter of its own.
	Counter core.CounterField `json:"counter,omitempty"`
}

// Capped reports whether the action has a daily XP budget.
func (d ActionDefinition) Capped() bool { return d.MaxPerDay > 0 }

var actions = []ActionDefinition{
	{Action: ActionCreatePost, BaseXP: 10, MaxPerDay: 50, Counter: core.FieldPosts},
	{Action: ActionAddComment, BaseXP: 2, MaxPerDay: 20, Counter: core.FieldComments},
	{Action: ActionCreateSkillOffer, BaseXP: 25, MaxPerDay: 100, Counter: core.FieldSkillOffers},
	{Action: ActionCompleteSkillExchange, BaseXP: 100, Counter: core.FieldSkillExchanges},
	{Action: ActionJoinClub, BaseXP: 20, MaxPerDay: 60, Counter: core.FieldClubs},
	{Action: ActionCreateClub, BaseXP: 50, MaxPerDay: 50, Counter: core.FieldClubs},
	{Action: ActionCreateEvent, BaseXP: 40, MaxPerDay: 80, Counter: core.FieldEvents},
	{Action: ActionAttendEvent, BaseXP: 30, MaxPerDay: 90, Counter: core.FieldEvents},
	{Action: ActionDailyLogin, BaseXP: 5, MaxPerDay: 5},
	{Action: ActionGiveRating, BaseXP: 5, MaxPerDay: 25, Counter: core.FieldRatingsGiven},
	{Action: ActionReceivePositiveRating, BaseXP: 15},
	{Action: ActionHelpGiven, BaseXP: 20, MaxPerDay: 100, Counter: core.FieldHelpGiven},
	{Action: ActionCompleteProfile, BaseXP: 50, MaxPerDay: 50},
}

var actionIndex = func() map[Action]ActionDefinition {
	m := make(map[Action]ActionDefinition, len(actions))
	for _, a := range actions {
		m[a.Action] = a
	}
	return m
}()

// LookupAction resolves an action key. ok is false for unknown actions.
func LookupAction(action string) (ActionDefinition, bool) {
	d, ok := actionIndex[Action(action)]
	return d, ok
}

// Actions returns the action catalog in declaration order.
func Actions() []ActionDefinition {
	return append([]ActionDefinition(nil), actions...)
}
