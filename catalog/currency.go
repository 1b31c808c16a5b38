package catalog

// CurrencyReward is the personal and club currency an action grants.
type CurrencyReward struct {
	Action   Action `json:"action"`
	Personal int64  `json:"personal"`
	Club     int64  `json:"club"`
}

// Kept apart from the action table so monetary incentives can be tuned
// without touching progression pacing.
var currencyRewards = []CurrencyReward{
	{Action: ActionCreatePost, Personal: 2},
	{Action: ActionCreateSkillOffer, Personal: 5},
	{Action: ActionCompleteSkillExchange, Personal: 25, Club: 5},
	{Action: ActionJoinClub, Club: 10},
	{Action: ActionCreateClub, Club: 50},
	{Action: ActionCreateEvent, Personal: 5, Club: 10},
	{Action: ActionAttendEvent, Personal: 5, Club: 5},
	{Action: ActionDailyLogin, Personal: 1},
	{Action: ActionReceivePositiveRating, Personal: 3},
	{Action: ActionHelpGiven, Personal: 5},
	{Action: ActionCompleteProfile, Personal: 20},
}

var currencyIndex = func() map[Action]CurrencyReward {
	m := make(map[Action]CurrencyReward, len(currencyRewards))
	for _, c := range currencyRewards {
		m[c.Action] = c
	}
	return m
}()

// LookupCurrency resolves the currency reward of an action.
func LookupCurrency(action string) (CurrencyReward, bool) {
	c, ok := currencyIndex[Action(action)]
	return c, ok
}

// CurrencyRewards returns the currency catalog in declaration order.
func CurrencyRewards() []CurrencyReward {
	return append([]CurrencyReward(nil), currencyRewards...)
}
