// Package currency computes personal and club currency rewards.
package currency

import (
	"log/slog"

	"skillforge/catalog"
)

// PersonalForAction returns the personal currency an action grants, 0 when
// the action has no currency reward.
func PersonalForAction(action string) int64 {
	return lookup(action).Personal
}

// ClubForAction returns the club currency an action grants.
func ClubForAction(action string) int64 {
	return lookup(action).Club
}

func lookup(action string) catalog.CurrencyReward {
	if _, known := catalog.LookupAction(action); !known {
		slog.Warn("unknown action", "action", action, "component", "currency")
		return catalog.CurrencyReward{}
	}
	c, _ := catalog.LookupCurrency(action)
	return c
}

// streak tiers, highest first; only the first matching tier pays.
var streakTiers = []struct {
	minDays int64
	bonus   int64
}{
	{30, 200},
	{7, 50},
	{3, 10},
}

// StreakBonus returns the personal currency bonus for a streak length.
func StreakBonus(streakDays int64) int64 {
	for _, tier := range streakTiers {
		if streakDays >= tier.minDays {
			return tier.bonus
		}
	}
	return 0
}
