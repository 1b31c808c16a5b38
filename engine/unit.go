package engine

import (
	"fmt"
	"time"

	"skillforge/achievement"
	"skillforge/catalog"
	"skillforge/core"
	"skillforge/progression"
)

// unit is one atomic unit of work over a user record. It is rebuilt for
// every Mutate attempt so retried closures start from a clean slate.
type unit struct {
	rec    *core.UserRecord
	now    time.Time
	out    Outcome
	events []core.Event
}

func newUnit(rec *core.UserRecord, now time.Time, action string) *unit {
	if rec.Achievements == nil {
		rec.Achievements = map[core.AchievementID]time.Time{}
	}
	if rec.Badges == nil {
		rec.Badges = map[core.Badge]struct{}{}
	}
	return &unit{rec: rec, now: now, out: Outcome{UserID: rec.UserID, Action: action, Known: true}}
}

func (u *unit) bump(field core.CounterField) error {
	if field == "" {
		return nil
	}
	if _, err := u.rec.Counters.Add(field, 1); err != nil {
		return fmt.Errorf("bump %s: %w", field, err)
	}
	return nil
}

// award adds XP and currency attributed to source and records the events.
func (u *unit) award(source string, xp, personal, club int64) error {
	c := &u.rec.Counters
	if xp > 0 {
		total, err := core.AddSafe(c.ExperiencePoints, xp)
		if err != nil {
			return fmt.Errorf("award xp: %w", err)
		}
		c.ExperiencePoints = total
		u.out.XP += xp
		u.events = append(u.events, core.NewXPAwarded(u.rec.UserID, source, xp, total))
	}
	if personal > 0 {
		total, err := core.AddSafe(c.TotalPersonalCurrency, personal)
		if err != nil {
			return fmt.Errorf("award personal currency: %w", err)
		}
		c.TotalPersonalCurrency = total
		u.out.PersonalCurrency += personal
		u.events = append(u.events, core.NewCurrencyAwarded(u.rec.UserID, source, core.MetricPersonalCurrency, personal, total))
	}
	if club > 0 {
		total, err := core.AddSafe(c.TotalClubCurrency, club)
		if err != nil {
			return fmt.Errorf("award club currency: %w", err)
		}
		c.TotalClubCurrency = total
		u.out.ClubCurrency += club
		u.events = append(u.events, core.NewCurrencyAwarded(u.rec.UserID, source, core.MetricClubCurrency, club, total))
	}
	return nil
}

// settle brings the record to a fixed point: level derived from XP with
// every newly reached level's rewards granted once, and every newly met
// achievement unlocked and rewarded once. Rewards feed back into XP and
// currency, so it loops until nothing changes. Each pass grants at least one
// catalog entry that can never be granted again, which bounds the loop.
func (u *unit) settle() error {
	for {
		progressed := false

		c := &u.rec.Counters
		target := progression.LevelFor(c.ExperiencePoints)
		if target.Level > c.Level {
			crossed := progression.LevelsBetween(c.Level, target.Level)
			c.Level = target.Level
			for _, l := range crossed {
				u.out.LevelUps = append(u.out.LevelUps, l)
				u.events = append(u.events, core.NewLevelUp(u.rec.UserID, l.Level, l.Title))
				if err := u.award(levelSource(l), 0, l.Rewards.PersonalCurrency, l.Rewards.ClubCurrency); err != nil {
					return err
				}
			}
			progressed = true
		} else if target.Level != c.Level {
			c.Level = target.Level
		}

		for _, def := range achievement.NewlyEarned(u.rec.Counters, u.rec.Granted()) {
			u.rec.Achievements[def.ID] = u.now
			u.out.Achievements = append(u.out.Achievements, def)
			u.events = append(u.events, core.NewAchievementUnlocked(u.rec.UserID, def.ID, u.now))
			r := def.Rewards
			if err := u.award("achievement:"+string(def.ID), r.XP, r.PersonalCurrency, r.ClubCurrency); err != nil {
				return err
			}
			if r.Badge != "" {
				if _, has := u.rec.Badges[r.Badge]; !has {
					u.rec.Badges[r.Badge] = struct{}{}
					u.events = append(u.events, core.NewBadgeAwarded(u.rec.UserID, r.Badge))
				}
			}
			progressed = true
		}

		if !progressed {
			u.rec.Updated = u.now
			return nil
		}
	}
}

func levelSource(l catalog.LevelDefinition) string {
	return fmt.Sprintf("level:%d", l.Level)
}
