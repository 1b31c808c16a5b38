// Package progression turns actions into XP and XP into levels. Every
// function is pure over the static catalog and safe for concurrent use.
package progression

import (
	"log/slog"

	"skillforge/catalog"
)

// XPForAction returns the base XP of an action, or 0 for an unknown action.
// Unknown actions are logged and never fail the caller.
func XPForAction(action string) int64 {
	def, ok := catalog.LookupAction(action)
	if !ok {
		slog.Warn("unknown action", "action", action, "component", "progression")
		return 0
	}
	return def.BaseXP
}

// LevelFor returns the highest level whose MinXP is at or below xp. XP is
// never negative by construction; such input falls back to the first level.
func LevelFor(xp int64) catalog.LevelDefinition {
	levels := catalog.Levels()
	for i := len(levels) - 1; i >= 0; i-- {
		if levels[i].MinXP <= xp {
			return levels[i]
		}
	}
	return levels[0]
}

// XPToNextLevel returns the XP still missing for the next level, 0 at the
// top level.
func XPToNextLevel(xp int64) int64 {
	current := LevelFor(xp)
	next, ok := catalog.LookupLevel(current.Level + 1)
	if !ok {
		return 0
	}
	remaining := next.MinXP - xp
	if remaining < 0 {
		return 0
	}
	return remaining
}

// LevelProgressPercent returns how far xp sits within its level's range,
// clamped to [0,100]. Zero-width ranges and the top level report 100.
func LevelProgressPercent(xp int64) float64 {
	level := LevelFor(xp)
	if level.Top() {
		return 100
	}
	span := level.MaxXP - level.MinXP
	if span <= 0 {
		return 100
	}
	pct := float64(xp-level.MinXP) / float64(span) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// LevelsCrossed returns, in ascending order, every level entered when XP
// moves from oldXP to newXP. It is empty unless the level increases.
func LevelsCrossed(oldXP, newXP int64) []catalog.LevelDefinition {
	return LevelsBetween(LevelFor(oldXP).Level, LevelFor(newXP).Level)
}

// LevelsBetween returns the levels in (from, to], ascending.
func LevelsBetween(from, to int64) []catalog.LevelDefinition {
	if from < 1 {
		from = 1
	}
	if to <= from {
		return nil
	}
	out := make([]catalog.LevelDefinition, 0, to-from)
	for l := from + 1; l <= to; l++ {
		if def, ok := catalog.LookupLevel(l); ok {
			out = append(out, def)
		}
	}
	return out
}

// CappedXP truncates an award against a daily budget. budgetUsed is the
// budget total after base was added to it; the part above maxPerDay is cut.
// maxPerDay <= 0 means uncapped.
func CappedXP(base, maxPerDay, budgetUsed int64) int64 {
	if maxPerDay <= 0 || base <= 0 {
		return base
	}
	over := budgetUsed - maxPerDay
	if over <= 0 {
		return base
	}
	if over >= base {
		return 0
	}
	return base - over
}
