// Package format renders engine values for display.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"skillforge/catalog"
)

// Compact abbreviates large counts: 950, 1.2K, 3.4M, 1B.
func Compact(n int64) string {
	neg := n < 0
	// unsigned magnitude so math.MinInt64 does not overflow
	m := uint64(n)
	if neg {
		m = -m
	}
	var s string
	switch {
	case m < 1_000:
		s = strconv.FormatUint(m, 10)
	case m < 1_000_000:
		s = trim(float64(m)/1_000) + "K"
	case m < 1_000_000_000:
		s = trim(float64(m)/1_000_000) + "M"
	default:
		s = trim(float64(m)/1_000_000_000) + "B"
	}
	if neg {
		return "-" + s
	}
	return s
}

// trim keeps one decimal, truncating toward zero, and drops a trailing ".0".
func trim(f float64) string {
	s := strconv.FormatFloat(float64(int64(f*10))/10, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}

// XP renders an XP amount such as "1.2K XP".
func XP(xp int64) string {
	return Compact(xp) + " XP"
}

// Currency renders a currency balance with thousands separators.
func Currency(amount int64, unit string) string {
	if unit == "" {
		unit = "coins"
	}
	return fmt.Sprintf("%s %s", humanize.Comma(amount), unit)
}

// LevelTitle returns the display title of a level number, or "Level N" for
// numbers outside the table.
func LevelTitle(level int64) string {
	if def, ok := catalog.LookupLevel(level); ok {
		return def.Title
	}
	return fmt.Sprintf("Level %d", level)
}

// Percent renders a progress percentage without decimals.
func Percent(p float64) string {
	return fmt.Sprintf("%.0f%%", p)
}
