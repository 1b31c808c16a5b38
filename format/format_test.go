package format

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXP(t *testing.T) {
	assert.Equal(t, "0 XP", XP(0))
	assert.Equal(t, "999 XP", XP(999))
	assert.Equal(t, "1K XP", XP(1000))
	assert.Equal(t, "1.2K XP", XP(1234))
	assert.Equal(t, "1.9K XP", XP(1999))
	assert.Equal(t, "3.4M XP", XP(3_450_000))
	assert.Equal(t, "2B XP", XP(2_000_000_000))
}

func TestCompactNegative(t *testing.T) {
	assert.Equal(t, "-1.5K", Compact(-1500))
	assert.Equal(t, "-9223372036.8B", Compact(math.MinInt64))
	assert.Equal(t, "9223372036.8B", Compact(math.MaxInt64))
}

func TestCurrency(t *testing.T) {
	assert.Equal(t, "1,234 coins", Currency(1234, ""))
	assert.Equal(t, "50 club points", Currency(50, "club points"))
}

func TestLevelTitle(t *testing.T) {
	assert.Equal(t, "Novice Learner", LevelTitle(1))
	assert.Equal(t, "Curious Explorer", LevelTitle(2))
	assert.Equal(t, "Level 42", LevelTitle(42))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "50%", Percent(49.6))
}
