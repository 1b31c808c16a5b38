package achievement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillforge/catalog"
	"skillforge/core"
)

func TestEvaluateEmptySnapshot(t *testing.T) {
	assert.Empty(t, Evaluate(core.Counters{}))
}

func TestThresholdBoundary(t *testing.T) {
	for _, def := range catalog.Achievements() {
		field, ok := criteriaCounters[def.Criteria.Action]
		require.True(t, ok, "achievement %s uses unmapped criterion %q", def.ID, def.Criteria.Action)

		var at core.Counters
		_, err := at.Add(field, def.Criteria.Count)
		require.NoError(t, err)
		assert.Contains(t, Evaluate(at), def.ID, "count == threshold must unlock %s", def.ID)

		var below core.Counters
		_, err = below.Add(field, def.Criteria.Count-1)
		require.NoError(t, err)
		assert.NotContains(t, Evaluate(below), def.ID, "count-1 must not unlock %s", def.ID)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	c := core.Counters{TotalPosts: 60, StreakDays: 8, TotalClubs: 2, TotalPersonalCurrency: 700}
	first := Evaluate(c)
	second := Evaluate(c)
	assert.Equal(t, first, second)
	assert.Equal(t, []core.AchievementID{"first_post", "prolific_poster", "club_joiner", "streak_3", "week_warrior", "saver"}, first)
}

func TestCounterForUnknownCriterionIsZero(t *testing.T) {
	c := core.Counters{TotalPosts: 5}
	assert.Equal(t, int64(0), CounterFor(c, "no_such_counter"))
	assert.Equal(t, int64(5), CounterFor(c, "create_post"))
	assert.Equal(t, int64(0), CounterFor(c, "receive_positive_rating"))
}

func TestNewlyEarnedSkipsGranted(t *testing.T) {
	c := core.Counters{TotalPosts: 1, TotalSkillOffers: 1}
	granted := map[core.AchievementID]struct{}{"first_post": {}}

	got := NewlyEarned(c, granted)
	require.Len(t, got, 1)
	assert.Equal(t, core.AchievementID("first_offer"), got[0].ID)

	granted["first_offer"] = struct{}{}
	assert.Empty(t, NewlyEarned(c, granted), "already granted achievements never come back")
}

func TestNewlyEarnedWithoutGrantedMatchesEvaluate(t *testing.T) {
	c := core.Counters{TotalSkillExchanges: 30, TotalHelpGiven: 12, Level: 5}
	var ids []core.AchievementID
	for _, def := range NewlyEarned(c, nil) {
		ids = append(ids, def.ID)
	}
	assert.Equal(t, Evaluate(c), ids)
}
