package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventXPAwarded           EventType = "xp_awarded"
	EventCurrencyAwarded     EventType = "currency_awarded"
	EventLevelUp             EventType = "level_up"
	EventAchievementUnlocked EventType = "achievement_unlocked"
	EventBadgeAwarded        EventType = "badge_awarded"
	EventStreakUpdated       EventType = "streak_updated"
)

// AllEventTypes lists every event the engine publishes.
var AllEventTypes = []EventType{
	EventXPAwarded,
	EventCurrencyAwarded,
	EventLevelUp,
	EventAchievementUnlocked,
	EventBadgeAwarded,
	EventStreakUpdated,
}

// Event represents an immutable domain event.
type Event struct {
	Type        EventType      `json:"type"`
	Time        time.Time      `json:"time"`
	UserID      UserID         `json:"user_id"`
	Action      string         `json:"action,omitempty"`
	Metric      Metric         `json:"metric,omitempty"`
	Delta       int64          `json:"delta,omitempty"`
	Total       int64          `json:"total,omitempty"`
	Level       int64          `json:"level,omitempty"`
	Title       string         `json:"title,omitempty"`
	Achievement AchievementID  `json:"achievement,omitempty"`
	Badge       Badge          `json:"badge,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewXPAwarded(user UserID, action string, delta, total int64) Event {
	return Event{Type: EventXPAwarded, Time: time.Now().UTC(), UserID: user, Action: action, Metric: MetricXP, Delta: delta, Total: total}
}

func NewCurrencyAwarded(user UserID, action string, metric Metric, delta, total int64) Event {
	return Event{Type: EventCurrencyAwarded, Time: time.Now().UTC(), UserID: user, Action: action, Metric: metric, Delta: delta, Total: total}
}

func NewLevelUp(user UserID, level int64, title string) Event {
	return Event{Type: EventLevelUp, Time: time.Now().UTC(), UserID: user, Metric: MetricXP, Level: level, Title: title}
}

func NewAchievementUnlocked(user UserID, id AchievementID, at time.Time) Event {
	return Event{Type: EventAchievementUnlocked, Time: at.UTC(), UserID: user, Achievement: id}
}

func NewBadgeAwarded(user UserID, badge Badge) Event {
	return Event{Type: EventBadgeAwarded, Time: time.Now().UTC(), UserID: user, Badge: badge}
}

func NewStreakUpdated(user UserID, days int64) Event {
	return Event{Type: EventStreakUpdated, Time: time.Now().UTC(), UserID: user, Total: days}
}
