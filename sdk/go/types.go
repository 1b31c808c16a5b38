package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"skillforge/core"
)

// Outcome mirrors the JSON returned by the recording endpoints.
type Outcome struct {
	UserID           string          `json:"user_id"`
	Action           string          `json:"action,omitempty"`
	Known            bool            `json:"known"`
	Duplicate        bool            `json:"duplicate,omitempty"`
	XP               int64           `json:"xp"`
	CappedXP         int64           `json:"capped_xp,omitempty"`
	PersonalCurrency int64           `json:"personal_currency"`
	ClubCurrency     int64           `json:"club_currency"`
	LevelUps         []Level         `json:"level_ups,omitempty"`
	Achievements     []Achievement   `json:"achievements,omitempty"`
	Record           core.UserRecord `json:"record"`
}

// Level is one tier of the level ladder.
type Level struct {
	Level int64  `json:"level"`
	Title string `json:"title"`
	MinXP int64  `json:"min_xp"`
	MaxXP int64  `json:"max_xp"`
}

// Achievement is the public part of an achievement definition.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// Progress mirrors GET /users/{id}/progress.
type Progress struct {
	UserID        string  `json:"user_id"`
	XP            int64   `json:"xp"`
	Level         int64   `json:"level"`
	Title         string  `json:"title"`
	XPToNextLevel int64   `json:"xp_to_next_level"`
	Percent       float64 `json:"percent"`
	MaxLevel      bool    `json:"max_level"`
	Display       struct {
		XP               string `json:"xp"`
		Level            string `json:"level"`
		ToNext           string `json:"to_next"`
		Percent          string `json:"percent"`
		PersonalCurrency string `json:"personal_currency"`
		ClubCurrency     string `json:"club_currency"`
	} `json:"display"`
}

// LeaderboardRow is one ranked entry.
type LeaderboardRow struct {
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
	Rank   int     `json:"rank"`
}

// Leaderboard is the latest published snapshot of one board.
type Leaderboard struct {
	ID  string `json:"id"`
	Key struct {
		Period   string `json:"period"`
		Category string `json:"category"`
	} `json:"key"`
	TakenAt time.Time        `json:"taken_at"`
	Rows    []LeaderboardRow `json:"rows"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed: status %d", e.Status)
	}
	return fmt.Sprintf("request failed: status %d: %s: %s", e.Status, e.Code, e.Message)
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if target == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// ErrEmptyUserID is returned when user id is empty.
var ErrEmptyUserID = errors.New("user id is required")
