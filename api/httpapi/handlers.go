package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"skillforge/catalog"
	"skillforge/core"
	"skillforge/engine"
	"skillforge/format"
	"skillforge/leaderboard"
)

type handlers struct {
	svc *engine.GamifyService
	now func() time.Time
}

// userParam normalizes the {id} path segment, writing a 400 on failure.
func userParam(w http.ResponseWriter, r *http.Request) (core.UserID, bool) {
	user, err := core.NormalizeUserID(core.UserID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user", err.Error(), nil)
		return "", false
	}
	return user, true
}

func (h *handlers) respondOutcome(w http.ResponseWriter, out engine.Outcome, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidStars):
		writeError(w, http.StatusBadRequest, "invalid_stars", err.Error(), nil)
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
	default:
		writeJSON(w, http.StatusOK, out)
	}
}

func (h *handlers) recordAction(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}
	out, err := h.svc.RecordAction(r.Context(), user, chi.URLParam(r, "action"))
	h.respondOutcome(w, out, err)
}

func (h *handlers) recordLogin(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}
	at := h.now()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "at must be RFC3339", nil)
			return
		}
		if core.DayKey(parsed) > core.DayKey(at) {
			writeError(w, http.StatusBadRequest, "invalid_time", "at cannot be after the current day", nil)
			return
		}
		at = parsed
	}
	out, err := h.svc.RecordDailyLogin(r.Context(), user, at)
	h.respondOutcome(w, out, err)
}

func (h *handlers) recordRating(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}
	stars, err := strconv.Atoi(r.URL.Query().Get("stars"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_stars", "stars must be an integer", nil)
		return
	}
	out, err := h.svc.RecordRating(r.Context(), user, stars)
	h.respondOutcome(w, out, err)
}

func (h *handlers) evaluate(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Evaluate(r.Context(), user)
	h.respondOutcome(w, out, err)
}

func (h *handlers) getUser(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}
	st, err := h.svc.State(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// progressView adds display strings to the raw progress numbers.
type progressView struct {
	engine.Progress
	Display progressDisplay `json:"display"`
}

type progressDisplay struct {
	XP               string `json:"xp"`
	Level            string `json:"level"`
	ToNext           string `json:"to_next"`
	Percent          string `json:"percent"`
	PersonalCurrency string `json:"personal_currency"`
	ClubCurrency     string `json:"club_currency"`
}

func (h *handlers) getProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}
	st, err := h.svc.State(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
		return
	}
	p := engine.ProgressOf(st.UserID, st.Counters.ExperiencePoints)
	writeJSON(w, http.StatusOK, progressView{
		Progress: p,
		Display: progressDisplay{
			XP:               format.XP(p.XP),
			Level:            format.LevelTitle(p.Level),
			ToNext:           format.XP(p.XPToNextLevel),
			Percent:          format.Percent(p.Percent),
			PersonalCurrency: format.Currency(st.Counters.TotalPersonalCurrency, "coins"),
			ClubCurrency:     format.Currency(st.Counters.TotalClubCurrency, "club coins"),
		},
	})
}

func (h *handlers) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	key, err := leaderboard.ParseKey(chi.URLParam(r, "period"), chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_board", err.Error(), nil)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer", nil)
			return
		}
	}
	snap, err := h.svc.Leaderboard(r.Context(), key)
	switch {
	case errors.Is(err, engine.ErrLeaderboardsDisabled):
		writeError(w, http.StatusServiceUnavailable, "leaderboards_disabled", err.Error(), nil)
		return
	case errors.Is(err, leaderboard.ErrNoSnapshot):
		writeError(w, http.StatusNotFound, "no_snapshot", "leaderboard has not been computed yet", nil)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
		return
	}
	snap.Rows = snap.Top(limit)
	writeJSON(w, http.StatusOK, snap)
}

func (h *handlers) recompute(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.svc.RecomputeLeaderboards(r.Context())
	if errors.Is(err, engine.ErrLeaderboardsDisabled) {
		writeError(w, http.StatusServiceUnavailable, "leaderboards_disabled", err.Error(), nil)
		return
	}
	boards := make([]string, 0, len(snaps))
	for _, s := range snaps {
		boards = append(boards, s.Key.String())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "partial_failure", err.Error(), map[string]any{"published": boards})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"published": boards})
}

func (h *handlers) getCatalog(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "kind") {
	case "actions":
		writeJSON(w, http.StatusOK, map[string]any{
			"actions":  catalog.Actions(),
			"currency": catalog.CurrencyRewards(),
		})
	case "levels":
		writeJSON(w, http.StatusOK, catalog.Levels())
	case "achievements":
		writeJSON(w, http.StatusOK, catalog.Achievements())
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown catalog", nil)
	}
}

// health verifies storage answers a read for a probe user.
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	_, err := h.svc.State(r.Context(), core.UserID("healthcheck_probe"))

	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
		},
	}
	code := http.StatusOK
	if err != nil {
		code = http.StatusServiceUnavailable
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
	}
	writeJSON(w, code, status)
}
