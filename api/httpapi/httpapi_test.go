package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "skillforge/adapters/memory"
	"skillforge/engine"
	"skillforge/leaderboard"
)

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, withBoards bool) *engine.GamifyService {
	t.Helper()
	storage := mem.New()
	opts := []engine.ServiceOption{engine.WithClock(func() time.Time { return fixedNow })}
	if withBoards {
		sched := leaderboard.NewScheduler(storage, storage)
		opts = append(opts, engine.WithLeaderboards(storage, sched))
	}
	svc := engine.NewGamifyService(storage, engine.NewEventBus(engine.DispatchSync), opts...)
	t.Cleanup(svc.Close)
	return svc
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRecordActionSuccess(t *testing.T) {
	handler := NewMux(newTestService(t, false), nil, Options{PathPrefix: "/api"})

	rec := do(t, handler, http.MethodPost, "/api/users/alice/actions/create_post")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, true, resp["known"])
	assert.Equal(t, float64(30), resp["xp"])
	achievements := resp["achievements"].([]any)
	require.Len(t, achievements, 1)
	assert.Equal(t, "first_post", achievements[0].(map[string]any)["id"])
}

func TestRecordUnknownAction(t *testing.T) {
	handler := NewMux(newTestService(t, false), nil, Options{PathPrefix: "/api"})

	rec := do(t, handler, http.MethodPost, "/api/users/alice/actions/teleport")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, false, resp["known"])
	assert.Equal(t, float64(0), resp["xp"])
}

func TestRecordRatingValidation(t *testing.T) {
	handler := NewMux(newTestService(t, false), nil, Options{PathPrefix: "/api"})

	assert.Equal(t, http.StatusBadRequest, do(t, handler, http.MethodPost, "/api/users/alice/ratings?stars=bad").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, handler, http.MethodPost, "/api/users/alice/ratings?stars=9").Code)
	assert.Equal(t, http.StatusOK, do(t, handler, http.MethodPost, "/api/users/alice/ratings?stars=5").Code)
}

func TestRecordLogin(t *testing.T) {
	today := fixedNow.AddDate(0, 0, 1)
	handler := NewMux(newTestService(t, false), nil, Options{PathPrefix: "/api", Now: func() time.Time { return today }})
	streak := func(rec *httptest.ResponseRecorder) float64 {
		record := decode(t, rec)["record"].(map[string]any)
		return record["counters"].(map[string]any)["streak_days"].(float64)
	}

	rec := do(t, handler, http.MethodPost, "/api/users/alice/logins?at=2026-03-02T08:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, handler, http.MethodPost, "/api/users/alice/logins")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), streak(rec))

	assert.Equal(t, http.StatusBadRequest, do(t, handler, http.MethodPost, "/api/users/alice/logins?at=yesterday").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, handler, http.MethodPost, "/api/users/alice/logins?at=2026-03-04T00:00:00Z").Code)

	rec = do(t, handler, http.MethodPost, "/api/users/alice/logins?at=2026-02-20T08:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, true, resp["duplicate"])
	assert.Equal(t, float64(0), resp["xp"])
	assert.Equal(t, float64(2), streak(rec))
}

func TestGetUserAndProgress(t *testing.T) {
	handler := NewMux(newTestService(t, false), nil, Options{PathPrefix: "/api"})
	require.Equal(t, http.StatusOK, do(t, handler, http.MethodPost, "/api/users/alice/actions/complete_skill_exchange").Code)

	rec := do(t, handler, http.MethodGet, "/api/users/unknown")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, handler, http.MethodGet, "/api/users/alice/progress")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, float64(2), resp["level"])
	display := resp["display"].(map[string]any)
	assert.Equal(t, "150 XP", display["xp"])
	assert.Equal(t, "Curious Explorer", display["level"])
	assert.Equal(t, "95 coins", display["personal_currency"])
}

func TestLeaderboardRoutes(t *testing.T) {
	handler := NewMux(newTestService(t, true), nil, Options{PathPrefix: "/api"})

	assert.Equal(t, http.StatusBadRequest, do(t, handler, http.MethodGet, "/api/leaderboards/daily/overall").Code)
	assert.Equal(t, http.StatusNotFound, do(t, handler, http.MethodGet, "/api/leaderboards/all_time/overall").Code)

	do(t, handler, http.MethodPost, "/api/users/bob/actions/complete_skill_exchange")
	do(t, handler, http.MethodPost, "/api/users/alice/actions/create_post")
	require.Equal(t, http.StatusOK, do(t, handler, http.MethodPost, "/api/leaderboards/recompute").Code)

	rec := do(t, handler, http.MethodGet, "/api/leaderboards/all_time/overall?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode(t, rec)["rows"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "bob", rows[0].(map[string]any)["user_id"])
}

func TestLeaderboardsDisabled(t *testing.T) {
	handler := NewMux(newTestService(t, false), nil, Options{})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, handler, http.MethodGet, "/leaderboards/all_time/xp").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, handler, http.MethodPost, "/leaderboards/recompute").Code)
}

func TestCatalogRoutes(t *testing.T) {
	handler := NewMux(newTestService(t, false), nil, Options{PathPrefix: "/api/"})

	rec := do(t, handler, http.MethodGet, "/api/catalog/levels")
	require.Equal(t, http.StatusOK, rec.Code)
	var levels []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &levels))
	assert.Len(t, levels, 10)

	assert.Equal(t, http.StatusOK, do(t, handler, http.MethodGet, "/api/catalog/achievements").Code)
	assert.Equal(t, http.StatusOK, do(t, handler, http.MethodGet, "/api/catalog/actions").Code)
	assert.Equal(t, http.StatusNotFound, do(t, handler, http.MethodGet, "/api/catalog/quests").Code)
}

func TestHealthz(t *testing.T) {
	handler := NewMux(newTestService(t, false), nil, Options{PathPrefix: "/api"})
	rec := do(t, handler, http.MethodGet, "/api/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestAPIKeyAuth(t *testing.T) {
	handler := NewMux(newTestService(t, false), nil, Options{
		PathPrefix:      "/api",
		APIKeys:         []string{"secret"},
		AllowCORSOrigin: "*",
	})

	rec := do(t, handler, http.MethodGet, "/api/users/alice")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/users/alice", nil)
	req2.Header.Set("Authorization", "Bearer secret")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec2.Code)
	}

	preflight := do(t, handler, http.MethodOptions, "/api/users/alice")
	if preflight.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204 without key, got %d", preflight.Code)
	}
}

func TestRateLimit(t *testing.T) {
	handler := NewMux(newTestService(t, false), nil, Options{
		PathPrefix:       "/api",
		APIKeys:          []string{"k"},
		RateLimitEnabled: true,
		RateLimitRPM:     1,
		RateLimitBurst:   1,
	})

	req1 := httptest.NewRequest(http.MethodGet, "/api/users/alice", nil)
	req1.Header.Set("X-API-Key", "k")
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected 200 first request, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/users/alice", nil)
	req2.Header.Set("X-API-Key", "k")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec2.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	handler := NewMux(newTestService(t, false), nil, Options{PathPrefix: "/api"})
	rec := do(t, handler, http.MethodGet, "/api/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode(t, rec)["code"])
}

func TestRateLimiterRefills(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newRateLimiter(60, 2, func() time.Time { return now })

	ok, _ := l.take("a")
	require.True(t, ok)
	ok, _ = l.take("a")
	require.True(t, ok)
	ok, wait := l.take("a")
	require.False(t, ok)
	assert.Equal(t, time.Second, wait)

	ok, _ = l.take("b")
	assert.True(t, ok, "clients have separate buckets")

	now = now.Add(time.Second)
	ok, _ = l.take("a")
	assert.True(t, ok, "one token refills per second at 60 rpm")

	now = now.Add(time.Minute)
	_, _ = l.take("c")
	assert.NotContains(t, l.buckets, "b", "idle buckets are swept")
}

func TestRateLimitRetryAfter(t *testing.T) {
	handler := NewMux(newTestService(t, false), nil, Options{
		PathPrefix:       "/api",
		RateLimitEnabled: true,
		RateLimitRPM:     1,
		RateLimitBurst:   1,
	})
	do(t, handler, http.MethodGet, "/api/healthz")
	rec := do(t, handler, http.MethodGet, "/api/healthz")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
