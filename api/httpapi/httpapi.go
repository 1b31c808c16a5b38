package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	wsadapter "skillforge/adapters/websocket"
	"skillforge/engine"
	"skillforge/realtime"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// Now overrides the clock used for login timestamps.
	Now func() time.Time
}

// NewMux builds an http.Handler exposing the progression REST API and WebSocket stream.
// Routes:
//   - POST {prefix}/users/{id}/actions/{action}
//   - POST {prefix}/users/{id}/logins[?at=RFC3339]
//   - POST {prefix}/users/{id}/ratings?stars=N
//   - POST {prefix}/users/{id}/evaluate
//   - GET  {prefix}/users/{id}
//   - GET  {prefix}/users/{id}/progress
//   - GET  {prefix}/leaderboards/{period}/{category}?limit=N
//   - POST {prefix}/leaderboards/recompute
//   - GET  {prefix}/catalog/{actions|levels|achievements}
//   - GET  {prefix}/healthz
//   - WS   {prefix}/ws[?user=ID&types=a,b]
func NewMux(svc *engine.GamifyService, hub *realtime.Hub, opts Options) http.Handler {
	h := &handlers{svc: svc, now: time.Now}
	if opts.Now != nil {
		h.now = opts.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		r.Use(rateLimit(opts.RateLimitRPM, opts.RateLimitBurst))
	}
	if opts.AllowCORSOrigin != "" {
		r.Use(corsPolicy(opts.AllowCORSOrigin))
	}
	if len(opts.APIKeys) > 0 {
		r.Use(requireAPIKey(opts.APIKeys))
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	routes := func(r chi.Router) {
		r.Get("/healthz", h.health)
		if hub != nil {
			r.Handle("/ws", wsadapter.Handler(hub))
		}
		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", h.getUser)
			r.Get("/progress", h.getProgress)
			r.Post("/actions/{action}", h.recordAction)
			r.Post("/logins", h.recordLogin)
			r.Post("/ratings", h.recordRating)
			r.Post("/evaluate", h.evaluate)
		})
		r.Get("/leaderboards/{period}/{category}", h.getLeaderboard)
		r.Post("/leaderboards/recompute", h.recompute)
		r.Get("/catalog/{kind}", h.getCatalog)
	}
	if p := trimPrefix(opts.PathPrefix); p != "" {
		r.Route(p, routes)
	} else {
		routes(r)
	}

	return r
}

func trimPrefix(prefix string) string {
	for len(prefix) > 0 && prefix[len(prefix)-1] == '/' {
		prefix = prefix[:len(prefix)-1]
	}
	if prefix != "" && prefix[0] != '/' {
		prefix = "/" + prefix
	}
	return prefix
}
