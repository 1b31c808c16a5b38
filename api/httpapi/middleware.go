package httpapi

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	writeJSON(w, status, apiError{Code: code, Message: msg, Details: details})
}

// corsPolicy answers preflight requests itself so they never reach auth.
func corsPolicy(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// requireAPIKey accepts "Authorization: Bearer <key>" or "X-API-Key: <key>".
func requireAPIKey(keys []string) func(http.Handler) http.Handler {
	allowed := map[string]bool{}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			allowed[k] = true
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch key := apiKeyOf(r); {
			case key == "":
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key", nil)
			case !allowed[key]:
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key", nil)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// rateLimit applies a token bucket per client: the API key when one is sent,
// the remote IP otherwise.
func rateLimit(rpm, burst int) func(http.Handler) http.Handler {
	limiter := newRateLimiter(rpm, burst, time.Now)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := limiter.take(clientOf(r))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func apiKeyOf(r *http.Request) string {
	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func clientOf(r *http.Request) string {
	if key := apiKeyOf(r); key != "" {
		return "key:" + key
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return "ip:" + host
	}
	return "ip:" + r.RemoteAddr
}

// rateLimiter holds one bucket per client. Buckets idle for longer than a
// full refill are dropped on the next sweep.
type rateLimiter struct {
	perSecond float64
	burst     float64
	now       func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	nextSweep time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

func newRateLimiter(rpm, burst int, now func() time.Time) *rateLimiter {
	return &rateLimiter{
		perSecond: float64(rpm) / 60,
		burst:     float64(burst),
		now:       now,
		buckets:   map[string]*bucket{},
	}
}

func (l *rateLimiter) refillTime() time.Duration {
	return time.Duration(l.burst / l.perSecond * float64(time.Second))
}

// take spends one token for client. When none is left it reports how long
// until the next one arrives.
func (l *rateLimiter) take(client string) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.nextSweep) {
		idle := l.refillTime()
		for k, b := range l.buckets {
			if now.Sub(b.seen) > idle {
				delete(l.buckets, k)
			}
		}
		l.nextSweep = now.Add(idle)
	}

	b := l.buckets[client]
	if b == nil {
		b = &bucket{tokens: l.burst, seen: now}
		l.buckets[client] = b
	}
	b.tokens = math.Min(l.burst, b.tokens+now.Sub(b.seen).Seconds()*l.perSecond)
	b.seen = now
	if b.tokens < 1 {
		return false, time.Duration((1 - b.tokens) / l.perSecond * float64(time.Second))
	}
	b.tokens--
	return true, 0
}
