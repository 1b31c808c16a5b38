package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"skillforge/core"
)

// SignatureHeader carries the hex HMAC-SHA256 of the body when a secret is set.
const SignatureHeader = "X-Skillforge-Signature"

// Sink posts domain events to configured HTTP endpoints.
// It is synchronous; register it on an async bus to keep publishers fast.
type Sink struct {
	client    *http.Client
	endpoints []string
	types     map[core.EventType]struct{}
	secret    []byte
	logger    *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the HTTP client (defaults to 2s timeout).
func WithClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

// WithEventTypes limits delivery to the given types.
func WithEventTypes(types ...core.EventType) Option {
	return func(s *Sink) {
		for _, t := range types {
			s.types[t] = struct{}{}
		}
	}
}

// WithSecret signs every delivery.
func WithSecret(secret string) Option {
	return func(s *Sink) { s.secret = []byte(secret) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a webhook sink.
func New(endpoints []string, opts ...Option) *Sink {
	s := &Sink{
		client: &http.Client{Timeout: 2 * time.Second},
		types:  map[core.EventType]struct{}{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.endpoints = append([]string{}, endpoints...)
	return s
}

// Wants reports whether the sink delivers events of type t.
func (s *Sink) Wants(t core.EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// OnEvent posts the event JSON to all endpoints. Delivery failures are
// logged and never retried.
func (s *Sink) OnEvent(ctx context.Context, e core.Event) {
	if len(s.endpoints) == 0 || !s.Wants(e.Type) {
		return
	}
	body, err := json.Marshal(e)
	if err != nil {
		s.logger.Error("webhook encode failed", "type", e.Type, "error", err)
		return
	}
	var signature string
	if len(s.secret) > 0 {
		mac := hmac.New(sha256.New, s.secret)
		mac.Write(body)
		signature = hex.EncodeToString(mac.Sum(nil))
	}
	for _, ep := range s.endpoints {
		req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, ep, bytes.NewReader(body))
		if err != nil {
			s.logger.Error("webhook request invalid", "endpoint", ep, "error", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		if signature != "" {
			req.Header.Set(SignatureHeader, signature)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			s.logger.Warn("webhook delivery failed", "endpoint", ep, "type", e.Type, "error", err)
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode >= 300 {
			s.logger.Warn("webhook rejected", "endpoint", ep, "type", e.Type, "status", resp.StatusCode)
		}
	}
}
