package sdk

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"skillforge/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the Skillforge HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// RecordAction credits userID for one occurrence of action.
func (c *Client) RecordAction(ctx context.Context, userID, action string) (Outcome, error) {
	if strings.TrimSpace(userID) == "" {
		return Outcome{}, ErrEmptyUserID
	}
	var out Outcome
	err := c.do(ctx, http.MethodPost, userPath(userID, "actions", url.PathEscape(action)), nil, &out)
	return out, err
}

// RecordLogin records a daily login. A zero at lets the server use its clock.
func (c *Client) RecordLogin(ctx context.Context, userID string, at time.Time) (Outcome, error) {
	if strings.TrimSpace(userID) == "" {
		return Outcome{}, ErrEmptyUserID
	}
	q := url.Values{}
	if !at.IsZero() {
		q.Set("at", at.UTC().Format(time.RFC3339))
	}
	var out Outcome
	err := c.do(ctx, http.MethodPost, userPath(userID, "logins"), q, &out)
	return out, err
}

// RecordRating records a 1 to 5 star rating received by userID.
func (c *Client) RecordRating(ctx context.Context, userID string, stars int) (Outcome, error) {
	if strings.TrimSpace(userID) == "" {
		return Outcome{}, ErrEmptyUserID
	}
	q := url.Values{"stars": {strconv.Itoa(stars)}}
	var out Outcome
	err := c.do(ctx, http.MethodPost, userPath(userID, "ratings"), q, &out)
	return out, err
}

// Evaluate asks the server to re-check levels and achievements for userID.
func (c *Client) Evaluate(ctx context.Context, userID string) (Outcome, error) {
	if strings.TrimSpace(userID) == "" {
		return Outcome{}, ErrEmptyUserID
	}
	var out Outcome
	err := c.do(ctx, http.MethodPost, userPath(userID, "evaluate"), nil, &out)
	return out, err
}

// GetUser fetches the stored record for a user.
func (c *Client) GetUser(ctx context.Context, userID string) (core.UserRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return core.UserRecord{}, ErrEmptyUserID
	}
	var rec core.UserRecord
	err := c.do(ctx, http.MethodGet, userPath(userID), nil, &rec)
	return rec, err
}

// GetProgress fetches level progress with display strings.
func (c *Client) GetProgress(ctx context.Context, userID string) (Progress, error) {
	if strings.TrimSpace(userID) == "" {
		return Progress{}, ErrEmptyUserID
	}
	var p Progress
	err := c.do(ctx, http.MethodGet, userPath(userID, "progress"), nil, &p)
	return p, err
}

// Leaderboard fetches the latest snapshot of a board. limit <= 0 returns all rows.
func (c *Client) Leaderboard(ctx context.Context, period, category string, limit int) (Leaderboard, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var lb Leaderboard
	path := "/leaderboards/" + url.PathEscape(period) + "/" + url.PathEscape(category)
	err := c.do(ctx, http.MethodGet, path, q, &lb)
	return lb, err
}

// RecomputeLeaderboards triggers a scoring pass and returns the published boards.
func (c *Client) RecomputeLeaderboards(ctx context.Context) ([]string, error) {
	var body struct {
		Published []string `json:"published"`
	}
	err := c.do(ctx, http.MethodPost, "/leaderboards/recompute", nil, &body)
	return body.Published, err
}

// Levels returns the level ladder.
func (c *Client) Levels(ctx context.Context) ([]Level, error) {
	var levels []Level
	err := c.do(ctx, http.MethodGet, "/catalog/levels", nil, &levels)
	return levels, err
}

// Achievements returns every achievement definition.
func (c *Client) Achievements(ctx context.Context) ([]Achievement, error) {
	var list []Achievement
	err := c.do(ctx, http.MethodGet, "/catalog/achievements", nil, &list)
	return list, err
}

// Health probes /healthz and returns status + storage check.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	err := c.do(ctx, http.MethodGet, "/healthz", nil, &hs)
	return hs, err
}

// StreamFilter narrows the event stream server-side.
type StreamFilter struct {
	User  string
	Types []core.EventType
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context, filter StreamFilter) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	target := c.wsURL
	q := url.Values{}
	if filter.User != "" {
		q.Set("user", filter.User)
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		q.Set("types", strings.Join(types, ","))
	}
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, target, c.headers)
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	out := make(chan core.Event, 32)
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				var evt core.Event
				if err := conn.ReadJSON(&evt); err != nil {
					return
				}
				select {
				case out <- evt:
				default:
					// drop if consumer is slow
				}
			}
		}
	}()
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, target any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, target)
}

func userPath(userID string, parts ...string) string {
	p := "/users/" + url.PathEscape(userID)
	if len(parts) > 0 {
		p += "/" + strings.Join(parts, "/")
	}
	return p
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
