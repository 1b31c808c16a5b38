package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"skillforge/catalog"
	"skillforge/core"
	"skillforge/currency"
	"skillforge/leaderboard"
	"skillforge/progression"
)

var (
	// ErrInvalidStars is returned for ratings outside 1..5.
	ErrInvalidStars = errors.New("stars must be between 1 and 5")
	// ErrLeaderboardsDisabled is returned when no snapshot store is wired.
	ErrLeaderboardsDisabled = errors.New("leaderboards are not configured")
)

// positiveRating is the lowest star count that also credits the
// receive_positive_rating action.
const positiveRating = 4

// Outcome describes everything one operation granted.
type Outcome struct {
	UserID core.UserID `json:"user_id"`
	Action string      `json:"action,omitempty"`
	// Known is false when the action is not in the catalog; nothing was
	// granted in that case.
	Known bool `json:"known"`
	// Duplicate is set when a daily login was already recorded for that day
	// or a later one.
	Duplicate        bool                            `json:"duplicate,omitempty"`
	XP               int64                           `json:"xp"`
	CappedXP         int64                           `json:"capped_xp,omitempty"`
	PersonalCurrency int64                           `json:"personal_currency"`
	ClubCurrency     int64                           `json:"club_currency"`
	LevelUps         []catalog.LevelDefinition       `json:"level_ups,omitempty"`
	Achievements     []catalog.AchievementDefinition `json:"achievements,omitempty"`
	Record           core.UserRecord                 `json:"record"`
}

// Progress is the display view of a user's level.
type Progress struct {
	UserID        core.UserID `json:"user_id"`
	XP            int64       `json:"xp"`
	Level         int64       `json:"level"`
	Title         string      `json:"title"`
	XPToNextLevel int64       `json:"xp_to_next_level"`
	Percent       float64     `json:"percent"`
	MaxLevel      bool        `json:"max_level"`
}

// ProgressOf derives the progress view from XP alone.
func ProgressOf(user core.UserID, xp int64) Progress {
	l := progression.LevelFor(xp)
	return Progress{
		UserID:        user,
		XP:            xp,
		Level:         l.Level,
		Title:         l.Title,
		XPToNextLevel: progression.XPToNextLevel(xp),
		Percent:       progression.LevelProgressPercent(xp),
		MaxLevel:      l.Top(),
	}
}

// ServiceOption configures a GamifyService.
type ServiceOption func(*GamifyService)

// WithLogger overrides the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(g *GamifyService) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithClock overrides the time source used for days and unlock stamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(g *GamifyService) {
		if now != nil {
			g.now = now
		}
	}
}

// WithUnknownActionHook is called with every action missing from the catalog.
func WithUnknownActionHook(fn func(action string)) ServiceOption {
	return func(g *GamifyService) { g.onUnknown = fn }
}

// WithLeaderboards wires snapshot reads and on-demand regeneration.
func WithLeaderboards(store SnapshotStore, scheduler *leaderboard.Scheduler) ServiceOption {
	return func(g *GamifyService) {
		g.snapshots = store
		g.scheduler = scheduler
	}
}

// GamifyService wires storage, event bus and the reward engines into the
// host-facing API. It is the only writer of XP, level, currency and
// achievement state.
type GamifyService struct {
	storage   Storage
	bus       *EventBus
	logger    *slog.Logger
	now       func() time.Time
	onUnknown func(string)
	snapshots SnapshotStore
	scheduler *leaderboard.Scheduler
}

func NewGamifyService(storage Storage, bus *EventBus, opts ...ServiceOption) *GamifyService {
	if storage == nil || bus == nil {
		panic("NewGamifyService requires non-nil storage and bus")
	}
	g := &GamifyService{storage: storage, bus: bus, logger: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Subscribe convenience method.
func (g *GamifyService) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return g.bus.Subscribe(typ, handler)
}

func (g *GamifyService) Publish(ctx context.Context, ev core.Event) {
	g.bus.Publish(ctx, ev)
}

// Bus exposes the underlying event bus.
func (g *GamifyService) Bus() *EventBus { return g.bus }

// Scheduler returns the leaderboard scheduler, or nil when leaderboards are
// disabled.
func (g *GamifyService) Scheduler() *leaderboard.Scheduler { return g.scheduler }

// RecordAction credits a user for one occurrence of action: counter bump,
// XP truncated by the action's daily budget, currency, then any level-ups
// and achievements that follow. Unknown actions grant nothing and are not an
// error.
func (g *GamifyService) RecordAction(ctx context.Context, user core.UserID, action string) (Outcome, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return Outcome{}, err
	}
	def, ok := catalog.LookupAction(action)
	if !ok {
		g.unknown(normalized, action)
		return Outcome{UserID: normalized, Action: action}, nil
	}

	xp := progression.XPForAction(action)
	granted := xp
	budget := "xp:" + action
	day := core.DayKey(g.now())
	charged := def.Capped() && xp > 0
	if charged {
		used, err := g.storage.AddDaily(ctx, normalized, budget, day, xp)
		if err != nil {
			return Outcome{}, fmt.Errorf("daily xp budget: %w", err)
		}
		granted = progression.CappedXP(xp, def.MaxPerDay, used)
	}
	personal := currency.PersonalForAction(action)
	club := currency.ClubForAction(action)

	out, err := g.mutate(ctx, normalized, action, func(u *unit) error {
		u.out.CappedXP = xp - granted
		if err := u.bump(def.Counter); err != nil {
			return err
		}
		return u.award(action, granted, personal, club)
	})
	if err != nil && charged {
		// The charge was never credited; give it back.
		if _, rerr := g.storage.AddDaily(context.WithoutCancel(ctx), normalized, budget, day, -xp); rerr != nil {
			g.logger.Warn("refund daily xp budget", "user_id", normalized, "action", action, "error", rerr)
		}
	}
	return out, err
}

// RecordDailyLogin updates the login streak for the UTC day of at. The first
// login of a day extends the streak (or restarts it after a gap) and grants
// the daily_login rewards plus the streak bonus. Later logins that day, and
// logins dated before the last recorded day, are no-ops marked Duplicate.
func (g *GamifyService) RecordDailyLogin(ctx context.Context, user core.UserID, at time.Time) (Outcome, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return Outcome{}, err
	}
	action := string(catalog.ActionDailyLogin)
	day := core.DayKey(at)
	yesterday := core.DayKey(at.AddDate(0, 0, -1))

	return g.mutate(ctx, normalized, action, func(u *unit) error {
		c := &u.rec.Counters
		// Day keys are ISO dates, so string order is date order.
		if c.LastActiveDay != "" && day <= c.LastActiveDay {
			u.out.Duplicate = true
			return nil
		}
		if c.LastActiveDay == yesterday {
			c.StreakDays++
		} else {
			c.StreakDays = 1
		}
		c.LastActiveDay = day
		if c.StreakDays > c.LongestStreak {
			c.LongestStreak = c.StreakDays
		}
		u.events = append(u.events, core.NewStreakUpdated(u.rec.UserID, c.StreakDays))

		personal := currency.PersonalForAction(action) + currency.StreakBonus(c.StreakDays)
		return u.award(action, progression.XPForAction(action), personal, currency.ClubForAction(action))
	})
}

// RecordRating adds a received rating of 1..5 stars to the user's average.
// Ratings of 4 stars and up also credit receive_positive_rating.
func (g *GamifyService) RecordRating(ctx context.Context, user core.UserID, stars int) (Outcome, error) {
	if stars < 1 || stars > 5 {
		return Outcome{}, ErrInvalidStars
	}
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return Outcome{}, err
	}
	action := string(catalog.ActionReceivePositiveRating)
	return g.mutate(ctx, normalized, "rating", func(u *unit) error {
		c := &u.rec.Counters
		sum, err := core.AddSafe(c.RatingSum, int64(stars))
		if err != nil {
			return err
		}
		c.RatingSum = sum
		c.RatingCount++
		if stars < positiveRating {
			return nil
		}
		return u.award(action, progression.XPForAction(action), currency.PersonalForAction(action), currency.ClubForAction(action))
	})
}

// Evaluate re-derives level and achievements from the stored counters
// without crediting any action.
func (g *GamifyService) Evaluate(ctx context.Context, user core.UserID) (Outcome, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return Outcome{}, err
	}
	return g.mutate(ctx, normalized, "", func(*unit) error { return nil })
}

// State returns the stored record.
func (g *GamifyService) State(ctx context.Context, user core.UserID) (core.UserRecord, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return core.UserRecord{}, err
	}
	return g.storage.Get(ctx, normalized)
}

// Progress returns the level view of a user.
func (g *GamifyService) Progress(ctx context.Context, user core.UserID) (Progress, error) {
	rec, err := g.State(ctx, user)
	if err != nil {
		return Progress{}, err
	}
	return ProgressOf(rec.UserID, rec.Counters.ExperiencePoints), nil
}

// Leaderboard returns the latest snapshot of a board.
func (g *GamifyService) Leaderboard(ctx context.Context, key leaderboard.Key) (leaderboard.Snapshot, error) {
	if g.snapshots == nil {
		return leaderboard.Snapshot{}, ErrLeaderboardsDisabled
	}
	return g.snapshots.Snapshot(ctx, key)
}

// RecomputeLeaderboards runs a scoring pass now.
func (g *GamifyService) RecomputeLeaderboards(ctx context.Context) ([]leaderboard.Snapshot, error) {
	if g.scheduler == nil {
		return nil, ErrLeaderboardsDisabled
	}
	return g.scheduler.RunOnce(ctx)
}

func (g *GamifyService) Close() { g.bus.Close() }

func (g *GamifyService) unknown(user core.UserID, action string) {
	g.logger.Warn("unknown action ignored", "user_id", user, "action", action)
	if g.onUnknown != nil {
		g.onUnknown(action)
	}
}

// mutate runs body and settle inside one storage mutation and publishes the
// collected events once it has committed.
func (g *GamifyService) mutate(ctx context.Context, user core.UserID, action string, body func(*unit) error) (Outcome, error) {
	var last *unit
	rec, err := g.storage.Mutate(ctx, user, func(r *core.UserRecord) error {
		u := newUnit(r, g.now().UTC(), action)
		last = u
		if err := body(u); err != nil {
			return err
		}
		if u.out.Duplicate {
			return nil
		}
		return u.settle()
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("update user %s: %w", user, err)
	}
	out := last.out
	out.Record = rec
	for _, ev := range last.events {
		g.bus.Publish(ctx, ev)
	}
	if len(out.LevelUps) > 0 || len(out.Achievements) > 0 {
		g.logger.Debug("progression", "user_id", user, "level", rec.Counters.Level,
			"level_ups", len(out.LevelUps), "achievements", len(out.Achievements))
	}
	return out, nil
}
