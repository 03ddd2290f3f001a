package ratelimit

import (
	"context"
	"fmt"
	"time"

	errs "instabot/pkg/errors"
	"instabot/pkg/logger"
	"instabot/pkg/models"
)

const (
	// WorkShiftHours is the operating-day length the hourly cap must be
	// able to fill the daily cap within.
	WorkShiftHours = 16
	// DefaultCooldown is the pause between budget re-checks.
	DefaultCooldown = 10 * time.Minute

	Hour = time.Hour
	Day  = 24 * time.Hour
)

// History is the read side of the history store the throttle needs.
type History interface {
	ListFollowedSince(ctx context.Context, since time.Time) ([]models.FollowRecord, error)
	ListUnfollowedSince(ctx context.Context, since time.Time) ([]models.UnfollowRecord, error)
	ListLikedSince(ctx context.Context, since time.Time) ([]models.LikedPhotoRecord, error)
}

// Limits are the rolling-window budgets. Follow and unfollow actions share
// the follow budgets.
type Limits struct {
	MaxFollowsPerHour int
	MaxFollowsPerDay  int
	MaxLikesPerDay    int
}

// Validate checks that the budgets are positive and that the daily budget
// is reachable within a work shift.
func (l Limits) Validate() error {
	if l.MaxFollowsPerHour <= 0 || l.MaxFollowsPerDay <= 0 {
		return errs.New(errs.ErrorTypeConfig, "follow limits must be positive")
	}
	if l.MaxLikesPerDay < 0 {
		return errs.New(errs.ErrorTypeConfig, "like limit cannot be negative")
	}
	if l.MaxFollowsPerHour*WorkShiftHours < l.MaxFollowsPerDay {
		return errs.New(errs.ErrorTypeConfig, fmt.Sprintf(
			"max follows per hour (%d) over a %dh shift cannot reach max follows per day (%d)",
			l.MaxFollowsPerHour, WorkShiftHours, l.MaxFollowsPerDay))
	}
	return nil
}

// Throttle blocks state-changing actions while a budget window is full.
type Throttle struct {
	history  History
	limits   Limits
	cooldown time.Duration
	clock    Clock
	sleeper  Sleeper
	logger   logger.Logger
	onPause  func(window time.Duration)
}

// Option configures a Throttle.
type Option func(*Throttle)

// WithClock overrides the time source.
func WithClock(c Clock) Option { return func(t *Throttle) { t.clock = c } }

// WithSleeper overrides how pauses are performed.
func WithSleeper(s Sleeper) Option { return func(t *Throttle) { t.sleeper = s } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(t *Throttle) { t.logger = l } }

// WithCooldown overrides the pause between budget re-checks.
func WithCooldown(d time.Duration) Option { return func(t *Throttle) { t.cooldown = d } }

// WithPauseHook registers a callback invoked before each pause.
func WithPauseHook(fn func(window time.Duration)) Option {
	return func(t *Throttle) { t.onPause = fn }
}

// NewThrottle validates limits and builds a throttle over history.
func NewThrottle(history History, limits Limits, opts ...Option) (*Throttle, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}

	t := &Throttle{
		history:  history,
		limits:   limits,
		cooldown: DefaultCooldown,
		clock:    SystemClock(),
		sleeper:  TimerSleeper{},
		logger:   logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Limits returns the configured budgets.
func (t *Throttle) Limits() Limits { return t.limits }

// CountRecentActions counts follows and real unfollows younger than window.
func (t *Throttle) CountRecentActions(ctx context.Context, window time.Duration) (int, error) {
	since := t.clock.Now().Add(-window)

	followed, err := t.history.ListFollowedSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("failed to list followed history: %w", err)
	}
	unfollowed, err := t.history.ListUnfollowedSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("failed to list unfollowed history: %w", err)
	}

	count := len(followed)
	for _, u := range unfollowed {
		if !u.NoActionTaken {
			count++
		}
	}
	return count, nil
}

// CountRecentLikes counts likes younger than window.
func (t *Throttle) CountRecentLikes(ctx context.Context, window time.Duration) (int, error) {
	liked, err := t.history.ListLikedSince(ctx, t.clock.Now().Add(-window))
	if err != nil {
		return 0, fmt.Errorf("failed to list liked history: %w", err)
	}
	return len(liked), nil
}

// Wait blocks until both the daily and hourly follow budgets have room.
// History read failures are logged and retried after a cooldown; the only
// error returned is the context's.
func (t *Throttle) Wait(ctx context.Context) error {
	for {
		window, count, limit, err := t.exhaustedWindow(ctx)
		if err != nil {
			t.logger.WithError(err).Warn("failed to read action history, retrying after cooldown")
			if err := t.pause(ctx, 0); err != nil {
				return err
			}
			continue
		}
		if window == 0 {
			return nil
		}

		logger.LogThrottle(t.logger, window, count, limit, t.cooldown)
		if err := t.pause(ctx, window); err != nil {
			return err
		}
	}
}

// exhaustedWindow returns the first full window, or zero when both have room.
func (t *Throttle) exhaustedWindow(ctx context.Context) (time.Duration, int, int, error) {
	day, err := t.CountRecentActions(ctx, Day)
	if err != nil {
		return 0, 0, 0, err
	}
	if day >= t.limits.MaxFollowsPerDay {
		return Day, day, t.limits.MaxFollowsPerDay, nil
	}

	hour, err := t.CountRecentActions(ctx, Hour)
	if err != nil {
		return 0, 0, 0, err
	}
	if hour >= t.limits.MaxFollowsPerHour {
		return Hour, hour, t.limits.MaxFollowsPerHour, nil
	}
	return 0, 0, 0, nil
}

func (t *Throttle) pause(ctx context.Context, window time.Duration) error {
	if t.onPause != nil && window > 0 {
		t.onPause(window)
	}
	return t.sleeper.Sleep(ctx, t.cooldown)
}

// LikeBudgetAvailable reports whether another like fits the daily budget.
func (t *Throttle) LikeBudgetAvailable(ctx context.Context) (bool, error) {
	likes, err := t.CountRecentLikes(ctx, Day)
	if err != nil {
		return false, err
	}
	return likes < t.limits.MaxLikesPerDay, nil
}

// LogUsage logs current budget consumption.
func (t *Throttle) LogUsage(ctx context.Context) {
	hour, errHour := t.CountRecentActions(ctx, Hour)
	day, errDay := t.CountRecentActions(ctx, Day)
	likes, errLikes := t.CountRecentLikes(ctx, Day)
	if errHour != nil || errDay != nil || errLikes != nil {
		t.logger.Warn("could not read action history for usage report")
		return
	}

	t.logger.InfoWithFields("action budget usage", map[string]interface{}{
		"actions_1h":      hour,
		"actions_24h":     day,
		"likes_24h":       likes,
		"max_per_hour":    t.limits.MaxFollowsPerHour,
		"max_per_day":     t.limits.MaxFollowsPerDay,
		"max_likes_daily": t.limits.MaxLikesPerDay,
	})
}
