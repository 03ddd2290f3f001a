package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"instabot/pkg/config"
	errs "instabot/pkg/errors"
	"instabot/pkg/logger"
	"instabot/pkg/metrics"
	"instabot/pkg/models"
	"instabot/pkg/policy"
	"instabot/pkg/ratelimit"
	"instabot/pkg/relations"
	"instabot/pkg/storage"
)

// Pauses between steps. Each is stretched by a random factor in
// [1, 1+deviation) unless a smaller deviation is given at the call site.
const (
	noActionPause       = 3 * time.Second
	unfollowPause       = 15 * time.Second
	unfollowBreakEvery  = 10
	unfollowBreak       = 10 * time.Minute
	unfollowBreakJitter = 0.1
	followPause         = 30 * time.Second
	alreadyFollowPause  = 5 * time.Second
	failedFollowPause   = time.Minute
	candidateErrorPause = 20 * time.Second
	likePause           = 3 * time.Second
	seedPause           = 10 * time.Minute
	seedErrorPause      = time.Minute

	defaultDeviation       = 1.0
	defaultPageSize        = 50
	defaultBlockedCooldown = 3 * time.Hour
)

// Deps are the collaborators a Bot drives. Store, Throttle, Executor,
// Profiles and Relations are required.
type Deps struct {
	Store     storage.HistoryStore
	Throttle  Throttle
	Executor  Executor
	Profiles  ProfileSource
	Relations RelationshipSource
	Sessions  SessionInvalidator

	Clock   ratelimit.Clock
	Sleeper ratelimit.Sleeper
	Jitter  *ratelimit.Jitter
	Metrics *metrics.Metrics
	Logger  logger.Logger
}

// Options tune campaign behaviour.
type Options struct {
	Username string
	DryRun   bool
	PageSize int

	Follow   policy.FollowCriteria
	Unfollow policy.UnfollowCriteria

	EnableLikeImages bool
	LikeImagesMin    int
	LikeImagesMax    int
	ShouldLikeMedia  policy.MediaPredicate

	BlockedCooldown time.Duration
}

// OptionsFromConfig maps the loaded configuration onto bot options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Username: cfg.Instagram.Username,
		DryRun:   cfg.DryRun,
		PageSize: cfg.Instagram.PageSize,
		Follow: policy.FollowCriteria{
			SkipPrivate:  cfg.Follow.SkipPrivate,
			MaxFollowers: cfg.Follow.MaxFollowers,
			MaxFollowing: cfg.Follow.MaxFollowing,
			MinFollowers: cfg.Follow.MinFollowers,
			MinFollowing: cfg.Follow.MinFollowing,
			RatioMin:     cfg.Follow.RatioMin,
			RatioMax:     cfg.Follow.RatioMax,
		},
		Unfollow: policy.UnfollowCriteria{
			ExcludeUsers: cfg.Unfollow.ExcludeUsers,
			GracePeriod:  cfg.Unfollow.DontUnfollowUntil,
		},
		EnableLikeImages: cfg.Follow.EnableLikeImages,
		LikeImagesMin:    cfg.Follow.LikeImagesMin,
		LikeImagesMax:    cfg.Follow.LikeImagesMax,
		BlockedCooldown:  cfg.Timing.BlockedCooldown,
	}
}

// Bot runs follow, unfollow and like campaigns for one account. It is not
// safe for concurrent use.
type Bot struct {
	deps      Deps
	opts      Options
	log       logger.Logger
	runID     string
	ownID     string
	// startedAt bounds the unfollow records the mode checks honour.
	startedAt time.Time
}

// New validates deps and fills in defaults for the optional ones.
func New(deps Deps, opts Options) (*Bot, error) {
	var missing []string
	if deps.Store == nil {
		missing = append(missing, "store")
	}
	if deps.Throttle == nil {
		missing = append(missing, "throttle")
	}
	if deps.Executor == nil {
		missing = append(missing, "executor")
	}
	if deps.Profiles == nil {
		missing = append(missing, "profile source")
	}
	if deps.Relations == nil {
		missing = append(missing, "relationship source")
	}
	if len(missing) > 0 {
		return nil, errs.New(errs.ErrorTypeConfig, fmt.Sprintf("bot is missing dependencies: %v", missing))
	}
	if opts.Username == "" {
		return nil, errs.New(errs.ErrorTypeConfig, "bot requires the account username")
	}

	if deps.Clock == nil {
		deps.Clock = ratelimit.SystemClock()
	}
	if deps.Sleeper == nil {
		deps.Sleeper = ratelimit.TimerSleeper{}
	}
	if deps.Jitter == nil {
		deps.Jitter = ratelimit.NewJitter(0)
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.BlockedCooldown <= 0 {
		opts.BlockedCooldown = defaultBlockedCooldown
	}

	runID := uuid.NewString()
	return &Bot{
		deps:      deps,
		opts:      opts,
		runID:     runID,
		startedAt: deps.Clock.Now(),
		log: deps.Logger.WithFields(map[string]interface{}{
			"run_id":  runID,
			"account": opts.Username,
			"dry_run": opts.DryRun,
		}),
	}, nil
}

// RunID identifies this bot instance in logs.
func (b *Bot) RunID() string { return b.runID }

// Init resolves the account's own user ID and reports budget usage. The
// campaigns call it on first use.
func (b *Bot) Init(ctx context.Context) error {
	p, err := b.deps.Profiles.Lookup(ctx, b.opts.Username)
	if err != nil {
		return fmt.Errorf("failed to resolve own account %s: %w", b.opts.Username, err)
	}
	b.ownID = p.ID
	b.log.InfoWithFields("bot initialized", map[string]interface{}{
		"user_id":   p.ID,
		"followers": p.FollowerCount,
		"following": p.FollowingCount,
	})
	b.deps.Throttle.LogUsage(ctx)
	return nil
}

func (b *Bot) ownUserID(ctx context.Context) (string, error) {
	if b.ownID == "" {
		if err := b.Init(ctx); err != nil {
			return "", err
		}
	}
	return b.ownID, nil
}

func (b *Bot) startCampaign(name string, fields map[string]interface{}) {
	b.deps.Metrics.ObserveCampaign(name)
	fields["campaign"] = name
	b.log.InfoWithFields("campaign started", fields)
}

// pause sleeps base stretched by jitter.
func (b *Bot) pause(ctx context.Context, base time.Duration, deviation float64) error {
	d := b.deps.Jitter.Apply(base, deviation)
	b.log.DebugWithFields("waiting", map[string]interface{}{"duration": d.String()})
	return b.deps.Sleeper.Sleep(ctx, d)
}

func (b *Bot) skip(username string, reason policy.Reason) {
	b.deps.Metrics.ObserveSkip(string(reason))
	b.log.DebugWithFields("skipping candidate", map[string]interface{}{
		"username": username,
		"reason":   string(reason),
	})
}

// execute runs one action through the executor. A lockout, whether
// reported as a result or an error, clears the session, waits out the
// blocked cooldown and comes back as an action_blocked error.
func (b *Bot) execute(ctx context.Context, verb models.Verb, target string, media *models.Media) (models.Result, error) {
	res, err := b.deps.Executor.Execute(ctx, models.Action{
		Verb:   verb,
		Target: target,
		Media:  media,
		DryRun: b.opts.DryRun,
	})
	if errs.IsActionBlocked(err) {
		res, err = models.Result{Blocked: true}, nil
	}
	if err != nil {
		b.deps.Metrics.ObserveAction(verb, "error")
		return res, err
	}

	b.deps.Metrics.ObserveAction(verb, res.Outcome())
	if res.Blocked {
		return res, b.blocked(ctx, verb, target)
	}
	return res, nil
}

func (b *Bot) blocked(ctx context.Context, verb models.Verb, target string) error {
	b.log.ErrorWithFields("action blocked, clearing session and cooling down", map[string]interface{}{
		"verb":     string(verb),
		"target":   target,
		"cooldown": b.opts.BlockedCooldown.String(),
	})
	if b.deps.Sessions != nil {
		if err := b.deps.Sessions.Clear(b.opts.Username); err != nil {
			b.log.WithError(err).Warn("failed to clear saved session")
		}
	}

	blockedErr := errs.New(errs.ErrorTypeActionBlocked, fmt.Sprintf("aborted %s of %s", verb, target))
	if err := b.deps.Sleeper.Sleep(ctx, b.opts.BlockedCooldown); err != nil {
		return errors.Join(blockedErr, err)
	}
	return blockedErr
}

// fatal reports whether err must end the whole campaign rather than just
// the current candidate.
func fatal(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errs.IsActionBlocked(err) ||
		errs.TypeOf(err) == errs.ErrorTypeAuth
}

// each drains s, calling fn per username until fn asks to stop or fails.
func each(ctx context.Context, s relations.Stream, fn func(username string) (stop bool, err error)) error {
	for {
		batch, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read candidate list: %w", err)
		}
		for _, username := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			stop, err := fn(username)
			if err != nil || stop {
				return err
			}
		}
	}
}
