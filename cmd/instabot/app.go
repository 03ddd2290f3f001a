package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"instabot/pkg/bot"
	"instabot/pkg/config"
	"instabot/pkg/instagram"
	"instabot/pkg/logger"
	"instabot/pkg/metrics"
	"instabot/pkg/ratelimit"
	"instabot/pkg/retry"
	"instabot/pkg/session"
	"instabot/pkg/storage"
	"instabot/pkg/storage/badgerstore"
	"instabot/pkg/storage/sqlitestore"
	"instabot/pkg/ui"
)

// dryRunMaxPause caps every pause while nothing is really happening.
const dryRunMaxPause = 3 * time.Second

// app is everything one campaign command needs, wired from configuration.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	store    storage.HistoryStore
	sessions *session.Manager
	bot      *bot.Bot
	notifier *ui.Notifier
	stop     context.CancelFunc
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	account := cfg.Instagram.Username

	sessions, err := session.NewDefaultManager(log, sessionFromConfig(cfg))
	if err != nil {
		return nil, err
	}
	sess, err := sessions.Load(account)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, fmt.Errorf("no session for %s, run 'instabot session set' first: %w", account, err)
		}
		return nil, err
	}

	store, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}

	var sleeper ratelimit.Sleeper = ratelimit.TimerSleeper{}
	if cfg.DryRun {
		sleeper = ratelimit.CappedSleeper{Sleeper: sleeper, Max: dryRunMaxPause}
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Retry.MaxAttempts
	retryCfg.Backoff = retry.EscalatingBackoff(cfg.Retry.BaseDelay)
	retryCfg.Sleeper = sleeper
	retryCfg.Logger = log

	client, err := instagram.NewClient(sess, instagram.Options{
		BaseURL:           cfg.Instagram.BaseURL,
		Timeout:           cfg.Instagram.Timeout,
		UserAgent:         cfg.Instagram.UserAgent,
		RequestsPerMinute: cfg.Instagram.RequestsPerMinute,
		Retry:             retryCfg,
		Logger:            log,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	throttle, err := ratelimit.NewThrottle(store, ratelimit.Limits{
		MaxFollowsPerHour: cfg.Limits.MaxFollowsPerHour,
		MaxFollowsPerDay:  cfg.Limits.MaxFollowsPerDay,
		MaxLikesPerDay:    cfg.Limits.MaxLikesPerDay,
	},
		ratelimit.WithSleeper(sleeper),
		ratelimit.WithLogger(log),
		ratelimit.WithCooldown(cfg.Timing.Cooldown),
		ratelimit.WithPauseHook(m.ObservePause),
	)
	if err != nil {
		store.Close()
		return nil, err
	}

	b, err := bot.New(bot.Deps{
		Store:     store,
		Throttle:  throttle,
		Executor:  client,
		Profiles:  client,
		Relations: client,
		Sessions:  sessions,
		Sleeper:   sleeper,
		Metrics:   m,
		Logger:    log,
	}, bot.OptionsFromConfig(cfg))
	if err != nil {
		store.Close()
		return nil, err
	}

	metricsCtx, stop := context.WithCancel(ctx)
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(metricsCtx, cfg.Metrics.Addr, reg, log); err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	return &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		sessions: sessions,
		bot:      b,
		notifier: ui.NewNotifier(notify),
		stop:     stop,
	}, nil
}

func (a *app) Close() {
	a.stop()
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close history store")
	}
}

// finish prints and reports the outcome of a campaign.
func (a *app) finish(campaign string, count int, err error) error {
	a.notifier.CampaignFinished(campaign, a.cfg.Instagram.Username, count, err)
	if err != nil {
		return fmt.Errorf("%s failed: %w", campaign, err)
	}
	return nil
}

func sessionFromConfig(cfg *config.Config) *session.Session {
	return &session.Session{
		Username:  cfg.Instagram.Username,
		SessionID: cfg.Instagram.SessionID,
		CSRFToken: cfg.Instagram.CSRFToken,
		UserAgent: cfg.Instagram.UserAgent,
	}
}

// openStore opens the configured history backend. Without an explicit
// path the per-account data directory is used.
func openStore(cfg *config.Config, log logger.Logger) (storage.HistoryStore, error) {
	if cfg.Storage.Backend == "memory" {
		return storage.NewMemory(), nil
	}

	dir := cfg.Storage.Path
	if dir == "" {
		var err error
		if dir, err = storage.DataDirectory(cfg.Instagram.Username); err != nil {
			return nil, fmt.Errorf("failed to resolve data directory: %w", err)
		}
	}

	var (
		store storage.HistoryStore
		err   error
	)
	switch cfg.Storage.Backend {
	case "json":
		store, err = storage.NewManager(dir, log)
	case "sqlite":
		store, err = sqlitestore.Open(filepath.Join(dir, "history.db"))
	case "badger":
		store, err = badgerstore.Open(filepath.Join(dir, "badger"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
