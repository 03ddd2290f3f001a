package bot

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	errs "instabot/pkg/errors"
	"instabot/pkg/logger"
	"instabot/pkg/models"
	"instabot/pkg/policy"
	"instabot/pkg/ratelimit"
	"instabot/pkg/relations"
	"instabot/pkg/storage"
)

const ownUsername = "me"

var start = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

// fakeSite stands in for the executor, profile source, relationship source
// and session store at once.
type fakeSite struct {
	mu sync.Mutex

	profiles  map[string]*models.Profile
	following []string
	followers map[string][]string
	likers    map[string][]string
	followsMe map[string]bool

	results    map[string]models.Result
	execErrs   map[string]error
	lookupErrs map[string]error
	viewerErrs map[string]error

	actions      []models.Action
	lookups      []string
	mutualChecks []string
	cleared      []string
}

func newFakeSite() *fakeSite {
	s := &fakeSite{
		profiles:   make(map[string]*models.Profile),
		followers:  make(map[string][]string),
		likers:     make(map[string][]string),
		followsMe:  make(map[string]bool),
		results:    make(map[string]models.Result),
		execErrs:   make(map[string]error),
		lookupErrs: make(map[string]error),
		viewerErrs: make(map[string]error),
	}
	s.addUsers(ownUsername)
	return s
}

// addUsers registers profiles that pass the default follow criteria.
func (s *fakeSite) addUsers(names ...string) {
	for _, name := range names {
		s.profiles[name] = &models.Profile{
			ID:             "id-" + name,
			Username:       name,
			FollowerCount:  300,
			FollowingCount: 250,
		}
	}
}

func actionKey(verb models.Verb, target string) string { return string(verb) + ":" + target }

func (s *fakeSite) Lookup(_ context.Context, username string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, username)
	if err, ok := s.lookupErrs[username]; ok {
		return nil, err
	}
	p, ok := s.profiles[username]
	if !ok {
		return nil, errs.New(errs.ErrorTypeNotFound, "no such user: "+username)
	}
	cp := *p
	return &cp, nil
}

func (s *fakeSite) Followers(userID string, pageSize int) relations.Stream {
	return relations.FromSlice(s.followers[userID], pageSize)
}

func (s *fakeSite) Following(userID string, pageSize int) relations.Stream {
	if userID != "id-"+ownUsername {
		return relations.FromSlice(nil, pageSize)
	}
	return relations.FromSlice(s.following, pageSize)
}

func (s *fakeSite) Likers(shortcode string, pageSize int) relations.Stream {
	return relations.FromSlice(s.likers[shortcode], pageSize)
}

func (s *fakeSite) FollowsViewer(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutualChecks = append(s.mutualChecks, username)
	if err, ok := s.viewerErrs[username]; ok {
		return false, err
	}
	return s.followsMe[username], nil
}

func (s *fakeSite) Execute(_ context.Context, a models.Action) (models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, a)
	key := actionKey(a.Verb, a.Target)
	if err, ok := s.execErrs[key]; ok {
		return models.Result{}, err
	}
	if res, ok := s.results[key]; ok {
		return res, nil
	}
	return models.Result{OK: true}, nil
}

func (s *fakeSite) Clear(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, username)
	return nil
}

func (s *fakeSite) targets(verb models.Verb) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.FilterMap(s.actions, func(a models.Action, _ int) (string, bool) {
		return a.Target, a.Verb == verb
	})
}

type harness struct {
	bot   *Bot
	site  *fakeSite
	store storage.HistoryStore
	clock *ratelimit.ManualClock
	log   *logger.TestLogger
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()

	site := newFakeSite()
	store := storage.NewMemory()
	clock := ratelimit.NewManualClock(start)
	log := logger.NewTestLogger()

	th, err := ratelimit.NewThrottle(store,
		ratelimit.Limits{MaxFollowsPerHour: 1000, MaxFollowsPerDay: 10000, MaxLikesPerDay: 100},
		ratelimit.WithClock(clock), ratelimit.WithSleeper(clock))
	require.NoError(t, err)

	opts := Options{
		Username: ownUsername,
		PageSize: 4,
		Follow: policy.FollowCriteria{
			MinFollowers: lo.ToPtr(10),
			RatioMax:     lo.ToPtr(4.0),
		},
		Unfollow: policy.UnfollowCriteria{
			ExcludeUsers: []string{"bestfriend"},
			GracePeriod:  72 * time.Hour,
		},
	}
	if mutate != nil {
		mutate(&opts)
	}

	b, err := New(Deps{
		Store:     store,
		Throttle:  th,
		Executor:  site,
		Profiles:  site,
		Relations: site,
		Sessions:  site,
		Clock:     clock,
		Sleeper:   clock,
		Jitter:    ratelimit.NewJitter(1),
		Logger:    log,
	}, opts)
	require.NoError(t, err)

	return &harness{bot: b, site: site, store: store, clock: clock, log: log}
}

func names(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%02d", prefix, i)
	}
	return out
}

// cancelOnPause cancels the run when a pause of at least d starts.
type cancelOnPause struct {
	d      time.Duration
	cancel context.CancelFunc
}

func (c cancelOnPause) Sleep(ctx context.Context, d time.Duration) error {
	if d >= c.d {
		c.cancel()
	}
	return ctx.Err()
}

// sleepsAtLeast counts recorded pauses of at least d.
func sleepsAtLeast(clock *ratelimit.ManualClock, d time.Duration) int {
	return lo.CountBy(clock.Sleeps(), func(s time.Duration) bool { return s >= d })
}
