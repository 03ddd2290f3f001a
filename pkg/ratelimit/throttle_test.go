package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "instabot/pkg/errors"
	"instabot/pkg/logger"
	"instabot/pkg/models"
	"instabot/pkg/storage"
)

var start = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestThrottle(t *testing.T, store storage.HistoryStore, limits Limits) (*Throttle, *ManualClock) {
	t.Helper()
	clock := NewManualClock(start)
	th, err := NewThrottle(store, limits, WithClock(clock), WithSleeper(clock))
	require.NoError(t, err)
	return th, clock
}

func TestLimitsValidate(t *testing.T) {
	tests := []struct {
		name    string
		limits  Limits
		wantErr bool
	}{
		{"reachable", Limits{MaxFollowsPerHour: 20, MaxFollowsPerDay: 150, MaxLikesPerDay: 50}, false},
		{"exactly reachable", Limits{MaxFollowsPerHour: 10, MaxFollowsPerDay: 160}, false},
		{"unreachable daily", Limits{MaxFollowsPerHour: 2, MaxFollowsPerDay: 40}, true},
		{"zero hourly", Limits{MaxFollowsPerHour: 0, MaxFollowsPerDay: 10}, true},
		{"negative likes", Limits{MaxFollowsPerHour: 5, MaxFollowsPerDay: 10, MaxLikesPerDay: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.limits.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewThrottleFailsFast(t *testing.T) {
	_, err := NewThrottle(storage.NewMemory(), Limits{MaxFollowsPerHour: 1, MaxFollowsPerDay: 100})
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeConfig, errs.TypeOf(err))
}

func TestCountRecentActionsExcludesNoActionTaken(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	th, _ := newTestThrottle(t, store, Limits{MaxFollowsPerHour: 20, MaxFollowsPerDay: 150})

	// M = 3 real actions, N = 4 no-action entries, all inside the hour.
	require.NoError(t, store.AddFollowed(ctx, models.FollowRecord{Username: "f1", Time: start.Add(-10 * time.Minute)}))
	require.NoError(t, store.AddFollowed(ctx, models.FollowRecord{Username: "f2", Time: start.Add(-20 * time.Minute), Failed: true}))
	require.NoError(t, store.AddUnfollowed(ctx, models.UnfollowRecord{Username: "u1", Time: start.Add(-5 * time.Minute)}))
	for _, name := range []string{"n1", "n2", "n3", "n4"} {
		require.NoError(t, store.AddUnfollowed(ctx, models.UnfollowRecord{Username: name, Time: start.Add(-time.Minute), NoActionTaken: true}))
	}
	// Outside the hour but inside the day.
	require.NoError(t, store.AddFollowed(ctx, models.FollowRecord{Username: "old", Time: start.Add(-3 * time.Hour)}))
	// Outside the day.
	require.NoError(t, store.AddFollowed(ctx, models.FollowRecord{Username: "ancient", Time: start.Add(-25 * time.Hour)}))

	hour, err := th.CountRecentActions(ctx, Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, hour)

	day, err := th.CountRecentActions(ctx, Day)
	require.NoError(t, err)
	assert.Equal(t, 4, day)
}

func TestWaitReturnsImmediatelyWithBudget(t *testing.T) {
	th, clock := newTestThrottle(t, storage.NewMemory(), Limits{MaxFollowsPerHour: 2, MaxFollowsPerDay: 10})

	require.NoError(t, th.Wait(context.Background()))
	assert.Empty(t, clock.Sleeps())
}

func TestWaitPausesUntilHourlyWindowFrees(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	th, clock := newTestThrottle(t, store, Limits{MaxFollowsPerHour: 2, MaxFollowsPerDay: 10})

	require.NoError(t, store.AddFollowed(ctx, models.FollowRecord{Username: "a", Time: start.Add(-30 * time.Minute)}))
	require.NoError(t, store.AddFollowed(ctx, models.FollowRecord{Username: "b", Time: start.Add(-20 * time.Minute)}))

	require.NoError(t, th.Wait(ctx))

	// The oldest record leaves the hour after 30 minutes: three cooldowns.
	assert.Equal(t, []time.Duration{DefaultCooldown, DefaultCooldown, DefaultCooldown}, clock.Sleeps())
	assert.Equal(t, start.Add(30*time.Minute), clock.Now())

	hour, err := th.CountRecentActions(ctx, Hour)
	require.NoError(t, err)
	assert.Less(t, hour, 2)
}

func TestWaitPausesOnDailyWindow(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	var paused []time.Duration
	clock := NewManualClock(start)
	th, err := NewThrottle(store, Limits{MaxFollowsPerHour: 5, MaxFollowsPerDay: 3},
		WithClock(clock), WithSleeper(clock),
		WithPauseHook(func(w time.Duration) { paused = append(paused, w) }))
	require.NoError(t, err)

	for i, name := range []string{"a", "b", "c"} {
		at := start.Add(-23*time.Hour - time.Duration(i)*time.Minute)
		require.NoError(t, store.AddFollowed(ctx, models.FollowRecord{Username: name, Time: at}))
	}

	require.NoError(t, th.Wait(ctx))

	require.NotEmpty(t, paused)
	for _, w := range paused {
		assert.Equal(t, Day, w)
	}
	day, err := th.CountRecentActions(ctx, Day)
	require.NoError(t, err)
	assert.Less(t, day, 3)
}

func TestDailyBudgetNeverExceededAtCommit(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	limits := Limits{MaxFollowsPerHour: 4, MaxFollowsPerDay: 12}
	th, clock := newTestThrottle(t, store, limits)

	for i := 0; i < 60; i++ {
		require.NoError(t, th.Wait(ctx))

		day, err := th.CountRecentActions(ctx, Day)
		require.NoError(t, err)
		require.Less(t, day, limits.MaxFollowsPerDay, "action %d would exceed the daily budget", i)
		hour, err := th.CountRecentActions(ctx, Hour)
		require.NoError(t, err)
		require.Less(t, hour, limits.MaxFollowsPerHour, "action %d would exceed the hourly budget", i)

		name := string(rune('a'+i%26)) + string(rune('a'+i/26))
		if i%3 == 0 {
			require.NoError(t, store.AddUnfollowed(ctx, models.UnfollowRecord{Username: name, Time: clock.Now()}))
		} else {
			require.NoError(t, store.AddFollowed(ctx, models.FollowRecord{Username: name, Time: clock.Now()}))
		}
		clock.Advance(time.Minute)
	}
}

func TestWaitHonoursCancellation(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	th, _ := newTestThrottle(t, store, Limits{MaxFollowsPerHour: 1, MaxFollowsPerDay: 1})
	require.NoError(t, store.AddFollowed(ctx, models.FollowRecord{Username: "a", Time: start}))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	err := th.Wait(cancelled)
	assert.True(t, errors.Is(err, context.Canceled))
}

type failingHistory struct {
	storage.HistoryStore
	failures int
}

func (f *failingHistory) ListFollowedSince(ctx context.Context, since time.Time) ([]models.FollowRecord, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("disk unavailable")
	}
	return f.HistoryStore.ListFollowedSince(ctx, since)
}

func TestWaitSurvivesHistoryErrors(t *testing.T) {
	history := &failingHistory{HistoryStore: storage.NewMemory(), failures: 2}
	clock := NewManualClock(start)
	log := logger.NewTestLogger()
	th, err := NewThrottle(history, Limits{MaxFollowsPerHour: 5, MaxFollowsPerDay: 50},
		WithClock(clock), WithSleeper(clock), WithLogger(log))
	require.NoError(t, err)

	require.NoError(t, th.Wait(context.Background()))
	assert.Len(t, clock.Sleeps(), 2)
	assert.Len(t, log.GetMessagesByLevel("WARN"), 2)
}

func TestLikeBudget(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	th, clock := newTestThrottle(t, store, Limits{MaxFollowsPerHour: 5, MaxFollowsPerDay: 50, MaxLikesPerDay: 2})

	ok, err := th.LikeBudgetAvailable(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.AddLiked(ctx, models.LikedPhotoRecord{Username: "a", Href: "1", Time: start.Add(-time.Hour)}))
	require.NoError(t, store.AddLiked(ctx, models.LikedPhotoRecord{Username: "a", Href: "2", Time: start.Add(-2 * time.Hour)}))

	ok, err = th.LikeBudgetAvailable(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Advance(23 * time.Hour)
	ok, err = th.LikeBudgetAvailable(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "the older like has left the day window")
}

func TestLogUsage(t *testing.T) {
	log := logger.NewTestLogger()
	clock := NewManualClock(start)
	th, err := NewThrottle(storage.NewMemory(), Limits{MaxFollowsPerHour: 5, MaxFollowsPerDay: 50}, WithClock(clock), WithLogger(log))
	require.NoError(t, err)

	th.LogUsage(context.Background())
	assert.True(t, log.HasMessage("action budget usage"))
}
