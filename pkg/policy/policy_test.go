package policy

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	"instabot/pkg/models"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func defaultCriteria() FollowCriteria {
	return FollowCriteria{
		SkipPrivate:  true,
		MaxFollowers: lo.ToPtr(5000),
		MaxFollowing: lo.ToPtr(7500),
		MinFollowers: lo.ToPtr(10),
		MinFollowing: lo.ToPtr(10),
		RatioMin:     lo.ToPtr(0.2),
		RatioMax:     lo.ToPtr(4.0),
	}
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 100.0, Ratio(models.Profile{FollowerCount: 1000, FollowingCount: 10}))
	assert.Equal(t, 7.0, Ratio(models.Profile{FollowerCount: 7, FollowingCount: 0}))
}

func TestDecideFollow(t *testing.T) {
	tests := []struct {
		name    string
		profile models.Profile
		prev    *models.FollowRecord
		mutate  func(*FollowCriteria)
		want    Decision
	}{
		{
			name:    "eligible",
			profile: models.Profile{FollowerCount: 300, FollowingCount: 250},
			want:    Decision{Act: true},
		},
		{
			name:    "ratio too high",
			profile: models.Profile{FollowerCount: 1000, FollowingCount: 10},
			want:    Decision{Reason: ReasonRatioTooHigh},
		},
		{
			name:    "ratio too low",
			profile: models.Profile{FollowerCount: 20, FollowingCount: 1000},
			want:    Decision{Reason: ReasonRatioTooLow},
		},
		{
			name:    "already followed wins over everything",
			profile: models.Profile{FollowerCount: 300, FollowingCount: 250, IsPrivate: true},
			prev:    &models.FollowRecord{Username: "x", Time: now.Add(-48 * time.Hour)},
			want:    Decision{Reason: ReasonAlreadyFollowed},
		},
		{
			name:    "failed follow still counts as followed",
			profile: models.Profile{FollowerCount: 300, FollowingCount: 250},
			prev:    &models.FollowRecord{Username: "x", Time: now, Failed: true},
			want:    Decision{Reason: ReasonAlreadyFollowed},
		},
		{
			name:    "private before counts",
			profile: models.Profile{FollowerCount: 1, FollowingCount: 1, IsPrivate: true},
			want:    Decision{Reason: ReasonPrivate},
		},
		{
			name:    "private allowed",
			profile: models.Profile{FollowerCount: 300, FollowingCount: 250, IsPrivate: true},
			mutate:  func(c *FollowCriteria) { c.SkipPrivate = false },
			want:    Decision{Act: true},
		},
		{
			name:    "max followers before min following",
			profile: models.Profile{FollowerCount: 6000, FollowingCount: 1},
			want:    Decision{Reason: ReasonTooManyFollowers},
		},
		{
			name:    "max following",
			profile: models.Profile{FollowerCount: 4000, FollowingCount: 8000},
			want:    Decision{Reason: ReasonTooManyFollowing},
		},
		{
			name:    "min followers",
			profile: models.Profile{FollowerCount: 5, FollowingCount: 5},
			want:    Decision{Reason: ReasonTooFewFollowers},
		},
		{
			name:    "min following",
			profile: models.Profile{FollowerCount: 30, FollowingCount: 5},
			want:    Decision{Reason: ReasonTooFewFollowing},
		},
		{
			name:    "bounds unset",
			profile: models.Profile{FollowerCount: 1000000, FollowingCount: 0},
			mutate:  func(c *FollowCriteria) { *c = FollowCriteria{} },
			want:    Decision{Act: true},
		},
		{
			name:    "custom predicate",
			profile: models.Profile{FollowerCount: 300, FollowingCount: 250, IsBusiness: true},
			mutate: func(c *FollowCriteria) {
				c.ShouldFollow = func(p models.Profile) bool { return !p.IsBusiness }
			},
			want: Decision{Reason: ReasonCustomPredicate},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaultCriteria()
			if tt.mutate != nil {
				tt.mutate(&c)
			}
			got := DecideFollow(tt.profile, tt.prev, c)
			if got != tt.want {
				t.Errorf("DecideFollow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecideFollowPredicateSeesProfile(t *testing.T) {
	var seen string
	c := FollowCriteria{ShouldFollow: func(p models.Profile) bool {
		seen = p.Username
		return true
	}}

	got := DecideFollow(models.Profile{Username: "alice"}, nil, c)
	assert.True(t, got.Act)
	assert.Equal(t, "alice", seen)
}

func TestAlreadyUnfollowed(t *testing.T) {
	follow := &models.FollowRecord{Username: "x", Time: now.Add(-time.Hour)}

	assert.False(t, AlreadyUnfollowed(follow, nil))
	assert.False(t, AlreadyUnfollowed(nil, nil))
	assert.True(t, AlreadyUnfollowed(nil, &models.UnfollowRecord{Username: "x", Time: now}))
	assert.True(t, AlreadyUnfollowed(follow, &models.UnfollowRecord{Username: "x", Time: now}))
	assert.True(t, AlreadyUnfollowed(follow, &models.UnfollowRecord{Username: "x", Time: follow.Time}))
	assert.False(t, AlreadyUnfollowed(follow, &models.UnfollowRecord{Username: "x", Time: now.Add(-2 * time.Hour)}),
		"a re-follow after the unfollow makes the account a candidate again")
}

func TestDecideUnfollow(t *testing.T) {
	criteria := UnfollowCriteria{
		ExcludeUsers: []string{"bestfriend"},
		GracePeriod:  72 * time.Hour,
		MinAge:       14 * 24 * time.Hour,
	}
	followedAt := func(ago time.Duration) *models.FollowRecord {
		return &models.FollowRecord{Username: "x", Time: now.Add(-ago)}
	}

	tests := []struct {
		name string
		in   UnfollowInput
		mode Mode
		want Decision
	}{
		{
			name: "excluded in every mode",
			in:   UnfollowInput{Username: "bestfriend", Followed: followedAt(30 * 24 * time.Hour)},
			mode: ModeStale,
			want: Decision{Reason: ReasonExcluded},
		},
		{
			name: "already unfollowed",
			in: UnfollowInput{
				Username:   "x",
				Followed:   followedAt(30 * 24 * time.Hour),
				Unfollowed: &models.UnfollowRecord{Username: "x", Time: now.Add(-time.Hour)},
			},
			mode: ModeStale,
			want: Decision{Reason: ReasonAlreadyUnfollowed},
		},
		{
			name: "unknown re-followed by hand after an old unfollow",
			in: UnfollowInput{
				Username:   "x",
				Unfollowed: &models.UnfollowRecord{Username: "x", Time: now.Add(-30 * 24 * time.Hour)},
				RunStart:   now.Add(-time.Hour),
			},
			mode: ModeUnknown,
			want: Decision{Act: true},
		},
		{
			name: "non-mutual ignores an old no-action record",
			in: UnfollowInput{
				Username:   "x",
				Unfollowed: &models.UnfollowRecord{Username: "x", Time: now.Add(-5 * 24 * time.Hour), NoActionTaken: true},
				RunStart:   now.Add(-time.Hour),
			},
			mode: ModeNonMutual,
			want: Decision{Act: true},
		},
		{
			name: "unknown skips an unfollow made this run",
			in: UnfollowInput{
				Username:   "x",
				Unfollowed: &models.UnfollowRecord{Username: "x", Time: now.Add(-time.Minute)},
				RunStart:   now.Add(-time.Hour),
			},
			mode: ModeUnknown,
			want: Decision{Reason: ReasonAlreadyUnfollowed},
		},
		{
			name: "stale honours an unfollow of any age",
			in: UnfollowInput{
				Username:   "x",
				Followed:   followedAt(60 * 24 * time.Hour),
				Unfollowed: &models.UnfollowRecord{Username: "x", Time: now.Add(-30 * 24 * time.Hour)},
				RunStart:   now.Add(-time.Hour),
			},
			mode: ModeStale,
			want: Decision{Reason: ReasonAlreadyUnfollowed},
		},
		{
			name: "non-mutual inside grace period",
			in:   UnfollowInput{Username: "x", Followed: followedAt(10 * time.Hour)},
			mode: ModeNonMutual,
			want: Decision{Reason: ReasonGracePeriod},
		},
		{
			name: "non-mutual past grace period",
			in:   UnfollowInput{Username: "x", Followed: followedAt(100 * time.Hour)},
			mode: ModeNonMutual,
			want: Decision{Act: true},
		},
		{
			name: "non-mutual manual follow has no grace period",
			in:   UnfollowInput{Username: "x"},
			mode: ModeNonMutual,
			want: Decision{Act: true},
		},
		{
			name: "mutual kept",
			in:   UnfollowInput{Username: "x", Followed: followedAt(100 * time.Hour), IsMutual: true},
			mode: ModeNonMutual,
			want: Decision{Reason: ReasonMutual},
		},
		{
			name: "unknown skips auto-followed",
			in:   UnfollowInput{Username: "x", Followed: followedAt(time.Hour)},
			mode: ModeUnknown,
			want: Decision{Reason: ReasonAutoFollowed},
		},
		{
			name: "unknown acts on manual follow",
			in:   UnfollowInput{Username: "x"},
			mode: ModeUnknown,
			want: Decision{Act: true},
		},
		{
			name: "stale ignores manual follow",
			in:   UnfollowInput{Username: "x"},
			mode: ModeStale,
			want: Decision{Reason: ReasonNotAutoFollowed},
		},
		{
			name: "stale too recent",
			in:   UnfollowInput{Username: "x", Followed: followedAt(13 * 24 * time.Hour)},
			mode: ModeStale,
			want: Decision{Reason: ReasonTooRecent},
		},
		{
			name: "stale exactly at threshold is kept",
			in:   UnfollowInput{Username: "x", Followed: followedAt(14 * 24 * time.Hour)},
			mode: ModeStale,
			want: Decision{Reason: ReasonTooRecent},
		},
		{
			name: "stale old enough",
			in:   UnfollowInput{Username: "x", Followed: followedAt(15 * 24 * time.Hour)},
			mode: ModeStale,
			want: Decision{Act: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Now = now
			got := DecideUnfollow(tt.in, criteria, tt.mode)
			if got != tt.want {
				t.Errorf("DecideUnfollow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "non_mutual", ModeNonMutual.String())
	assert.Equal(t, "unknown", ModeUnknown.String())
	assert.Equal(t, "stale", ModeStale.String())
	assert.Equal(t, "invalid", Mode(42).String())
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "act", Decision{Act: true}.String())
	assert.Equal(t, "skip:mutual", Decision{Reason: ReasonMutual}.String())
}
