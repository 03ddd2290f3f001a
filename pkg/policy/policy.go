// Package policy decides whether a candidate account should be acted on.
//
// Every function here is pure: the caller supplies the profile, the
// relevant history records and the current time, and receives a Decision
// naming the first failed check.
package policy

import (
	"time"

	"github.com/samber/lo"

	"instabot/pkg/models"
)

// Reason identifies why a candidate was skipped.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonAlreadyFollowed   Reason = "already_followed"
	ReasonAlreadyUnfollowed Reason = "already_unfollowed"
	ReasonPrivate           Reason = "private"
	ReasonTooManyFollowers  Reason = "too_many_followers"
	ReasonTooManyFollowing  Reason = "too_many_following"
	ReasonTooFewFollowers   Reason = "too_few_followers"
	ReasonTooFewFollowing   Reason = "too_few_following"
	ReasonRatioTooHigh      Reason = "ratio_too_high"
	ReasonRatioTooLow       Reason = "ratio_too_low"
	ReasonCustomPredicate   Reason = "custom_predicate"
	ReasonExcluded          Reason = "excluded"
	ReasonGracePeriod       Reason = "grace_period"
	ReasonMutual            Reason = "mutual"
	ReasonAutoFollowed      Reason = "auto_followed"
	ReasonNotAutoFollowed   Reason = "not_auto_followed"
	ReasonTooRecent         Reason = "too_recent"
)

// Decision is the outcome of an eligibility check.
type Decision struct {
	Act    bool
	Reason Reason
}

func act() Decision               { return Decision{Act: true} }
func skip(r Reason) Decision      { return Decision{Reason: r} }
func (d Decision) String() string { return lo.Ternary(d.Act, "act", "skip:"+string(d.Reason)) }

// FollowCriteria bounds which accounts may be followed. Nil bounds are
// unchecked.
type FollowCriteria struct {
	SkipPrivate  bool
	MaxFollowers *int
	MaxFollowing *int
	MinFollowers *int
	MinFollowing *int
	RatioMin     *float64
	RatioMax     *float64
	// ShouldFollow is an optional extra predicate over the full profile.
	ShouldFollow func(models.Profile) bool
}

// Ratio returns followers / max(following, 1).
func Ratio(p models.Profile) float64 {
	return float64(p.FollowerCount) / float64(max(p.FollowingCount, 1))
}

// DecideFollow evaluates the follow checks in order and reports the first
// one that fails.
func DecideFollow(p models.Profile, prev *models.FollowRecord, c FollowCriteria) Decision {
	if prev != nil {
		return skip(ReasonAlreadyFollowed)
	}
	if p.IsPrivate && c.SkipPrivate {
		return skip(ReasonPrivate)
	}

	switch {
	case c.MaxFollowers != nil && p.FollowerCount > *c.MaxFollowers:
		return skip(ReasonTooManyFollowers)
	case c.MaxFollowing != nil && p.FollowingCount > *c.MaxFollowing:
		return skip(ReasonTooManyFollowing)
	case c.MinFollowers != nil && p.FollowerCount < *c.MinFollowers:
		return skip(ReasonTooFewFollowers)
	case c.MinFollowing != nil && p.FollowingCount < *c.MinFollowing:
		return skip(ReasonTooFewFollowing)
	}

	ratio := Ratio(p)
	if c.RatioMax != nil && ratio > *c.RatioMax {
		return skip(ReasonRatioTooHigh)
	}
	if c.RatioMin != nil && ratio < *c.RatioMin {
		return skip(ReasonRatioTooLow)
	}

	if c.ShouldFollow != nil && !c.ShouldFollow(p) {
		return skip(ReasonCustomPredicate)
	}
	return act()
}

// Mode selects which accounts an unfollow campaign targets.
type Mode int

const (
	// ModeNonMutual targets accounts that do not follow back.
	ModeNonMutual Mode = iota
	// ModeUnknown targets accounts this tool never followed.
	ModeUnknown
	// ModeStale targets accounts auto-followed longer ago than MinAge.
	ModeStale
)

func (m Mode) String() string {
	switch m {
	case ModeNonMutual:
		return "non_mutual"
	case ModeUnknown:
		return "unknown"
	case ModeStale:
		return "stale"
	default:
		return "invalid"
	}
}

// UnfollowCriteria protects accounts from unfollow campaigns.
type UnfollowCriteria struct {
	ExcludeUsers []string
	// GracePeriod is the minimum age of an auto-follow before a
	// non-mutual unfollow may reap it.
	GracePeriod time.Duration
	// MinAge is the follow age a stale unfollow requires.
	MinAge time.Duration
}

// UnfollowInput is what is known about one unfollow candidate.
type UnfollowInput struct {
	Username   string
	Followed   *models.FollowRecord
	Unfollowed *models.UnfollowRecord
	IsMutual   bool
	Now        time.Time
	// RunStart bounds which unfollow records the non-mutual and unknown
	// modes honour: only those written since the run began.
	RunStart   time.Time
}

// AlreadyUnfollowed reports whether the latest recorded action for the
// candidate is an unfollow.
func AlreadyUnfollowed(followed *models.FollowRecord, unfollowed *models.UnfollowRecord) bool {
	if unfollowed == nil {
		return false
	}
	return followed == nil || !unfollowed.Time.Before(followed.Time)
}

// DecideUnfollow evaluates the unfollow checks for mode.
func DecideUnfollow(in UnfollowInput, c UnfollowCriteria, mode Mode) Decision {
	if lo.Contains(c.ExcludeUsers, in.Username) {
		return skip(ReasonExcluded)
	}
	if mode != ModeStale && unfollowedThisRun(in) {
		return skip(ReasonAlreadyUnfollowed)
	}

	switch mode {
	case ModeNonMutual:
		if in.Followed != nil && in.Now.Sub(in.Followed.Time) < c.GracePeriod {
			return skip(ReasonGracePeriod)
		}
		if in.IsMutual {
			return skip(ReasonMutual)
		}
	case ModeUnknown:
		if in.Followed != nil {
			return skip(ReasonAutoFollowed)
		}
	case ModeStale:
		if in.Followed == nil {
			return skip(ReasonNotAutoFollowed)
		}
		if AlreadyUnfollowed(in.Followed, in.Unfollowed) {
			return skip(ReasonAlreadyUnfollowed)
		}
		if in.Now.Sub(in.Followed.Time) <= c.MinAge {
			return skip(ReasonTooRecent)
		}
	}
	return act()
}

// unfollowedThisRun reports an unfollow recorded since RunStart that is
// still the latest action. Older records do not protect an account that
// was followed again by hand.
func unfollowedThisRun(in UnfollowInput) bool {
	if in.RunStart.IsZero() || !AlreadyUnfollowed(in.Followed, in.Unfollowed) {
		return false
	}
	return !in.Unfollowed.Time.Before(in.RunStart)
}

// MediaPredicate optionally filters which media may be liked.
type MediaPredicate func(models.Media) bool
