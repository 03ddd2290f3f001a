package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	errs "instabot/pkg/errors"
	"instabot/pkg/models"
	"instabot/pkg/policy"
	"instabot/pkg/relations"
)

// Condition decides whether a streamed candidate should be unfollowed.
type Condition func(ctx context.Context, username string) (bool, error)

// SafelyUnfollowUserList unfollows candidates from s that satisfy
// condition and returns how many were actually unfollowed. A positive
// limit stops the run once that many unfollows have happened.
//
// Accounts that no longer exist, or that were not followed anymore, are
// recorded as no-action unfollows so later runs skip them. Failures on a
// single candidate are logged and the run moves on; a lockout or a
// cancelled context ends it.
func (b *Bot) SafelyUnfollowUserList(ctx context.Context, s relations.Stream, limit int, condition Condition) (int, error) {
	b.log.WithField("limit", limit).Info("unfollowing users")

	processed, unfollowed := 0, 0
	err := each(ctx, s, func(username string) (bool, error) {
		if condition != nil {
			ok, err := condition(ctx, username)
			if err != nil {
				return b.candidateFailed(username, "failed to check unfollow condition", err)
			}
			if !ok {
				return false, nil
			}
		}

		acted, err := b.unfollowCandidate(ctx, username)
		if acted {
			unfollowed++
		}
		if err != nil {
			return b.candidateFailed(username, "failed to unfollow, continuing with next", err)
		}

		processed++
		b.log.DebugWithFields("unfollow progress", map[string]interface{}{
			"processed":  processed,
			"unfollowed": unfollowed,
		})

		if limit > 0 && unfollowed >= limit {
			b.log.WithField("limit", limit).Info("reached unfollow limit, stopping")
			return true, nil
		}
		if acted && unfollowed%unfollowBreakEvery == 0 {
			b.log.WithField("unfollowed", unfollowed).Info("taking a break after a batch of unfollows")
			if err := b.pause(ctx, unfollowBreak, unfollowBreakJitter); err != nil {
				return true, err
			}
		}
		return false, nil
	})

	b.log.InfoWithFields("done unfollowing", map[string]interface{}{
		"processed":  processed,
		"unfollowed": unfollowed,
	})
	return unfollowed, err
}

// candidateFailed logs a per-candidate error and reports whether the
// campaign must stop.
func (b *Bot) candidateFailed(username, msg string, err error) (bool, error) {
	if fatal(err) {
		return true, err
	}
	b.log.WithError(err).WithField("username", username).Warn(msg)
	return false, nil
}

// unfollowCandidate reports whether username was actually unfollowed.
func (b *Bot) unfollowCandidate(ctx context.Context, username string) (bool, error) {
	if _, err := b.deps.Profiles.Lookup(ctx, username); err != nil {
		if !errs.IsNotFound(err) {
			return false, err
		}
		return false, b.missingUser(ctx, username)
	}

	if err := b.deps.Throttle.Wait(ctx); err != nil {
		return false, err
	}

	res, err := b.execute(ctx, models.VerbUnfollow, username, nil)
	if err != nil {
		return false, err
	}

	switch {
	case res.NoActionTaken:
		b.log.WithField("username", username).Info("user has been unfollowed already")
		if err := b.recordUnfollow(ctx, username, true); err != nil {
			return false, err
		}
		return false, b.pause(ctx, noActionPause, defaultDeviation)
	case res.OK:
		if err := b.recordUnfollow(ctx, username, false); err != nil {
			return false, err
		}
		return true, b.pause(ctx, unfollowPause, defaultDeviation)
	default:
		return false, fmt.Errorf("unfollow of %s did not take effect", username)
	}
}

// missingUser records a no-action unfollow for an account the site no
// longer knows.
func (b *Bot) missingUser(ctx context.Context, username string) error {
	b.log.WithField("username", username).Info("user not found for unfollow")
	if err := b.recordUnfollow(ctx, username, true); err != nil {
		return err
	}
	return b.pause(ctx, noActionPause, defaultDeviation)
}

func (b *Bot) recordUnfollow(ctx context.Context, username string, noAction bool) error {
	if b.opts.DryRun {
		return nil
	}
	rec := models.UnfollowRecord{Username: username, Time: b.deps.Clock.Now(), NoActionTaken: noAction}
	if err := b.deps.Store.AddUnfollowed(ctx, rec); err != nil {
		return fmt.Errorf("failed to record unfollow of %s: %w", username, err)
	}
	return nil
}

// unfollowDecision loads the history of username and applies the policy.
// Mutuality is left false; the caller asks the site separately.
func (b *Bot) unfollowDecision(ctx context.Context, username string, criteria policy.UnfollowCriteria, mode policy.Mode) (policy.Decision, error) {
	followed, err := b.deps.Store.GetFollowed(ctx, username)
	if err != nil {
		return policy.Decision{}, fmt.Errorf("failed to read follow history: %w", err)
	}
	unfollowed, err := b.deps.Store.GetUnfollowed(ctx, username)
	if err != nil {
		return policy.Decision{}, fmt.Errorf("failed to read unfollow history: %w", err)
	}
	return policy.DecideUnfollow(policy.UnfollowInput{
		Username:   username,
		Followed:   followed,
		Unfollowed: unfollowed,
		Now:        b.deps.Clock.Now(),
		RunStart:   b.startedAt,
	}, criteria, mode), nil
}

func (b *Bot) modeCondition(criteria policy.UnfollowCriteria, mode policy.Mode) Condition {
	return func(ctx context.Context, username string) (bool, error) {
		d, err := b.unfollowDecision(ctx, username, criteria, mode)
		if err != nil {
			return false, err
		}
		if !d.Act {
			b.skip(username, d.Reason)
			return false, nil
		}
		if mode != policy.ModeNonMutual {
			return true, nil
		}

		// Mutuality is asked live, and only once the cheap checks passed.
		followsMe, err := b.deps.Relations.FollowsViewer(ctx, username)
		if errs.IsNotFound(err) {
			return false, b.missingUser(ctx, username)
		}
		if err != nil {
			return false, fmt.Errorf("failed to check if %s follows us: %w", username, err)
		}
		if followsMe {
			b.skip(username, policy.ReasonMutual)
			return false, nil
		}
		return true, nil
	}
}

func (b *Bot) unfollowCampaign(ctx context.Context, name string, limit int, criteria policy.UnfollowCriteria, mode policy.Mode) (int, error) {
	id, err := b.ownUserID(ctx)
	if err != nil {
		return 0, err
	}
	b.startCampaign(name, map[string]interface{}{"limit": limit, "mode": mode.String()})
	return b.SafelyUnfollowUserList(ctx, b.deps.Relations.Following(id, b.opts.PageSize), limit, b.modeCondition(criteria, mode))
}

// UnfollowNonMutualFollowers unfollows accounts that do not follow back,
// sparing anything auto-followed within the grace period.
func (b *Bot) UnfollowNonMutualFollowers(ctx context.Context, limit int) (int, error) {
	return b.unfollowCampaign(ctx, "unfollow_non_mutual", limit, b.opts.Unfollow, policy.ModeNonMutual)
}

// UnfollowAllUnknown unfollows every followed account this bot did not
// follow itself.
func (b *Bot) UnfollowAllUnknown(ctx context.Context, limit int) (int, error) {
	return b.unfollowCampaign(ctx, "unfollow_unknown", limit, b.opts.Unfollow, policy.ModeUnknown)
}

// UnfollowOldFollowed unfollows accounts auto-followed more than
// ageInDays days ago.
func (b *Bot) UnfollowOldFollowed(ctx context.Context, ageInDays, limit int) (int, error) {
	if ageInDays <= 0 {
		return 0, errs.New(errs.ErrorTypeConfig, "ageInDays must be positive")
	}
	criteria := b.opts.Unfollow
	criteria.MinAge = time.Duration(ageInDays) * 24 * time.Hour
	return b.unfollowCampaign(ctx, "unfollow_old", limit, criteria, policy.ModeStale)
}

// ListManuallyFollowedUsers returns the followed accounts that were neither
// auto-followed nor excluded.
func (b *Bot) ListManuallyFollowedUsers(ctx context.Context) ([]string, error) {
	id, err := b.ownUserID(ctx)
	if err != nil {
		return nil, err
	}
	following, err := relations.Collect(ctx, b.deps.Relations.Following(id, b.opts.PageSize), 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list followed accounts: %w", err)
	}

	var manual []string
	for _, username := range lo.Without(following, b.opts.Unfollow.ExcludeUsers...) {
		rec, err := b.deps.Store.GetFollowed(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("failed to read follow history: %w", err)
		}
		if rec == nil {
			manual = append(manual, username)
		}
	}
	return manual, nil
}
