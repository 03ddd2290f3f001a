package bot

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/samber/lo"

	errs "instabot/pkg/errors"
	"instabot/pkg/models"
	"instabot/pkg/policy"
	"instabot/pkg/relations"
)

// FollowOptions control one seed account's follower walk.
type FollowOptions struct {
	// MaxFollowsPerUser caps follows from this seed. Zero disables
	// following and leaves only liking.
	MaxFollowsPerUser int
	SkipPrivate       bool
	EnableLikeImages  bool
	LikeImagesMin     int
	LikeImagesMax     int
}

// FollowFollowersOptions control a multi-seed follow campaign.
type FollowFollowersOptions struct {
	Seeds           []string
	MaxFollowsTotal int
	SkipPrivate     bool
	// DisableFollow turns the campaign into a like-only pass.
	DisableFollow    bool
	EnableLikeImages bool
	LikeImagesMin    int
	LikeImagesMax    int
}

// FollowUserRespectingRestrictions follows username if it was never
// followed before and its profile passes the follow criteria. The result
// reports whether a follow actually happened.
func (b *Bot) FollowUserRespectingRestrictions(ctx context.Context, username string, skipPrivate bool) (bool, error) {
	prev, err := b.deps.Store.GetFollowed(ctx, username)
	if err != nil {
		return false, fmt.Errorf("failed to read follow history: %w", err)
	}
	if prev != nil {
		b.skip(username, policy.ReasonAlreadyFollowed)
		return false, nil
	}

	profile, err := b.deps.Profiles.Lookup(ctx, username)
	if err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", username, err)
	}

	criteria := b.opts.Follow
	criteria.SkipPrivate = skipPrivate
	if d := policy.DecideFollow(*profile, nil, criteria); !d.Act {
		b.log.DebugWithFields("profile fails follow criteria", map[string]interface{}{
			"username":  username,
			"followers": profile.FollowerCount,
			"following": profile.FollowingCount,
			"ratio":     policy.Ratio(*profile),
		})
		b.skip(username, d.Reason)
		return false, nil
	}

	if err := b.deps.Throttle.Wait(ctx); err != nil {
		return false, err
	}
	res, err := b.execute(ctx, models.VerbFollow, username, nil)
	if err != nil {
		return false, err
	}

	switch {
	case res.NoActionTaken:
		b.log.WithField("username", username).Info("already following this user")
		return false, b.pause(ctx, alreadyFollowPause, defaultDeviation)
	case !res.OK:
		// Recorded anyway so the account is never retried.
		if err := b.recordFollow(ctx, username, true); err != nil {
			return false, err
		}
		b.log.WithField("username", username).Warn("follow did not take effect, pausing")
		if err := b.pause(ctx, failedFollowPause, 0); err != nil {
			return false, err
		}
		return false, fmt.Errorf("follow of %s did not take effect", username)
	}

	if err := b.recordFollow(ctx, username, false); err != nil {
		return false, err
	}
	return true, b.pause(ctx, followPause, defaultDeviation)
}

func (b *Bot) recordFollow(ctx context.Context, username string, failed bool) error {
	if b.opts.DryRun {
		return nil
	}
	rec := models.FollowRecord{Username: username, Time: b.deps.Clock.Now(), Failed: failed}
	if err := b.deps.Store.AddFollowed(ctx, rec); err != nil {
		return fmt.Errorf("failed to record follow of %s: %w", username, err)
	}
	return nil
}

// LikeUserImages likes a random number in [minLikes, maxLikes] of the
// profile's recent media, in random order. Likes stop early once the
// daily like budget is spent. It returns the number of likes made.
func (b *Bot) LikeUserImages(ctx context.Context, p *models.Profile, minLikes, maxLikes int) (int, error) {
	if minLikes < 1 || maxLikes < minLikes {
		return 0, errs.New(errs.ErrorTypeConfig, fmt.Sprintf("invalid like range %d-%d", minLikes, maxLikes))
	}
	if len(p.RecentMedia) == 0 {
		b.log.WithField("username", p.Username).Debug("no media to like")
		return 0, nil
	}

	want := minLikes + b.deps.Jitter.Intn(maxLikes-minLikes+1)
	media := slices.Clone(p.RecentMedia)
	b.deps.Jitter.Shuffle(len(media), func(i, k int) { media[i], media[k] = media[k], media[i] })

	b.log.InfoWithFields("liking user images", map[string]interface{}{
		"username": p.Username,
		"count":    want,
	})

	liked := 0
	for _, m := range media {
		if liked >= want {
			break
		}
		if b.opts.ShouldLikeMedia != nil && !b.opts.ShouldLikeMedia(m) {
			b.skip(p.Username, policy.ReasonCustomPredicate)
			continue
		}

		ok, err := b.deps.Throttle.LikeBudgetAvailable(ctx)
		if err != nil {
			return liked, fmt.Errorf("failed to check like budget: %w", err)
		}
		if !ok {
			b.log.Info("daily like budget exhausted, skipping remaining likes")
			break
		}

		res, err := b.execute(ctx, models.VerbLike, p.Username, &m)
		if err != nil {
			return liked, err
		}
		if !res.OK {
			b.log.WithField("href", m.Href()).Warn("like did not take effect")
			continue
		}

		if !b.opts.DryRun {
			rec := models.LikedPhotoRecord{Username: p.Username, Href: m.Href(), Time: b.deps.Clock.Now()}
			if err := b.deps.Store.AddLiked(ctx, rec); err != nil {
				return liked, fmt.Errorf("failed to record like: %w", err)
			}
		}
		liked++

		if err := b.pause(ctx, likePause, defaultDeviation); err != nil {
			return liked, err
		}
	}
	return liked, nil
}

// ProcessUserFollowers walks the followers of seed, following up to
// opts.MaxFollowsPerUser of them and optionally liking their media. It
// returns the number of follows made.
func (b *Bot) ProcessUserFollowers(ctx context.Context, seed string, opts FollowOptions) (int, error) {
	enableFollow := opts.MaxFollowsPerUser > 0
	b.log.InfoWithFields("processing followers of seed", map[string]interface{}{
		"seed":        seed,
		"max_follows": opts.MaxFollowsPerUser,
		"like_images": opts.EnableLikeImages,
	})

	if err := b.deps.Throttle.Wait(ctx); err != nil {
		return 0, err
	}
	seedProfile, err := b.deps.Profiles.Lookup(ctx, seed)
	if err != nil {
		return 0, fmt.Errorf("failed to look up seed %s: %w", seed, err)
	}

	followed := 0
	err = each(ctx, b.deps.Relations.Followers(seedProfile.ID, b.opts.PageSize), func(follower string) (bool, error) {
		if enableFollow && followed >= opts.MaxFollowsPerUser {
			b.log.WithField("seed", seed).Info("reached follow limit for this seed, stopping")
			return true, nil
		}

		did, err := b.processFollower(ctx, follower, opts, enableFollow)
		if did {
			followed++
		}
		if err != nil {
			if fatal(err) {
				return true, err
			}
			b.log.WithError(err).WithField("username", follower).Warn("failed to process follower")
			return false, b.pause(ctx, candidateErrorPause, defaultDeviation)
		}
		return false, nil
	})
	return followed, err
}

func (b *Bot) processFollower(ctx context.Context, username string, opts FollowOptions, enableFollow bool) (bool, error) {
	did := false
	if enableFollow {
		var err error
		if did, err = b.FollowUserRespectingRestrictions(ctx, username, opts.SkipPrivate); err != nil {
			return false, err
		}
	}
	if !opts.EnableLikeImages || (enableFollow && !did) {
		return did, nil
	}

	profile, err := b.deps.Profiles.Lookup(ctx, username)
	if err != nil {
		return did, fmt.Errorf("failed to look up %s for liking: %w", username, err)
	}
	_, err = b.LikeUserImages(ctx, profile, opts.LikeImagesMin, opts.LikeImagesMax)
	return did, err
}

// FollowUsersFollowers follows followers of every seed in random order.
// Each seed may contribute ceil(MaxFollowsTotal/len(seeds)) follows, never
// more than what is left of the total. A failing seed is logged and the
// next one is tried.
func (b *Bot) FollowUsersFollowers(ctx context.Context, opts FollowFollowersOptions) (int, error) {
	seeds := lo.Uniq(opts.Seeds)
	b.deps.Jitter.Shuffle(len(seeds), func(i, k int) { seeds[i], seeds[k] = seeds[k], seeds[i] })

	enableFollow := !opts.DisableFollow && opts.MaxFollowsTotal > 0
	perSeed := 0
	if enableFollow && len(seeds) > 0 {
		seeds = seeds[:min(len(seeds), opts.MaxFollowsTotal)]
		perSeed = int(math.Ceil(float64(opts.MaxFollowsTotal) / float64(len(seeds))))
	}
	if perSeed == 0 && (!opts.EnableLikeImages || opts.LikeImagesMin < 1 || opts.LikeImagesMax < 1) {
		b.log.Warn("nothing to follow or like")
		return 0, nil
	}

	b.startCampaign("follow_followers", map[string]interface{}{
		"seeds":       len(seeds),
		"max_total":   opts.MaxFollowsTotal,
		"per_seed":    perSeed,
		"like_images": opts.EnableLikeImages,
	})

	total := 0
	for i, seed := range seeds {
		budget := perSeed
		if enableFollow {
			budget = min(perSeed, opts.MaxFollowsTotal-total)
			if budget <= 0 {
				break
			}
		}

		n, err := b.ProcessUserFollowers(ctx, seed, FollowOptions{
			MaxFollowsPerUser: budget,
			SkipPrivate:       opts.SkipPrivate,
			EnableLikeImages:  opts.EnableLikeImages,
			LikeImagesMin:     opts.LikeImagesMin,
			LikeImagesMax:     opts.LikeImagesMax,
		})
		total += n
		if err != nil {
			if fatal(err) {
				return total, err
			}
			b.log.WithError(err).WithField("seed", seed).Error("failed to process seed followers, continuing")
			if err := b.pause(ctx, seedErrorPause, defaultDeviation); err != nil {
				return total, err
			}
			continue
		}

		if i == len(seeds)-1 {
			break
		}
		if err := b.pause(ctx, seedPause, defaultDeviation); err != nil {
			return total, err
		}
		if err := b.deps.Throttle.Wait(ctx); err != nil {
			return total, err
		}
	}
	return total, nil
}

// SafelyFollowUserList follows eligible accounts from s until limit follows
// have happened (no limit when limit <= 0) or the stream ends.
func (b *Bot) SafelyFollowUserList(ctx context.Context, s relations.Stream, skipPrivate bool, limit int) (int, error) {
	b.log.WithField("limit", limit).Info("following users")

	followed := 0
	err := each(ctx, s, func(username string) (bool, error) {
		if limit > 0 && followed >= limit {
			return true, nil
		}
		did, err := b.FollowUserRespectingRestrictions(ctx, username, skipPrivate)
		if err != nil {
			if fatal(err) {
				return true, err
			}
			b.log.WithError(err).WithField("username", username).Warn("failed to follow user, continuing")
			return false, b.pause(ctx, candidateErrorPause, defaultDeviation)
		}
		if did {
			followed++
		}
		return false, nil
	})
	return followed, err
}

// FollowContentLikers follows accounts that liked the post with shortcode.
func (b *Bot) FollowContentLikers(ctx context.Context, shortcode string, skipPrivate bool, limit int) (int, error) {
	b.startCampaign("follow_likers", map[string]interface{}{"shortcode": shortcode, "limit": limit})
	return b.SafelyFollowUserList(ctx, b.deps.Relations.Likers(shortcode, b.opts.PageSize), skipPrivate, limit)
}
