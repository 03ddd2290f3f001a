package instagram

import (
	"context"
	"fmt"
	"net/url"

	errs "instabot/pkg/errors"
	"instabot/pkg/logger"
	"instabot/pkg/models"
)

// Execute performs a state-changing action. A dry-run action is logged and
// reported as OK without touching the account.
//
// Follow and unfollow first read the live friendship so that an account
// already in the requested state yields NoActionTaken. A lockout response
// is reported as Blocked rather than as an error.
func (c *Client) Execute(ctx context.Context, a models.Action) (models.Result, error) {
	if a.DryRun {
		logger.LogAction(c.logger, string(a.Verb), a.Target, "dry_run")
		return models.Result{OK: true}, nil
	}

	var (
		res models.Result
		err error
	)
	switch a.Verb {
	case models.VerbFollow:
		res, err = c.follow(ctx, a.Target)
	case models.VerbUnfollow:
		res, err = c.unfollow(ctx, a.Target)
	case models.VerbLike:
		res, err = c.like(ctx, a.Media)
	default:
		return models.Result{}, errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("unsupported action %q", a.Verb))
	}

	if errs.IsActionBlocked(err) {
		res, err = models.Result{Blocked: true}, nil
	}
	if err == nil {
		logger.LogAction(c.logger, string(a.Verb), a.Target, res.Outcome())
	}
	return res, err
}

func (c *Client) follow(ctx context.Context, username string) (models.Result, error) {
	p, err := c.Lookup(ctx, username)
	if err != nil {
		return models.Result{}, err
	}
	status, err := c.friendship(ctx, p.ID)
	if err != nil {
		return models.Result{}, err
	}
	if status.Following || status.OutgoingRequest {
		return models.Result{NoActionTaken: true}, nil
	}

	var response actionResponse
	if err := c.call(ctx, FollowURL(c.baseURL, p.ID), url.Values{"user_id": {p.ID}}, &response); err != nil {
		return models.Result{}, err
	}
	c.Forget(username)

	if response.blocked() {
		return models.Result{Blocked: true}, nil
	}
	fs := response.FriendshipStatus
	ok := response.Status == "ok" &&
		(response.Result == "following" || response.Result == "requested" ||
			(fs != nil && (fs.Following || fs.OutgoingRequest)))
	return models.Result{OK: ok}, nil
}

func (c *Client) unfollow(ctx context.Context, username string) (models.Result, error) {
	p, err := c.Lookup(ctx, username)
	if err != nil {
		return models.Result{}, err
	}
	status, err := c.friendship(ctx, p.ID)
	if err != nil {
		return models.Result{}, err
	}
	if !status.Following && !status.OutgoingRequest {
		return models.Result{NoActionTaken: true}, nil
	}

	var response actionResponse
	if err := c.call(ctx, UnfollowURL(c.baseURL, p.ID), url.Values{"user_id": {p.ID}}, &response); err != nil {
		return models.Result{}, err
	}
	c.Forget(username)

	if response.blocked() {
		return models.Result{Blocked: true}, nil
	}
	fs := response.FriendshipStatus
	ok := response.Status == "ok" && (fs == nil || (!fs.Following && !fs.OutgoingRequest))
	return models.Result{OK: ok}, nil
}

func (c *Client) like(ctx context.Context, media *models.Media) (models.Result, error) {
	if media == nil || media.ID == "" {
		return models.Result{}, errs.New(errs.ErrorTypeUnknown, "like requires a media id")
	}

	var response actionResponse
	if err := c.call(ctx, LikeURL(c.baseURL, media.ID), url.Values{}, &response); err != nil {
		return models.Result{}, err
	}
	if response.blocked() {
		return models.Result{Blocked: true}, nil
	}
	return models.Result{OK: response.Status == "ok"}, nil
}
