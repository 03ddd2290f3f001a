package instagram

import (
	"context"
	"net/http"

	errs "instabot/pkg/errors"
	"instabot/pkg/models"
)

// Lookup fetches the profile for username. Results are cached for the life
// of the client; Forget drops an entry whose counts have gone stale.
func (c *Client) Lookup(ctx context.Context, username string) (*models.Profile, error) {
	if p, ok := c.profiles.Get(username); ok {
		return p, nil
	}

	c.logger.DebugWithFields("fetching user profile", map[string]interface{}{
		"username": username,
	})

	var response ProfileResponse
	if err := c.call(ctx, ProfileURL(c.baseURL, username), nil, &response); err != nil {
		return nil, err
	}

	if response.RequiresToLogin {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeAuth,
			Message: "Instagram requires authentication to view this profile",
			Code:    http.StatusUnauthorized,
		}
	}
	if response.Data.User == nil {
		return nil, &errs.Error{Type: errs.ErrorTypeNotFound, Message: "no such user: " + username}
	}

	p := toProfile(response.Data.User)
	c.profiles.Add(username, p)
	return p, nil
}

// Forget evicts username from the profile cache.
func (c *Client) Forget(username string) {
	c.profiles.Remove(username)
}

// Viewer returns the profile of the session's own account.
func (c *Client) Viewer(ctx context.Context) (*models.Profile, error) {
	return c.Lookup(ctx, c.username)
}

// Friendship returns the viewer's relationship with username.
func (c *Client) Friendship(ctx context.Context, username string) (*FriendshipStatus, error) {
	p, err := c.Lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	return c.friendship(ctx, p.ID)
}

func (c *Client) friendship(ctx context.Context, userID string) (*FriendshipStatus, error) {
	var response friendshipShowResponse
	if err := c.call(ctx, FriendshipShowURL(c.baseURL, userID), nil, &response); err != nil {
		return nil, err
	}
	return &response.FriendshipStatus, nil
}

// FollowsViewer reports whether username follows the session's account,
// asked live rather than from a cached follower list.
func (c *Client) FollowsViewer(ctx context.Context, username string) (bool, error) {
	status, err := c.Friendship(ctx, username)
	if err != nil {
		return false, err
	}
	return status.FollowedBy, nil
}

func toProfile(u *User) *models.Profile {
	p := &models.Profile{
		ID:             u.ID,
		Username:       u.Username,
		FullName:       u.FullName,
		Biography:      u.Biography,
		FollowerCount:  u.EdgeFollowedBy.Count,
		FollowingCount: u.EdgeFollow.Count,
		IsPrivate:      u.IsPrivate,
		IsVerified:     u.IsVerified,
		IsBusiness:     u.IsBusinessAccount,
	}
	for _, edge := range u.EdgeOwnerToTimelineMedia.Edges {
		n := edge.Node
		p.RecentMedia = append(p.RecentMedia, models.Media{
			ID:        n.ID,
			Shortcode: n.Shortcode,
			URL:       n.DisplayURL,
			IsVideo:   n.IsVideo,
			LikeCount: n.LikeCount(),
		})
	}
	return p
}
