package instagram

import (
	"context"

	errs "instabot/pkg/errors"
	"instabot/pkg/relations"
)

type edgeSelector func(*graphResponse) *UserEdge

func (c *Client) edgeStream(page func(cursor string) string, pick edgeSelector) relations.Stream {
	return relations.NewPagedStream(func(ctx context.Context, cursor string) (relations.Page, error) {
		var response graphResponse
		if err := c.call(ctx, page(cursor), nil, &response); err != nil {
			return relations.Page{}, err
		}

		edge := pick(&response)
		if edge == nil {
			return relations.Page{}, &errs.Error{Type: errs.ErrorTypeNotFound, Message: "relationship listing unavailable"}
		}
		return relations.Page{
			Usernames:  edge.Usernames(),
			NextCursor: edge.PageInfo.EndCursor,
			HasNext:    edge.PageInfo.HasNextPage,
		}, nil
	})
}

// Followers streams the accounts following userID.
func (c *Client) Followers(userID string, pageSize int) relations.Stream {
	return c.edgeStream(
		func(cursor string) string { return FollowersURL(c.baseURL, userID, pageSize, cursor) },
		func(r *graphResponse) *UserEdge {
			if r.Data.User == nil {
				return nil
			}
			return r.Data.User.EdgeFollowedBy
		})
}

// Following streams the accounts userID follows.
func (c *Client) Following(userID string, pageSize int) relations.Stream {
	return c.edgeStream(
		func(cursor string) string { return FollowingURL(c.baseURL, userID, pageSize, cursor) },
		func(r *graphResponse) *UserEdge {
			if r.Data.User == nil {
				return nil
			}
			return r.Data.User.EdgeFollow
		})
}

// Likers streams the accounts that liked the post with shortcode.
func (c *Client) Likers(shortcode string, pageSize int) relations.Stream {
	return c.edgeStream(
		func(cursor string) string { return LikersURL(c.baseURL, shortcode, pageSize, cursor) },
		func(r *graphResponse) *UserEdge {
			if r.Data.ShortcodeMedia == nil {
				return nil
			}
			return r.Data.ShortcodeMedia.EdgeLikedBy
		})
}
