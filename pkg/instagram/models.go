package instagram

// ProfileResponse is the web_profile_info payload.
type ProfileResponse struct {
	RequiresToLogin bool `json:"requires_to_login"`
	Data            struct {
		User *User `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

// User is the profile part of ProfileResponse.
type User struct {
	ID                       string    `json:"id"`
	Username                 string    `json:"username"`
	FullName                 string    `json:"full_name"`
	Biography                string    `json:"biography"`
	IsPrivate                bool      `json:"is_private"`
	IsVerified               bool      `json:"is_verified"`
	IsBusinessAccount        bool      `json:"is_business_account"`
	EdgeFollowedBy           Count     `json:"edge_followed_by"`
	EdgeFollow               Count     `json:"edge_follow"`
	EdgeOwnerToTimelineMedia MediaEdge `json:"edge_owner_to_timeline_media"`
}

// Count wraps an edge total.
type Count struct {
	Count int `json:"count"`
}

// MediaEdge is a timeline page.
type MediaEdge struct {
	Count    int      `json:"count"`
	PageInfo PageInfo `json:"page_info"`
	Edges    []struct {
		Node Node `json:"node"`
	} `json:"edges"`
}

// PageInfo contains pagination information
type PageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

// Node represents a single media item (photo or video)
type Node struct {
	ID                   string `json:"id"`
	Shortcode            string `json:"shortcode"`
	DisplayURL           string `json:"display_url"`
	IsVideo              bool   `json:"is_video"`
	EdgeLikedBy          Count  `json:"edge_liked_by"`
	EdgeMediaPreviewLike Count  `json:"edge_media_preview_like"`
}

// LikeCount prefers the full like edge and falls back to the preview.
func (n Node) LikeCount() int {
	return max(n.EdgeLikedBy.Count, n.EdgeMediaPreviewLike.Count)
}

// UserEdge is a page of accounts from a relationship query.
type UserEdge struct {
	Count    int      `json:"count"`
	PageInfo PageInfo `json:"page_info"`
	Edges    []struct {
		Node struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"node"`
	} `json:"edges"`
}

// Usernames returns the usernames on the page in order.
func (e UserEdge) Usernames() []string {
	out := make([]string, 0, len(e.Edges))
	for _, edge := range e.Edges {
		out = append(out, edge.Node.Username)
	}
	return out
}

// graphResponse covers the three relationship queries. Exactly one of the
// edges is populated depending on the query hash.
type graphResponse struct {
	Data struct {
		User *struct {
			EdgeFollowedBy *UserEdge `json:"edge_followed_by"`
			EdgeFollow     *UserEdge `json:"edge_follow"`
		} `json:"user"`
		ShortcodeMedia *struct {
			EdgeLikedBy *UserEdge `json:"edge_liked_by"`
		} `json:"shortcode_media"`
	} `json:"data"`
	Status string `json:"status"`
}

// FriendshipStatus is the viewer's relationship with another account.
type FriendshipStatus struct {
	Following       bool `json:"following"`
	FollowedBy      bool `json:"followed_by"`
	OutgoingRequest bool `json:"outgoing_request"`
	Blocking        bool `json:"blocking"`
}

type friendshipShowResponse struct {
	FriendshipStatus
	Status string `json:"status"`
}

// actionResponse is returned by the follow, unfollow and like endpoints.
type actionResponse struct {
	Status           string            `json:"status"`
	Result           string            `json:"result"`
	Message          string            `json:"message"`
	Spam             bool              `json:"spam"`
	FeedbackTitle    string            `json:"feedback_title"`
	FriendshipStatus *FriendshipStatus `json:"friendship_status"`
}

// blocked reports whether the response is an action-block lockout.
func (r actionResponse) blocked() bool {
	return r.Spam || r.Message == "feedback_required" || r.FeedbackTitle != ""
}
