package instagram

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// AppID is the web client's application id header value
	AppID = "936619743392459"

	// ProfileEndpoint is the endpoint pattern for user profiles
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// GraphQLEndpoint serves the paginated relationship queries
	GraphQLEndpoint = "/graphql/query/"

	FollowersQueryHash = "37479f2b8209594dde7facb0d904896a"
	FollowingQueryHash = "58712303d941c6855d4e888c5f0cd22f"
	LikersQueryHash    = "d5d763b1e2acf209d62d22d184488e57"

	// DefaultPageSize is the number of usernames requested per page
	DefaultPageSize = 50

	// MaxPageSize is the largest page the GraphQL endpoints honour
	MaxPageSize = 200
)

// ProfileURL constructs the URL for fetching a user's profile
func ProfileURL(base, username string) string {
	params := url.Values{}
	params.Set("username", username)
	return fmt.Sprintf("%s%s?%s", base, ProfileEndpoint, params.Encode())
}

type graphVariables struct {
	ID        string `json:"id,omitempty"`
	Shortcode string `json:"shortcode,omitempty"`
	First     int    `json:"first"`
	After     string `json:"after,omitempty"`
}

func clampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}

func graphURL(base, hash string, vars graphVariables) string {
	vars.First = clampPageSize(vars.First)
	encoded, _ := json.Marshal(vars)

	params := url.Values{}
	params.Set("query_hash", hash)
	params.Set("variables", string(encoded))
	return fmt.Sprintf("%s%s?%s", base, GraphQLEndpoint, params.Encode())
}

// FollowersURL returns one page of the accounts following userID.
func FollowersURL(base, userID string, first int, after string) string {
	return graphURL(base, FollowersQueryHash, graphVariables{ID: userID, First: first, After: after})
}

// FollowingURL returns one page of the accounts userID follows.
func FollowingURL(base, userID string, first int, after string) string {
	return graphURL(base, FollowingQueryHash, graphVariables{ID: userID, First: first, After: after})
}

// LikersURL returns one page of the accounts that liked the post.
func LikersURL(base, shortcode string, first int, after string) string {
	return graphURL(base, LikersQueryHash, graphVariables{Shortcode: shortcode, First: first, After: after})
}

// FriendshipShowURL reports the relationship between the viewer and userID.
func FriendshipShowURL(base, userID string) string {
	return fmt.Sprintf("%s/api/v1/friendships/show/%s/", base, userID)
}

// FollowURL starts following userID.
func FollowURL(base, userID string) string {
	return fmt.Sprintf("%s/api/v1/friendships/create/%s/", base, userID)
}

// UnfollowURL stops following userID.
func UnfollowURL(base, userID string) string {
	return fmt.Sprintf("%s/api/v1/friendships/destroy/%s/", base, userID)
}

// LikeURL likes the media item.
func LikeURL(base, mediaID string) string {
	return fmt.Sprintf("%s/web/likes/%s/like/", base, mediaID)
}

// IsValidUsername reports whether username is a well-formed handle: 1 to
// 30 letters, digits, dots or underscores.
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}
	return strings.IndexFunc(username, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '_')
	}) < 0
}

// SanitizeUsername strips a leading @ and trailing slashes or spaces, so
// that pasted profile handles can be used as seeds.
func SanitizeUsername(username string) string {
	return strings.TrimRight(strings.TrimPrefix(username, "@"), "/ ")
}
