package models

import "time"

// FollowRecord is written whenever a follow is attempted. Failed marks a
// follow whose confirming state never appeared.
type FollowRecord struct {
	Username string    `json:"username"`
	Time     time.Time `json:"time"`
	Failed   bool      `json:"failed,omitempty"`
}

// UnfollowRecord is written whenever an unfollow candidate reaches the live
// step. NoActionTaken records consume a list slot but no rate budget.
type UnfollowRecord struct {
	Username      string    `json:"username"`
	Time          time.Time `json:"time"`
	NoActionTaken bool      `json:"noActionTaken,omitempty"`
}

// LikedPhotoRecord is an append-only log entry for a like.
type LikedPhotoRecord struct {
	Username string    `json:"username"`
	Href     string    `json:"href"`
	Time     time.Time `json:"time"`
}

// Media is one item of a profile's recent timeline.
type Media struct {
	ID        string `json:"id"`
	Shortcode string `json:"shortcode"`
	URL       string `json:"url"`
	IsVideo   bool   `json:"is_video"`
	LikeCount int    `json:"like_count"`
}

// Href returns the canonical post URL used as the liked-photo identifier.
func (m Media) Href() string {
	return "https://www.instagram.com/p/" + m.Shortcode + "/"
}

// Profile holds the account attributes used for eligibility decisions.
type Profile struct {
	ID             string  `json:"id"`
	Username       string  `json:"username"`
	FullName       string  `json:"full_name"`
	Biography      string  `json:"biography"`
	FollowerCount  int     `json:"follower_count"`
	FollowingCount int     `json:"following_count"`
	IsPrivate      bool    `json:"is_private"`
	IsVerified     bool    `json:"is_verified"`
	IsBusiness     bool    `json:"is_business"`
	RecentMedia    []Media `json:"recent_media"`
}

// Verb is a state-changing action kind.
type Verb string

const (
	VerbFollow   Verb = "follow"
	VerbUnfollow Verb = "unfollow"
	VerbLike     Verb = "like"
)

// Action is a request to the action executor.
type Action struct {
	Verb   Verb
	Target string
	// Media is set for likes.
	Media  *Media
	DryRun bool
}

// Result is the executor's report of an action.
//
// OK means the live state changed as requested. NoActionTaken means the
// live state already matched. Blocked means the site refused the action
// with a lockout signal.
type Result struct {
	OK            bool
	NoActionTaken bool
	Blocked       bool
}

// Outcome renders the result for logs and metrics.
func (r Result) Outcome() string {
	switch {
	case r.Blocked:
		return "blocked"
	case r.NoActionTaken:
		return "no_action"
	case r.OK:
		return "ok"
	default:
		return "failed"
	}
}
