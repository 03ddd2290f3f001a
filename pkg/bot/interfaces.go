package bot

import (
	"context"

	"instabot/pkg/models"
	"instabot/pkg/relations"
)

// Executor performs state-changing actions against the account.
type Executor interface {
	Execute(ctx context.Context, a models.Action) (models.Result, error)
}

// ProfileSource resolves usernames to profiles. A missing account is
// reported with a not_found error.
type ProfileSource interface {
	Lookup(ctx context.Context, username string) (*models.Profile, error)
}

// RelationshipSource lists the relationships of an account.
type RelationshipSource interface {
	Followers(userID string, pageSize int) relations.Stream
	Following(userID string, pageSize int) relations.Stream
	Likers(shortcode string, pageSize int) relations.Stream
	// FollowsViewer asks live whether username follows the bot's account.
	FollowsViewer(ctx context.Context, username string) (bool, error)
}

// SessionInvalidator drops saved credentials after a lockout.
type SessionInvalidator interface {
	Clear(username string) error
}

// Throttle gates actions on the rolling budgets.
type Throttle interface {
	Wait(ctx context.Context) error
	LikeBudgetAvailable(ctx context.Context) (bool, error)
	LogUsage(ctx context.Context)
}
