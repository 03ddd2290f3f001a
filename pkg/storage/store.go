package storage

import (
	"context"
	"time"

	"instabot/pkg/models"
)

// HistoryStore is the durable record of past actions for one account.
//
// Get methods return nil, nil when no record exists. List methods
// return records with Time strictly after since.
type HistoryStore interface {
	AddFollowed(ctx context.Context, rec models.FollowRecord) error
	AddUnfollowed(ctx context.Context, rec models.UnfollowRecord) error
	AddLiked(ctx context.Context, rec models.LikedPhotoRecord) error

	GetFollowed(ctx context.Context, username string) (*models.FollowRecord, error)
	GetUnfollowed(ctx context.Context, username string) (*models.UnfollowRecord, error)

	ListFollowed(ctx context.Context) ([]models.FollowRecord, error)
	ListFollowedSince(ctx context.Context, since time.Time) ([]models.FollowRecord, error)
	ListUnfollowedSince(ctx context.Context, since time.Time) ([]models.UnfollowRecord, error)
	ListLikedSince(ctx context.Context, since time.Time) ([]models.LikedPhotoRecord, error)

	Close() error
}

func followedSince(recs []models.FollowRecord, since time.Time) []models.FollowRecord {
	out := make([]models.FollowRecord, 0, len(recs))
	for _, r := range recs {
		if r.Time.After(since) {
			out = append(out, r)
		}
	}
	return out
}

func unfollowedSince(recs []models.UnfollowRecord, since time.Time) []models.UnfollowRecord {
	out := make([]models.UnfollowRecord, 0, len(recs))
	for _, r := range recs {
		if r.Time.After(since) {
			out = append(out, r)
		}
	}
	return out
}

func likedSince(recs []models.LikedPhotoRecord, since time.Time) []models.LikedPhotoRecord {
	out := make([]models.LikedPhotoRecord, 0, len(recs))
	for _, r := range recs {
		if r.Time.After(since) {
			out = append(out, r)
		}
	}
	return out
}
