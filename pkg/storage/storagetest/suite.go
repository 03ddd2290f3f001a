// Package storagetest holds the behavioural checks every HistoryStore
// backend must satisfy.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instabot/pkg/models"
	"instabot/pkg/storage"
)

// Factory opens a fresh, empty store. Reopen, when non-nil, closes the
// given store and opens the same underlying data again.
type Factory struct {
	Open   func(t *testing.T) storage.HistoryStore
	Reopen func(t *testing.T, s storage.HistoryStore) storage.HistoryStore
}

// Run executes the shared HistoryStore checks.
func Run(t *testing.T, f Factory) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("missing records", func(t *testing.T) {
		ctx := context.Background()
		s := f.Open(t)

		rec, err := s.GetFollowed(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, rec)

		un, err := s.GetUnfollowed(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, un)

		liked, err := s.ListLikedSince(ctx, time.Time{})
		require.NoError(t, err)
		assert.Empty(t, liked)
	})

	t.Run("followed overwrite by key", func(t *testing.T) {
		ctx := context.Background()
		s := f.Open(t)

		require.NoError(t, s.AddFollowed(ctx, models.FollowRecord{Username: "alice", Time: base}))
		require.NoError(t, s.AddFollowed(ctx, models.FollowRecord{Username: "alice", Time: base.Add(time.Hour), Failed: true}))

		rec, err := s.GetFollowed(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.True(t, rec.Failed)
		assert.True(t, rec.Time.Equal(base.Add(time.Hour)))

		all, err := s.ListFollowed(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("follow and unfollow coexist", func(t *testing.T) {
		ctx := context.Background()
		s := f.Open(t)

		require.NoError(t, s.AddFollowed(ctx, models.FollowRecord{Username: "bob", Time: base}))
		require.NoError(t, s.AddUnfollowed(ctx, models.UnfollowRecord{Username: "bob", Time: base.Add(time.Minute), NoActionTaken: true}))

		rec, err := s.GetFollowed(ctx, "bob")
		require.NoError(t, err)
		require.NotNil(t, rec)

		un, err := s.GetUnfollowed(ctx, "bob")
		require.NoError(t, err)
		require.NotNil(t, un)
		assert.True(t, un.NoActionTaken)
	})

	t.Run("since windows", func(t *testing.T) {
		ctx := context.Background()
		s := f.Open(t)

		for i, name := range []string{"a", "b", "c"} {
			at := base.Add(time.Duration(i) * time.Hour)
			require.NoError(t, s.AddFollowed(ctx, models.FollowRecord{Username: name, Time: at}))
			require.NoError(t, s.AddUnfollowed(ctx, models.UnfollowRecord{Username: name, Time: at}))
			require.NoError(t, s.AddLiked(ctx, models.LikedPhotoRecord{Username: name, Href: "p/" + name, Time: at}))
		}
		// Liked photos have no key and keep duplicates.
		require.NoError(t, s.AddLiked(ctx, models.LikedPhotoRecord{Username: "c", Href: "p/c", Time: base.Add(2 * time.Hour)}))

		since := base.Add(30 * time.Minute)

		followed, err := s.ListFollowedSince(ctx, since)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"b", "c"}, followedNames(followed))

		unfollowed, err := s.ListUnfollowedSince(ctx, since)
		require.NoError(t, err)
		assert.Len(t, unfollowed, 2)

		liked, err := s.ListLikedSince(ctx, since)
		require.NoError(t, err)
		assert.Len(t, liked, 3)

		exact, err := s.ListFollowedSince(ctx, base.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, exact, "records at exactly since are excluded")
	})

	if f.Reopen == nil {
		return
	}

	t.Run("durable across reopen", func(t *testing.T) {
		ctx := context.Background()
		s := f.Open(t)

		require.NoError(t, s.AddFollowed(ctx, models.FollowRecord{Username: "carol", Time: base}))
		require.NoError(t, s.AddUnfollowed(ctx, models.UnfollowRecord{Username: "dave", Time: base}))
		require.NoError(t, s.AddLiked(ctx, models.LikedPhotoRecord{Username: "erin", Href: "p/x", Time: base}))

		s = f.Reopen(t, s)

		rec, err := s.GetFollowed(ctx, "carol")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.True(t, rec.Time.Equal(base))

		un, err := s.GetUnfollowed(ctx, "dave")
		require.NoError(t, err)
		assert.NotNil(t, un)

		liked, err := s.ListLikedSince(ctx, time.Time{})
		require.NoError(t, err)
		require.Len(t, liked, 1)
		assert.Equal(t, "p/x", liked[0].Href)
	})
}

func followedNames(recs []models.FollowRecord) []string {
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		names = append(names, r.Username)
	}
	return names
}
