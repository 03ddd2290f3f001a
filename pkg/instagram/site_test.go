package instagram

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "instabot/pkg/errors"
	"instabot/pkg/models"
	"instabot/pkg/relations"
)

func aliceAndBob() *fakeSite {
	return newFakeSite(
		&fakeUser{ID: "1", Username: "me", Followers: 10, Following: 20},
		&fakeUser{ID: "2", Username: "alice", Followers: 300, Following: 250, FollowedBy: true,
			Media: []Node{
				{ID: "m1", Shortcode: "sc1", DisplayURL: "https://cdn/1.jpg", EdgeLikedBy: Count{Count: 7}},
				{ID: "m2", Shortcode: "sc2", IsVideo: true, EdgeMediaPreviewLike: Count{Count: 3}},
			}},
		&fakeUser{ID: "3", Username: "bob", Followers: 50, Following: 60, Private: true},
	)
}

func TestLookup(t *testing.T) {
	site := aliceAndBob()
	client, _ := newTestClient(t, site)
	ctx := context.Background()

	p, err := client.Lookup(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "2", p.ID)
	assert.Equal(t, 300, p.FollowerCount)
	assert.Equal(t, 250, p.FollowingCount)
	require.Len(t, p.RecentMedia, 2)
	assert.Equal(t, 7, p.RecentMedia[0].LikeCount)
	assert.Equal(t, 3, p.RecentMedia[1].LikeCount)
	assert.True(t, p.RecentMedia[1].IsVideo)
	assert.Equal(t, "https://www.instagram.com/p/sc1/", p.RecentMedia[0].Href())

	_, err = client.Lookup(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, site.count("GET "+ProfileEndpoint), "second lookup is served from cache")

	client.Forget("alice")
	_, err = client.Lookup(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, site.count("GET "+ProfileEndpoint))
}

func TestLookupMissingUser(t *testing.T) {
	client, _ := newTestClient(t, aliceAndBob())

	_, err := client.Lookup(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestViewerAndFollowsViewer(t *testing.T) {
	client, _ := newTestClient(t, aliceAndBob())
	ctx := context.Background()

	me, err := client.Viewer(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", me.ID)

	mutual, err := client.FollowsViewer(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, mutual)

	mutual, err = client.FollowsViewer(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, mutual)
}

func TestRelationshipStreams(t *testing.T) {
	site := aliceAndBob()
	site.pages[FollowersQueryHash+":1"] = [][]string{{"a", "b"}, {"c"}}
	site.pages[FollowingQueryHash+":1"] = [][]string{{"x"}}
	site.pages[LikersQueryHash+":sc1"] = [][]string{{"l1", "l2"}, {"l3"}, {"l4"}}
	client, _ := newTestClient(t, site)
	ctx := context.Background()

	followers, err := relations.Collect(ctx, client.Followers("1", 2), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, followers)

	following, err := relations.Collect(ctx, client.Following("1", 0), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, following)

	likers, err := relations.Collect(ctx, client.Likers("sc1", 50), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"l1", "l2", "l3"}, likers)
	assert.Equal(t, 2, site.count("GET "+GraphQLEndpoint)-3, "likers stop after the limit is reached")
}

func TestExecuteFollowAndUnfollow(t *testing.T) {
	site := aliceAndBob()
	client, _ := newTestClient(t, site)
	ctx := context.Background()

	res, err := client.Execute(ctx, models.Action{Verb: models.VerbFollow, Target: "alice"})
	require.NoError(t, err)
	assert.Equal(t, models.Result{OK: true}, res)
	assert.True(t, site.following["2"])

	res, err = client.Execute(ctx, models.Action{Verb: models.VerbFollow, Target: "alice"})
	require.NoError(t, err)
	assert.Equal(t, models.Result{NoActionTaken: true}, res, "already following")

	res, err = client.Execute(ctx, models.Action{Verb: models.VerbUnfollow, Target: "alice"})
	require.NoError(t, err)
	assert.Equal(t, models.Result{OK: true}, res)
	assert.False(t, site.following["2"])

	res, err = client.Execute(ctx, models.Action{Verb: models.VerbUnfollow, Target: "alice"})
	require.NoError(t, err)
	assert.Equal(t, models.Result{NoActionTaken: true}, res, "not following any more")
}

func TestExecuteUnknownTarget(t *testing.T) {
	client, _ := newTestClient(t, aliceAndBob())

	_, err := client.Execute(context.Background(), models.Action{Verb: models.VerbUnfollow, Target: "ghost"})
	assert.True(t, errs.IsNotFound(err))
}

func TestExecuteDryRunTouchesNothing(t *testing.T) {
	site := aliceAndBob()
	client, _ := newTestClient(t, site)

	res, err := client.Execute(context.Background(), models.Action{Verb: models.VerbFollow, Target: "alice", DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Empty(t, site.requests)
}

func TestExecuteLike(t *testing.T) {
	site := aliceAndBob()
	client, _ := newTestClient(t, site)
	ctx := context.Background()

	res, err := client.Execute(ctx, models.Action{Verb: models.VerbLike, Target: "alice", Media: &models.Media{ID: "m1", Shortcode: "sc1"}})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, []string{"m1"}, site.likes)

	_, err = client.Execute(ctx, models.Action{Verb: models.VerbLike, Target: "alice"})
	require.Error(t, err)
}

func TestExecuteReportsBlocked(t *testing.T) {
	site := aliceAndBob()
	site.blockPosts = true
	client, sleeper := newTestClient(t, site)
	ctx := context.Background()

	res, err := client.Execute(ctx, models.Action{Verb: models.VerbFollow, Target: "alice"})
	require.NoError(t, err)
	assert.Equal(t, models.Result{Blocked: true}, res)
	assert.Empty(t, sleeper.delays, "lockouts are not retried")

	res, err = client.Execute(ctx, models.Action{Verb: models.VerbLike, Target: "alice", Media: &models.Media{ID: "m1"}})
	require.NoError(t, err)
	assert.True(t, res.Blocked)
	assert.Equal(t, "blocked", res.Outcome())
}

func TestExecuteUnsupportedVerb(t *testing.T) {
	client, _ := newTestClient(t, aliceAndBob())
	_, err := client.Execute(context.Background(), models.Action{Verb: "comment", Target: "alice"})
	require.Error(t, err)
}
