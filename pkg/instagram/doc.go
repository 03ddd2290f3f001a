// Package instagram is the HTTP side of the bot: a client for the
// Instagram web API authenticated with a saved browser session.
//
// A Client serves three roles:
//   - profile source: Lookup, backed by an LRU cache
//   - relationship source: Followers, Following and Likers streams over
//     the paginated GraphQL queries, and the live FollowsViewer check
//   - action executor: Execute for follow, unfollow and like
//
// Requests are paced by a token bucket and retried through pkg/retry.
// Status codes and JSON error bodies map to pkg/errors types; lockout
// responses such as feedback_required become action_blocked.
//
//	client, err := instagram.NewClient(sess, instagram.Options{
//		RequestsPerMinute: 30,
//		Logger:            log,
//	})
//	profile, err := client.Lookup(ctx, "someone")
//	res, err := client.Execute(ctx, models.Action{Verb: models.VerbFollow, Target: "someone"})
package instagram
