// Package bot runs the follow, unfollow and like campaigns of one account.
//
// A Bot combines the history store, the throttle, the eligibility policy
// and the site adapters (profile lookup, relationship listings and the
// action executor). Every campaign walks a lazily paged candidate list and
// for each candidate:
//
//   - checks the recorded history and the policy,
//   - waits for the hourly and daily budgets to have room,
//   - performs the action and records its outcome before moving on.
//
// Because the outcome of every action is stored before the next one is
// attempted, an interrupted run can simply be started again: candidates
// already handled are skipped from history.
//
// Usage:
//
//	b, err := bot.New(bot.Deps{
//	    Store:     store,
//	    Throttle:  throttle,
//	    Executor:  client,
//	    Profiles:  client,
//	    Relations: client,
//	    Sessions:  sessions,
//	}, bot.OptionsFromConfig(cfg))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	n, err := b.UnfollowOldFollowed(ctx, 14, 50)
//
// A lockout reported by the site clears the saved session, waits out the
// blocked cooldown and is returned as an action_blocked error. Other
// failures affect only the current candidate.
package bot
