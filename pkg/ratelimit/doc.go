// Package ratelimit enforces the hourly and daily action budgets.
//
// Budgets are not tracked in memory: every check re-derives the counts
// from the history store, so a restarted process sees exactly the same
// budget as the one that crashed. Unfollow records flagged NoActionTaken
// never consume budget.
//
// The package also provides the pause primitives used between actions: a
// Sleeper that honours context cancellation, a Jitter source for
// human-like delays, and ManualClock, a simulated clock for tests.
package ratelimit
