// Package retry provides bounded retry with pluggable backoff for
// transient failures of site requests.
//
// The default policy makes three attempts and escalates linearly,
// pausing 30m then 60m between them.
//
//	err := retry.Do(ctx, func() error {
//		return client.fetch(ctx, req)
//	}, retry.DefaultConfig())
//
// Only typed network, rate-limit and server errors are retried; auth,
// not-found and action-blocked errors surface immediately. Pauses go
// through Config.Sleeper so callers can substitute a fake clock.
package retry
