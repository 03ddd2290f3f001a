// Package storage holds the action history the throttle and eligibility
// checks are derived from.
//
// Three logical stores exist per account: followed users and unfollowed
// users (both keyed by username, overwrite on write) and liked photos
// (append-only). Every mutating call is durable before it returns, since
// the persisted history is the only state that survives a restart.
//
// Backends:
//   - Memory: in-process maps, for tests and dry runs
//   - Manager: JSON documents rewritten atomically (tmp file, fsync, rename)
//   - storage/sqlite: gorm + SQLite
//   - storage/badger: Badger key-value store
//
// A single writer process is assumed. Running two bots against the same
// history concurrently is unsupported.
package storage
