// Package cart implements the Cart Aggregator.
//
// A Cart is an append-only list of item snapshots taken when the user
// confirmed the add. Later price moves never touch an entry. Sessions keeps
// one cart per session id and evicts the least recently used session once
// MaxSessions is exceeded.
package cart
