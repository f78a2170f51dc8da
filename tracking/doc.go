// Package tracking defines the store contract that records the consumption
// state of renewal-token identifiers.
//
// A renewal identifier enters Outstanding when its pair is issued and moves
// to Blacklisted exactly once, when a rotation consumes it. There is no path
// back. Absence of a record reports NotFound.
//
// # Backends
//
//   - memory: process-local map guarded by a mutex; tests and single-node use.
//   - redisstore: go-redis with a Lua compare-and-set for Blacklist.
//   - pgstore: pgx with a conditional UPDATE for Blacklist.
//
// trackingtest holds the conformance suite every backend runs.
//
// # What this package must NOT do
//
//   - Interpret tokens, verify signatures or mint new pairs.
//   - Retry failed transitions on the caller's behalf.
package tracking
