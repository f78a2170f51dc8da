// Package flows contains pure-function orchestrators for Authenticator
// operations that touch more than one dependency.
//
// RunRefresh accepts a typed dependency struct and returns a result value
// classified by failure kind, so the root package owns error mapping,
// metrics and audit while the ordering of store calls lives here.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import jwtpair (to avoid import cycles).
//   - Retry a failed store transition.
package flows
