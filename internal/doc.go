// Package internal holds implementation packages that are private to
// jwtpair.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher plus Sink implementations)
//   - flows: the refresh orchestration behind Authenticator.Refresh
//
// # What this package must NOT do
//
//   - Export types that appear in the public jwtpair API except through
//     aliases declared in the root package.
//   - Be imported by any package outside the jwtpair module.
package internal
