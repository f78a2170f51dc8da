// Package middleware adapts an Authenticator to net/http.
//
//   - [RequireAccess] verifies the bearer access token and stores its claims
//     in the request context ([ClaimsFromContext]).
//   - [RefreshHandler] exchanges a renewal token for a new pair.
//   - [JWKSHandler] publishes the Ed25519 verification key.
//
// # What this package must NOT do
//
//   - Parse or sign JWTs itself; every decision is delegated to the Authenticator.
//   - Touch the tracking store directly.
package middleware
