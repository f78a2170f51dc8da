// Package jwt signs and verifies the claim sets carried by access and renewal
// tokens. It wraps golang-jwt with a fixed algorithm allow-list, required
// expiry, issuer pinning and an optional kid header.
//
// # Architecture boundaries
//
// This package owns the claim model and the signing primitive. It does NOT
// track renewal identifiers or decide rotation outcomes; that belongs to the
// authenticator and the tracking store.
//
// # What this package must NOT do
//
//   - Import jwtpair or tracking (no upward imports).
//   - Perform I/O.
package jwt
