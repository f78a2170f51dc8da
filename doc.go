// Package jwtpair issues, verifies and rotates signed access/renewal token
// pairs for stateless service authentication, and refuses to rotate the same
// renewal token twice.
//
// An [Authenticator] is assembled through [Builder]. Its methods are safe to
// call from many goroutines; the only shared mutable state is the tracking
// store, which owns all serialization of concurrent rotations.
//
// # Rotation protocol
//
// Every renewal token's jti is registered as outstanding in a
// [tracking.Store] before the pair leaves CreateTokenPair. Refresh decodes
// the renewal token, checks its status, consumes it with the store's
// conditional Blacklist and only then mints a replacement pair. Consumed
// tokens keep failing with [ErrAlreadyUsed].
//
// # Architecture boundaries
//
// jwtpair is the public surface: [Authenticator], [Builder], [Config] and the
// error values. Signing lives in jwt/, store backends in tracking/, and the
// refresh state machine, audit dispatch and metric storage under internal/.
//
// # What this package must NOT do
//
//   - Retry store failures or compensate a consumed token whose replacement
//     could not be issued.
//   - Lock in-process around rotation; the store's compare-and-set decides.
//   - Log token strings or key material.
package jwtpair
