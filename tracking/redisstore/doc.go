// Package redisstore implements the tracking store on Redis.
//
// # Key layout
//
// One hash per renewal identifier at "<prefix>:<jti>" with fields status
// ("outstanding" or "blacklisted"), sub, iat, exp and, once consumed,
// used_at. The key expires when the renewal token does; an expired key
// reports NotFound.
//
// # What this package must NOT do
//
//   - Import jwtpair or jwt (no upward imports).
//   - Split the Blacklist check and write into separate round-trips.
package redisstore
