package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/jwtpair/tracking"
	"github.com/redis/go-redis/v9"
)

const (
	fieldStatus = "status"

	valueOutstanding = "outstanding"
	valueBlacklisted = "blacklisted"

	minRecordTTL = time.Second
)

const (
	blacklistStatusNotFound    int64 = 0
	blacklistStatusAlreadyUsed int64 = 1
	blacklistStatusConsumed    int64 = 2
)

const insertOutstandingScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "status", "outstanding", "sub", ARGV[1], "iat", ARGV[2], "exp", ARGV[3])
local ttl = tonumber(ARGV[4])
if ttl > 0 then
  redis.call("PEXPIRE", KEYS[1], ttl)
end
return 1
`

var insertOutstandingLua = redis.NewScript(insertOutstandingScript)

const blacklistScript = `
local status = redis.call("HGET", KEYS[1], "status")
if not status then
  return 0
end
if status == "blacklisted" then
  return 1
end
if status ~= "outstanding" then
  return -1
end
redis.call("HSET", KEYS[1], "status", "blacklisted", "used_at", ARGV[1])
return 2
`

var blacklistLua = redis.NewScript(blacklistScript)

// Store is a Redis-backed tracking store. Each renewal identifier is a hash
// under prefix:jti that expires together with the renewal token. Blacklist
// runs as a single Lua script, so the status check and the transition are
// atomic across every process sharing the Redis instance.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a Store on client. prefix namespaces the keys.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "jrt"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) key(jti string) string {
	return s.prefix + ":" + jti
}

// Status reads the status field of the identifier's hash.
//
//	Performance: 1 Redis HGET.
func (s *Store) Status(ctx context.Context, jti string) (tracking.Status, error) {
	value, err := s.redis.HGet(ctx, s.key(jti), fieldStatus).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return tracking.StatusNotFound, nil
		}
		return tracking.StatusNotFound, fmt.Errorf("%w: %v", tracking.ErrUnavailable, err)
	}

	switch value {
	case valueOutstanding:
		return tracking.StatusOutstanding, nil
	case valueBlacklisted:
		return tracking.StatusBlacklisted, nil
	default:
		return tracking.StatusNotFound, fmt.Errorf("%w: corrupt status %q", tracking.ErrUnavailable, value)
	}
}

// Blacklist atomically moves an outstanding identifier to blacklisted.
//
//	Performance: 1 Lua EVALSHA (atomic compare-and-set).
func (s *Store) Blacklist(ctx context.Context, jti string) error {
	code, err := blacklistLua.Run(
		ctx,
		s.redis,
		[]string{s.key(jti)},
		time.Now().Unix(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", tracking.ErrUnavailable, err)
	}

	switch code {
	case blacklistStatusConsumed:
		return nil
	case blacklistStatusAlreadyUsed:
		return tracking.ErrAlreadyBlacklisted
	case blacklistStatusNotFound:
		return tracking.ErrNotFound
	default:
		return fmt.Errorf("%w: unknown blacklist script status %d", tracking.ErrUnavailable, code)
	}
}

// InsertOutstanding creates the identifier's hash if it does not exist.
//
//	Performance: 1 Lua EVALSHA.
func (s *Store) InsertOutstanding(ctx context.Context, rec tracking.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	var ttlMillis int64
	if !rec.ExpiresAt.IsZero() {
		// Redis expires keys on its own clock; the token's window is
		// measured on the issuer's.
		ttl := rec.Lifetime()
		if ttl == 0 {
			ttl = rec.TTL(time.Now())
		}
		if ttl < minRecordTTL {
			ttl = minRecordTTL
		}
		ttlMillis = ttl.Milliseconds()
	}

	created, err := insertOutstandingLua.Run(
		ctx,
		s.redis,
		[]string{s.key(rec.JTI)},
		rec.Subject,
		strconv.FormatInt(rec.IssuedAt.Unix(), 10),
		strconv.FormatInt(rec.ExpiresAt.Unix(), 10),
		ttlMillis,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", tracking.ErrUnavailable, err)
	}
	if created == 0 {
		return tracking.ErrDuplicate
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", tracking.ErrUnavailable, err)
	}
	return time.Since(start), nil
}
