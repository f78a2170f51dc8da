package tracking

import (
	"context"
	"errors"
	"time"
)

// Status is the consumption state of a renewal identifier.
type Status uint8

const (
	// StatusNotFound means no record exists: never issued here, or purged.
	StatusNotFound Status = iota
	// StatusOutstanding means the renewal token was issued and not yet used.
	StatusOutstanding
	// StatusBlacklisted means the renewal token was consumed by a rotation.
	StatusBlacklisted
)

func (s Status) String() string {
	switch s {
	case StatusOutstanding:
		return "outstanding"
	case StatusBlacklisted:
		return "blacklisted"
	default:
		return "not_found"
	}
}

var (
	// ErrNotFound is returned by Blacklist when the identifier has no record.
	ErrNotFound = errors.New("tracking record not found")
	// ErrAlreadyBlacklisted is returned by Blacklist when the identifier was
	// already consumed, including by a concurrent caller that won the race.
	ErrAlreadyBlacklisted = errors.New("tracking record already blacklisted")
	// ErrDuplicate is returned by InsertOutstanding when the identifier exists.
	ErrDuplicate = errors.New("tracking record already exists")
	// ErrUnavailable wraps backend failures (network, driver, script errors).
	ErrUnavailable = errors.New("tracking store unavailable")
	// ErrInvalidRecord is returned for records missing an identifier.
	ErrInvalidRecord = errors.New("invalid tracking record")
)

// Record is what a store keeps about one renewal identifier.
type Record struct {
	JTI       string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Store records which renewal identifiers are outstanding or consumed.
//
// Implementations must make Blacklist a conditional transition: it succeeds
// only when the record is Outstanding and must report ErrAlreadyBlacklisted
// to every caller but one when several race on the same identifier. Store
// state may be shared by many processes, so this cannot rely on in-process
// locking in the caller.
type Store interface {
	// Status looks up jti without mutating anything.
	Status(ctx context.Context, jti string) (Status, error)
	// Blacklist moves jti from Outstanding to Blacklisted.
	Blacklist(ctx context.Context, jti string) error
	// InsertOutstanding registers a new identifier as Outstanding and fails
	// with ErrDuplicate if it already exists.
	InsertOutstanding(ctx context.Context, rec Record) error
}

// Validate checks the fields every backend relies on.
func (r Record) Validate() error {
	if r.JTI == "" {
		return ErrInvalidRecord
	}
	return nil
}

// TTL returns how long a record should be retained from now. Records are
// only useful until the renewal token itself expires; after that the token
// fails verification before the store is consulted.
func (r Record) TTL(now time.Time) time.Duration {
	if r.ExpiresAt.IsZero() {
		return 0
	}
	return r.ExpiresAt.Sub(now)
}

// Lifetime returns the renewal token's validity window, ExpiresAt minus
// IssuedAt. Both instants come from the issuer's clock, so backends with
// their own expiry clock should size retention from Lifetime rather than
// from TTL against local time. It is zero when either bound is unset.
func (r Record) Lifetime() time.Duration {
	if r.IssuedAt.IsZero() || r.ExpiresAt.IsZero() {
		return 0
	}
	return r.ExpiresAt.Sub(r.IssuedAt)
}
