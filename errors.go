package jwtpair

import (
	"errors"
	"fmt"
)

var (
	// ErrSigning is returned when a token cannot be signed.
	ErrSigning = errors.New("token signing failed")
	// ErrInvalidSignature is returned when a token's signature does not verify
	// or its header names an algorithm or key this authenticator does not use.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpired is returned when a token's expiry (plus leeway) has passed.
	// Refresh ignores leeway for renewal tokens.
	ErrExpired = errors.New("token expired")
	// ErrMalformedToken is returned when a token is not a well-formed signed
	// token or its claims do not match the expected shape.
	ErrMalformedToken = errors.New("malformed token")
	// ErrIssuerMismatch is returned when the issuer claim differs from the
	// configured issuer.
	ErrIssuerMismatch = errors.New("token issuer mismatch")
	// ErrTokenTypeMismatch is returned by Refresh when the presented token is
	// not a renewal token.
	ErrTokenTypeMismatch = errors.New("token type mismatch")
	// ErrAlreadyUsed is returned by Refresh when the renewal token was already
	// consumed, including by a concurrent Refresh that won the race.
	ErrAlreadyUsed = errors.New("renewal token already used")
	// ErrNotFound is matched by *NotFoundError.
	ErrNotFound = errors.New("renewal token not tracked")
	// ErrStore is matched by *StoreError.
	ErrStore = errors.New("tracking store failure")
	// ErrRenewalConsumed wraps a Refresh failure that happened after the
	// presented renewal token was consumed. Retrying with the same token
	// cannot succeed.
	ErrRenewalConsumed = errors.New("renewal token consumed without replacement")
	// ErrAuthenticatorNotReady is returned by methods on a nil, unbuilt or
	// closed Authenticator.
	ErrAuthenticatorNotReady = errors.New("authenticator not initialized")
)

// NotFoundError reports a renewal identifier the tracking store has no
// record of: never issued by this system, or purged after expiry.
type NotFoundError struct {
	JTI string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("renewal token %q not tracked", e.JTI)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StoreError wraps a tracking store failure. Op names the store call that
// failed ("status", "blacklist" or "insert_outstanding").
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("tracking store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}
