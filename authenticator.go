package jwtpair

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/jwtpair/internal/audit"
	"github.com/MrEthical07/jwtpair/internal/flows"
	"github.com/MrEthical07/jwtpair/jwt"
	"github.com/MrEthical07/jwtpair/tracking"
	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/sirupsen/logrus"
)

// TokenPair is one access token and its linked renewal token. Both carry
// the same jti, iat and sub.
type TokenPair struct {
	Access  string `json:"access_token"`
	Renewal string `json:"renewal_token"`
}

// Authenticator issues, verifies and rotates token pairs for subjects of
// type ID. It holds only immutable configuration, the signing manager and a
// tracking store handle; all cross-request coordination is delegated to the
// store. Safe for concurrent use.
type Authenticator[ID comparable] struct {
	config  Config
	manager *jwt.Manager[ID]
	store   tracking.Store
	logger  logrus.FieldLogger
	audit   *audit.Dispatcher
	metrics *Metrics
	now     func() time.Time
	newJTI  func() string
	closed  atomic.Bool
}

type issuedPair struct {
	pair TokenPair
	jti  string
}

// CreateTokenPair signs a fresh access and renewal token for id and
// registers the renewal identifier as outstanding before returning. If the
// store cannot record it, no pair is returned and the error is a
// *StoreError.
//
//	Performance: 2 signatures, 1 store insert.
func (a *Authenticator[ID]) CreateTokenPair(ctx context.Context, id ID) (TokenPair, error) {
	if !a.ready() {
		return TokenPair{}, ErrAuthenticatorNotReady
	}

	issued, err := a.issuePair(ctx, id)
	if err != nil {
		a.emitAudit(ctx, auditEventPairIssueFailed, false, fmt.Sprint(id), "", err, nil)
		return TokenPair{}, err
	}

	a.emitAudit(ctx, auditEventPairIssued, true, fmt.Sprint(id), issued.jti, nil, nil)
	return issued.pair, nil
}

func (a *Authenticator[ID]) issuePair(ctx context.Context, id ID) (issuedPair, error) {
	now := a.now()
	jti := a.newJTI()
	issuer := a.manager.Issuer()

	renewal := jwt.NewClaims(jti, issuer, jwt.TokenRenewal, id, now, a.config.JWT.RenewalLifetime)
	access := jwt.NewClaims(jti, issuer, jwt.TokenAccess, id, now, a.config.JWT.AccessLifetime)

	renewalToken, err := a.manager.Sign(renewal)
	if err != nil {
		a.metrics.Inc(MetricIssueFailure)
		return issuedPair{}, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	accessToken, err := a.manager.Sign(access)
	if err != nil {
		a.metrics.Inc(MetricIssueFailure)
		return issuedPair{}, fmt.Errorf("%w: %w", ErrSigning, err)
	}

	rec := tracking.Record{
		JTI:       jti,
		Subject:   fmt.Sprint(id),
		IssuedAt:  renewal.IssuedTime(),
		ExpiresAt: renewal.ExpiryTime(),
	}
	if err := a.store.InsertOutstanding(ctx, rec); err != nil {
		a.metrics.Inc(MetricIssueFailure)
		a.metrics.Inc(MetricStoreFailure)
		a.logger.WithFields(logrus.Fields{"op": "insert_outstanding", "jti": jti}).
			WithError(err).Warn("jwtpair: renewal identifier not registered, pair discarded")
		return issuedPair{}, &StoreError{Op: "insert_outstanding", Err: err}
	}

	a.metrics.Inc(MetricIssueSuccess)
	return issuedPair{
		pair: TokenPair{Access: accessToken, Renewal: renewalToken},
		jti:  jti,
	}, nil
}

// Decode verifies token's signature, expiry and issuer and returns its
// claims. Failures wrap one of ErrInvalidSignature, ErrExpired,
// ErrIssuerMismatch or ErrMalformedToken around the verifier's cause.
//
// Decode does not consult the tracking store: a consumed renewal token
// still decodes until it expires.
func (a *Authenticator[ID]) Decode(token string) (*jwt.Claims[ID], error) {
	if !a.ready() {
		return nil, ErrAuthenticatorNotReady
	}

	claims, err := a.manager.Parse(token)
	if err != nil {
		a.metrics.Inc(MetricDecodeFailure)
		return nil, classifyDecodeError(err)
	}
	return claims, nil
}

func classifyDecodeError(err error) error {
	var kind error
	switch {
	case errors.Is(err, gjwt.ErrTokenExpired):
		kind = ErrExpired
	case errors.Is(err, gjwt.ErrTokenInvalidIssuer):
		kind = ErrIssuerMismatch
	case errors.Is(err, gjwt.ErrTokenSignatureInvalid),
		errors.Is(err, gjwt.ErrTokenUnverifiable):
		kind = ErrInvalidSignature
	default:
		kind = ErrMalformedToken
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Refresh exchanges a renewal token for a new pair exactly once.
//
// Errors: decode failures as in Decode, ErrTokenTypeMismatch for access
// tokens (the store is not consulted), *NotFoundError for identifiers the
// store does not know, ErrAlreadyUsed for consumed ones (including the
// losers of a concurrent rotation) and *StoreError for backend failures.
// A renewal token at or past its exp fails with ErrExpired even when the
// configured leeway would still let Decode accept it.
// When issuing the replacement fails after the old token was consumed, the
// old token stays consumed and the issuance error is wrapped in
// ErrRenewalConsumed.
//
//	Performance: 1 decode, 1 store read, 1 store CAS, then CreateTokenPair.
func (a *Authenticator[ID]) Refresh(ctx context.Context, renewalToken string) (TokenPair, error) {
	if !a.ready() {
		return TokenPair{}, ErrAuthenticatorNotReady
	}

	start := time.Now()
	defer func() {
		a.metrics.Observe(MetricRefreshLatency, time.Since(start))
	}()

	result := flows.RunRefresh(ctx, renewalToken, flows.RefreshDeps[ID, issuedPair]{
		Decode:    a.Decode,
		Store:     a.store,
		IssuePair: a.issuePair,
		Logger:    a.logger,
		Now:       a.now,
	})

	var userID, jti string
	if result.Claims != nil {
		userID = fmt.Sprint(result.Claims.Subject)
		jti = result.Claims.JTI
	}

	switch result.Failure {
	case flows.RefreshFailureNone:
		a.metrics.Inc(MetricRefreshSuccess)
		a.emitAudit(ctx, auditEventRefreshSuccess, true, userID, jti, nil, func() map[string]string {
			return map[string]string{"new_jti": result.Pair.jti}
		})
		return result.Pair.pair, nil

	case flows.RefreshFailureDecode:
		a.metrics.Inc(MetricRefreshFailure)
		a.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", result.Err, nil)
		return TokenPair{}, result.Err

	case flows.RefreshFailureTokenType:
		err := fmt.Errorf("%w: got %s, want %s", ErrTokenTypeMismatch, result.Claims.TokenType, jwt.TokenRenewal)
		a.metrics.Inc(MetricRefreshFailure)
		a.metrics.Inc(MetricRefreshTypeMismatch)
		a.emitAudit(ctx, auditEventRefreshTypeMismatch, false, userID, jti, err, nil)
		return TokenPair{}, err

	case flows.RefreshFailureExpired:
		err := fmt.Errorf("%w: renewal token past exp", ErrExpired)
		a.metrics.Inc(MetricRefreshFailure)
		a.emitAudit(ctx, auditEventRefreshInvalid, false, userID, jti, err, nil)
		return TokenPair{}, err

	case flows.RefreshFailureNotFound:
		err := &NotFoundError{JTI: jti}
		a.metrics.Inc(MetricRefreshFailure)
		a.metrics.Inc(MetricRefreshNotFound)
		a.emitAudit(ctx, auditEventRefreshNotFound, false, userID, jti, err, nil)
		return TokenPair{}, err

	case flows.RefreshFailureReuse:
		a.metrics.Inc(MetricRefreshFailure)
		a.metrics.Inc(MetricRefreshReuseDetected)
		a.logger.WithFields(logrus.Fields{
			"op":        "refresh",
			"jti":       jti,
			"lost_race": result.LostRace,
		}).Warn("jwtpair: consumed renewal token presented again")
		a.emitAudit(ctx, auditEventRefreshReuse, false, userID, jti, ErrAlreadyUsed, func() map[string]string {
			if result.LostRace {
				return map[string]string{"lost_race": "true"}
			}
			return nil
		})
		return TokenPair{}, ErrAlreadyUsed

	case flows.RefreshFailureStatus, flows.RefreshFailureBlacklist:
		op := "status"
		if result.Failure == flows.RefreshFailureBlacklist {
			op = "blacklist"
		}
		err := &StoreError{Op: op, Err: result.Err}
		a.metrics.Inc(MetricRefreshFailure)
		a.metrics.Inc(MetricStoreFailure)
		a.logger.WithFields(logrus.Fields{"op": op, "jti": jti}).
			WithError(result.Err).Warn("jwtpair: tracking store failure during refresh")
		a.emitAudit(ctx, auditEventRefreshInvalid, false, userID, jti, err, nil)
		return TokenPair{}, err

	default:
		err := fmt.Errorf("%w: %w", ErrRenewalConsumed, result.Err)
		a.metrics.Inc(MetricRefreshFailure)
		a.emitAudit(ctx, auditEventRefreshInvalid, false, userID, jti, err, func() map[string]string {
			return map[string]string{"consumed": "true"}
		})
		return TokenPair{}, err
	}
}

// Status reports the tracking status of a renewal identifier without
// mutating it.
func (a *Authenticator[ID]) Status(ctx context.Context, jti string) (tracking.Status, error) {
	if !a.ready() || a.store == nil {
		return tracking.StatusNotFound, ErrAuthenticatorNotReady
	}
	status, err := a.store.Status(ctx, jti)
	if err != nil {
		a.metrics.Inc(MetricStoreFailure)
		return tracking.StatusNotFound, &StoreError{Op: "status", Err: err}
	}
	return status, nil
}

// PublicJWKS returns the verification key as a JWK set. It fails with
// jwt.ErrNoPublicKey for HMAC methods.
func (a *Authenticator[ID]) PublicJWKS() (jwk.Set, error) {
	if !a.ready() {
		return nil, ErrAuthenticatorNotReady
	}
	return a.manager.PublicJWKS()
}

// MetricsSnapshot returns a copy of the in-process counters.
func (a *Authenticator[ID]) MetricsSnapshot() MetricsSnapshot {
	if a == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return a.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped because the
// dispatcher buffer was full, a blocked emit gave up, or Close had run.
func (a *Authenticator[ID]) AuditDropped() uint64 {
	if a == nil {
		return 0
	}
	return a.audit.Dropped()
}

// Close flushes pending audit events and stops the dispatcher. Later calls
// to token operations fail with ErrAuthenticatorNotReady. It does not close
// the tracking store.
func (a *Authenticator[ID]) Close() {
	if a == nil {
		return
	}
	a.closed.Store(true)
	a.audit.Close()
}

func (a *Authenticator[ID]) ready() bool {
	return a != nil && a.manager != nil && !a.closed.Load()
}

func newJTI() string {
	return uuid.NewString()
}
