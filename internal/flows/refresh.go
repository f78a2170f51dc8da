package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/jwtpair/jwt"
	"github.com/MrEthical07/jwtpair/tracking"
	"github.com/sirupsen/logrus"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureTokenType
	RefreshFailureStatus
	RefreshFailureNotFound
	RefreshFailureReuse
	RefreshFailureBlacklist
	RefreshFailureIssue
	RefreshFailureExpired
)

func (k RefreshFailureKind) String() string {
	switch k {
	case RefreshFailureNone:
		return "none"
	case RefreshFailureDecode:
		return "decode"
	case RefreshFailureTokenType:
		return "token_type"
	case RefreshFailureStatus:
		return "status"
	case RefreshFailureNotFound:
		return "not_found"
	case RefreshFailureReuse:
		return "reuse"
	case RefreshFailureBlacklist:
		return "blacklist"
	case RefreshFailureIssue:
		return "issue"
	case RefreshFailureExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// RefreshResult carries either the issued pair or failure metadata. Claims
// is set whenever the presented token decoded.
type RefreshResult[ID comparable, P any] struct {
	Failure RefreshFailureKind
	Err     error
	Claims  *jwt.Claims[ID]
	Pair    P
	// LostRace is true when Status reported Outstanding but Blacklist found
	// the record already consumed by a concurrent rotation.
	LostRace bool
}

// RefreshStore is the part of tracking.Store a rotation needs.
type RefreshStore interface {
	Status(ctx context.Context, jti string) (tracking.Status, error)
	Blacklist(ctx context.Context, jti string) error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps[ID comparable, P any] struct {
	Decode    func(string) (*jwt.Claims[ID], error)
	Store     RefreshStore
	IssuePair func(context.Context, ID) (P, error)
	Logger    logrus.FieldLogger
	// Now, when set, rejects renewal tokens at or past exp before the store
	// is consulted, whatever leeway Decode allows.
	Now func() time.Time
}

// RunRefresh verifies a renewal token, consumes its identifier and issues a
// replacement pair for the same subject.
//
// The Status read rejects replays without a write. The Blacklist call is the
// linearization point: when several rotations race past Status, the store
// lets exactly one of them through. A failure after Blacklist leaves the
// presented token consumed with no replacement issued.
func RunRefresh[ID comparable, P any](ctx context.Context, token string, deps RefreshDeps[ID, P]) RefreshResult[ID, P] {
	claims, err := deps.Decode(token)
	if err != nil {
		return RefreshResult[ID, P]{
			Failure: RefreshFailureDecode,
			Err:     err,
		}
	}

	if claims.TokenType != jwt.TokenRenewal {
		return RefreshResult[ID, P]{
			Failure: RefreshFailureTokenType,
			Claims:  claims,
		}
	}

	if deps.Now != nil && !deps.Now().Before(claims.ExpiryTime()) {
		return RefreshResult[ID, P]{
			Failure: RefreshFailureExpired,
			Claims:  claims,
		}
	}

	status, err := deps.Store.Status(ctx, claims.JTI)
	if err != nil {
		return RefreshResult[ID, P]{
			Failure: RefreshFailureStatus,
			Err:     err,
			Claims:  claims,
		}
	}

	switch status {
	case tracking.StatusOutstanding:
	case tracking.StatusBlacklisted:
		return RefreshResult[ID, P]{
			Failure: RefreshFailureReuse,
			Claims:  claims,
		}
	default:
		return RefreshResult[ID, P]{
			Failure: RefreshFailureNotFound,
			Claims:  claims,
		}
	}

	if err := deps.Store.Blacklist(ctx, claims.JTI); err != nil {
		switch {
		case errors.Is(err, tracking.ErrAlreadyBlacklisted):
			return RefreshResult[ID, P]{
				Failure:  RefreshFailureReuse,
				Claims:   claims,
				LostRace: true,
			}
		case errors.Is(err, tracking.ErrNotFound):
			return RefreshResult[ID, P]{
				Failure: RefreshFailureNotFound,
				Claims:  claims,
			}
		default:
			return RefreshResult[ID, P]{
				Failure: RefreshFailureBlacklist,
				Err:     err,
				Claims:  claims,
			}
		}
	}

	pair, err := deps.IssuePair(ctx, claims.Subject)
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.WithFields(logrus.Fields{
				"op":  "refresh",
				"jti": claims.JTI,
			}).WithError(err).Warn("jwtpair: renewal token consumed but replacement pair was not issued")
		}
		return RefreshResult[ID, P]{
			Failure: RefreshFailureIssue,
			Err:     err,
			Claims:  claims,
		}
	}

	return RefreshResult[ID, P]{
		Failure: RefreshFailureNone,
		Claims:  claims,
		Pair:    pair,
	}
}
