package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType is the role a token was minted for. It is fixed at creation and
// serialized as a two-valued string tag.
type TokenType string

const (
	// TokenAccess marks short-lived credentials presented on ordinary requests.
	TokenAccess TokenType = "Access"
	// TokenRenewal marks the credential exchanged exactly once for a new pair.
	TokenRenewal TokenType = "Renewal"
)

// Valid reports whether t is one of the two known roles.
func (t TokenType) Valid() bool {
	return t == TokenAccess || t == TokenRenewal
}

// UnmarshalText rejects unknown role tags so a forged or corrupted
// token_type surfaces as a malformed token instead of a zero value.
func (t *TokenType) UnmarshalText(text []byte) error {
	v := TokenType(text)
	if !v.Valid() {
		return fmt.Errorf("unknown token_type %q", string(text))
	}
	*t = v
	return nil
}

// Claims is the signed payload shared by access and renewal tokens.
//
// The access and renewal claims minted together carry the same JTI, IssuedAt
// and Subject and differ only in TokenType and ExpiresAt. Timestamps are
// seconds since the Unix epoch.
type Claims[ID comparable] struct {
	JTI       string    `json:"jti"`
	IssuedAt  int64     `json:"iat"`
	ExpiresAt int64     `json:"exp"`
	Issuer    string    `json:"iss"`
	TokenType TokenType `json:"token_type"`
	Subject   ID        `json:"sub"`
}

// NewClaims builds a claim set issued at now that lives for lifetime.
func NewClaims[ID comparable](jti, issuer string, tokenType TokenType, sub ID, now time.Time, lifetime time.Duration) Claims[ID] {
	return Claims[ID]{
		JTI:       jti,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(lifetime).Unix(),
		Issuer:    issuer,
		TokenType: tokenType,
		Subject:   sub,
	}
}

// IssuedTime returns IssuedAt as a time.Time.
func (c Claims[ID]) IssuedTime() time.Time { return time.Unix(c.IssuedAt, 0) }

// ExpiryTime returns ExpiresAt as a time.Time.
func (c Claims[ID]) ExpiryTime() time.Time { return time.Unix(c.ExpiresAt, 0) }

// The methods below satisfy jwt.Claims so the parser's validator can check
// exp and iss directly against this struct.

func (c Claims[ID]) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.ExpiresAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

func (c Claims[ID]) GetIssuedAt() (*jwt.NumericDate, error) {
	if c.IssuedAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

func (c Claims[ID]) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }

func (c Claims[ID]) GetIssuer() (string, error) { return c.Issuer, nil }

func (c Claims[ID]) GetSubject() (string, error) { return fmt.Sprint(c.Subject), nil }

func (c Claims[ID]) GetAudience() (jwt.ClaimStrings, error) { return nil, nil }
