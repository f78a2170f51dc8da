package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod names the algorithm used to sign and verify tokens.
type SigningMethod string

const (
	// MethodEd25519 signs with an Ed25519 private key (EdDSA).
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with a shared secret using HMAC-SHA256.
	MethodHS256 SigningMethod = "hs256"
	// MethodHS384 signs with a shared secret using HMAC-SHA384.
	MethodHS384 SigningMethod = "hs384"
	// MethodHS512 signs with a shared secret using HMAC-SHA512.
	MethodHS512 SigningMethod = "hs512"
)

// IsHMAC reports whether m uses a shared secret.
func (m SigningMethod) IsHMAC() bool {
	return m == MethodHS256 || m == MethodHS384 || m == MethodHS512
}

// Config is the signing primitive configuration.
//
// For HMAC methods PrivateKey holds the shared secret. For Ed25519,
// PrivateKey and PublicKey accept raw key bytes or PEM; a manager built with
// only a PublicKey can verify but not sign.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
	KeyID         string
	// Now overrides the verification clock. Nil means time.Now.
	Now func() time.Time
}

// Manager signs claim sets and verifies presented tokens. It holds only
// immutable configuration and is safe for concurrent use.
type Manager[ID comparable] struct {
	config    Config
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	parser    *jwt.Parser
}

// NewManager validates cfg and prepares keys and parser options once.
func NewManager[ID comparable](cfg Config) (*Manager[ID], error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	m := &Manager[ID]{config: cfg}

	switch cfg.SigningMethod {
	case MethodHS256, MethodHS384, MethodHS512:
		if len(cfg.PrivateKey) == 0 {
			return nil, fmt.Errorf("%s requires private key", cfg.SigningMethod)
		}
		m.signKey = cfg.PrivateKey
		m.verifyKey = cfg.PrivateKey
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.signKey = priv
			m.verifyKey = priv.Public()
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.verifyKey = pub
		}
		if m.verifyKey == nil {
			return nil, errors.New("ed25519 requires public key or private key")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	m.method = methodFor(cfg.SigningMethod)

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Now != nil {
		options = append(options, jwt.WithTimeFunc(cfg.Now))
	}
	m.parser = jwt.NewParser(options...)

	return m, nil
}

// Issuer returns the configured issuer string.
func (m *Manager[ID]) Issuer() string { return m.config.Issuer }

// Method returns the configured signing method.
func (m *Manager[ID]) Method() SigningMethod { return m.config.SigningMethod }

// Sign encodes claims into the three-part compact form.
func (m *Manager[ID]) Sign(claims Claims[ID]) (string, error) {
	if m.signKey == nil {
		return "", errors.New("manager has no signing key")
	}
	if !claims.TokenType.Valid() {
		return "", fmt.Errorf("invalid token_type %q", claims.TokenType)
	}

	token := jwt.NewWithClaims(m.method, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}
	return token.SignedString(m.signKey)
}

// Parse verifies signature, algorithm, expiry and issuer and returns the
// recovered claims. Errors are the golang-jwt sentinels (ErrTokenMalformed,
// ErrTokenSignatureInvalid, ErrTokenExpired, ErrTokenInvalidIssuer, ...)
// so callers can classify them with errors.Is.
func (m *Manager[ID]) Parse(tokenStr string) (*Claims[ID], error) {
	claims := &Claims[ID]{}
	token, err := m.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if m.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			if kid != m.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return m.verifyKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if !claims.TokenType.Valid() {
		return nil, fmt.Errorf("%w: missing token_type", jwt.ErrTokenMalformed)
	}
	if claims.JTI == "" {
		return nil, fmt.Errorf("%w: missing jti", jwt.ErrTokenMalformed)
	}

	return claims, nil
}

func methodFor(m SigningMethod) jwt.SigningMethod {
	switch m {
	case MethodHS256:
		return jwt.SigningMethodHS256
	case MethodHS384:
		return jwt.SigningMethodHS384
	case MethodHS512:
		return jwt.SigningMethodHS512
	default:
		return jwt.SigningMethodEdDSA
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
