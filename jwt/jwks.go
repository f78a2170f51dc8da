package jwt

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// ErrNoPublicKey is returned when the manager signs with a shared secret and
// therefore has nothing it may publish.
var ErrNoPublicKey = errors.New("signing method has no publishable public key")

// PublicJWKS returns the verification key as a JWK set so that other services
// can verify access tokens without holding signing material. Only Ed25519
// managers have a public key.
func (m *Manager[ID]) PublicJWKS() (jwk.Set, error) {
	if m.config.SigningMethod != MethodEd25519 {
		return nil, ErrNoPublicKey
	}
	pub, ok := m.verifyKey.(ed25519.PublicKey)
	if !ok {
		return nil, ErrNoPublicKey
	}

	key, err := jwk.FromRaw(pub)
	if err != nil {
		return nil, fmt.Errorf("build jwk: %w", err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.EdDSA); err != nil {
		return nil, fmt.Errorf("set jwk alg: %w", err)
	}
	if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		return nil, fmt.Errorf("set jwk use: %w", err)
	}
	if m.config.KeyID != "" {
		if err := key.Set(jwk.KeyIDKey, m.config.KeyID); err != nil {
			return nil, fmt.Errorf("set jwk kid: %w", err)
		}
	}

	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return nil, fmt.Errorf("add jwk: %w", err)
	}
	return set, nil
}

// PublicJWKSJSON is PublicJWKS rendered as the standard JSON document.
func (m *Manager[ID]) PublicJWKSJSON() ([]byte, error) {
	set, err := m.PublicJWKS()
	if err != nil {
		return nil, err
	}
	return json.Marshal(set)
}
