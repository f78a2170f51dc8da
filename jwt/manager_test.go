package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func newHSManager(t *testing.T) *Manager[int] {
	t.Helper()
	m, err := NewManager[int](Config{
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("secret"),
		Issuer:        "issuer",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestSignParseRoundTrip(t *testing.T) {
	m := newHSManager(t)
	now := time.Now()
	want := NewClaims("jti-1", "issuer", TokenRenewal, 42, now, time.Hour)

	token, err := m.Sign(want)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if *got != want {
		t.Fatalf("round trip mismatch: got %+v want %+v", *got, want)
	}
	if got.IssuedAt != now.Unix() {
		t.Fatalf("expected iat truncated to seconds, got %d", got.IssuedAt)
	}
}

func TestRoundTripStringSubject(t *testing.T) {
	m, err := NewManager[string](Config{SigningMethod: MethodHS512, PrivateKey: []byte("secret-512"), Issuer: "issuer"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	claims := NewClaims("jti-s", "issuer", TokenAccess, "user-a", time.Now(), time.Minute)
	token, err := m.Sign(claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Subject != "user-a" || got.TokenType != TokenAccess {
		t.Fatalf("unexpected claims %+v", got)
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager[int](Config{SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := NewClaims("j", "", TokenAccess, 1, time.Now(), time.Minute)
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	token, err := tok.SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	_, err = m.Parse(token)
	if !errors.Is(err, gjwt.ErrTokenSignatureInvalid) {
		t.Fatalf("expected signature invalid for wrong algorithm, got %v", err)
	}
}

func TestParseRejectsTamperedSignature(t *testing.T) {
	m := newHSManager(t)
	other, err := NewManager[int](Config{SigningMethod: MethodHS256, PrivateKey: []byte("other"), Issuer: "issuer"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := other.Sign(NewClaims("j", "issuer", TokenAccess, 1, time.Now(), time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Parse(token); !errors.Is(err, gjwt.ErrTokenSignatureInvalid) {
		t.Fatalf("expected signature invalid, got %v", err)
	}
}

func TestParseIssuerAndLeeway(t *testing.T) {
	_, priv := newEdKeys(t)
	m, err := NewManager[int](Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     priv.Public().(ed25519.PublicKey),
		Issuer:        "jwtpair",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	valid, err := m.Sign(NewClaims("j", "jwtpair", TokenAccess, 7, time.Now(), time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Parse(valid); err != nil {
		t.Fatalf("expected valid token to parse: %v", err)
	}

	wrongIssuer, _ := m.Sign(NewClaims("j", "other", TokenAccess, 7, time.Now(), time.Minute))
	if _, err := m.Parse(wrongIssuer); !errors.Is(err, gjwt.ErrTokenInvalidIssuer) {
		t.Fatalf("expected wrong issuer to fail, got %v", err)
	}

	withinLeeway, _ := m.Sign(NewClaims("j", "jwtpair", TokenAccess, 7, time.Now().Add(-time.Minute), 45*time.Second))
	if _, err := m.Parse(withinLeeway); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}

	expired, _ := m.Sign(NewClaims("j", "jwtpair", TokenAccess, 7, time.Now().Add(-3*time.Minute), time.Minute))
	if _, err := m.Parse(expired); !errors.Is(err, gjwt.ErrTokenExpired) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestParseKidPinning(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager[int](Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		KeyID:         "k1",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := NewClaims("j", "", TokenAccess, 1, time.Now(), time.Minute)
	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok.Header["kid"] = "k2"
	token, err := tok.SignedString(priv)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected unknown kid failure")
	}

	good, err := m.Sign(claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Parse(good); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}
}

func TestParseRejectsUnknownTokenType(t *testing.T) {
	secret := []byte("secret")
	m, err := NewManager[int](Config{SigningMethod: MethodHS256, PrivateKey: secret})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{
		"jti":        "j",
		"iat":        time.Now().Unix(),
		"exp":        time.Now().Add(time.Minute).Unix(),
		"token_type": "Bearer",
		"sub":        1,
	})
	token, err := tok.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Parse(token); !errors.Is(err, gjwt.ErrTokenMalformed) {
		t.Fatalf("expected malformed for unknown token_type, got %v", err)
	}
}

func TestParseRequiresExpiry(t *testing.T) {
	secret := []byte("secret")
	m, err := NewManager[int](Config{SigningMethod: MethodHS256, PrivateKey: secret})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{
		"jti":        "j",
		"token_type": "Access",
		"sub":        1,
	})
	token, _ := tok.SignedString(secret)
	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected token without exp to fail")
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{name: "hs256 without secret", cfg: Config{SigningMethod: MethodHS256}},
		{name: "unknown method", cfg: Config{SigningMethod: "rs256", PrivateKey: []byte("x")}},
		{name: "ed25519 without keys", cfg: Config{SigningMethod: MethodEd25519}},
		{name: "ed25519 garbage key", cfg: Config{SigningMethod: MethodEd25519, PublicKey: []byte("nope")}},
		{name: "negative leeway", cfg: Config{SigningMethod: MethodHS256, PrivateKey: []byte("x"), Leeway: -time.Second}},
		{name: "large leeway", cfg: Config{SigningMethod: MethodHS256, PrivateKey: []byte("x"), Leeway: 3 * time.Minute}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewManager[int](tc.cfg); err == nil {
				t.Fatal("expected configuration error")
			}
		})
	}
}

func TestVerifyOnlyManagerCannotSign(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager[int](Config{SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.Sign(NewClaims("j", "", TokenAccess, 1, time.Now(), time.Minute)); err == nil {
		t.Fatal("expected sign without private key to fail")
	}
}

func TestSignRejectsInvalidTokenType(t *testing.T) {
	m := newHSManager(t)
	if _, err := m.Sign(NewClaims("j", "issuer", TokenType("Bearer"), 1, time.Now(), time.Minute)); err == nil {
		t.Fatal("expected invalid token type to be rejected")
	}
}
