package jwtpair

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/jwtpair/jwt"
	"github.com/go-playground/validator/v10"
)

// Config is the full authenticator configuration. It is consumed once by
// Builder.Build and never re-read.
type Config struct {
	JWT      JWTConfig      `yaml:"jwt"`
	Tracking TrackingConfig `yaml:"tracking"`
	Audit    AuditConfig    `yaml:"audit"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the issuer, key material and lifetimes of issued tokens.
//
// For the HMAC methods PrivateKey is the shared secret and PublicKey is
// ignored. For ed25519 both keys are raw or PEM encoded.
//
// Leeway is off by default. When set it relaxes the exp check in Decode for
// clock skew between hosts; Refresh still rejects renewal tokens at exp.
type JWTConfig struct {
	Issuer          string        `yaml:"issuer" validate:"required"`
	SigningMethod   string        `yaml:"signing_method" validate:"oneof=hs256 hs384 hs512 ed25519"`
	PrivateKey      []byte        `yaml:"-"`
	PublicKey       []byte        `yaml:"-"`
	KeyID           string        `yaml:"key_id" validate:"omitempty,max=128,printascii"`
	Leeway          time.Duration `yaml:"leeway" validate:"gte=0,lte=2m"`
	AccessLifetime  time.Duration `yaml:"access_lifetime" validate:"gt=0"`
	RenewalLifetime time.Duration `yaml:"renewal_lifetime" validate:"gt=0"`
}

/*
====================================
TRACKING CONFIG
====================================
*/

// TrackingConfig names the keyspace used by the built-in store backends.
// It has no effect when a store is supplied through Builder.WithStore.
type TrackingConfig struct {
	RedisPrefix   string `yaml:"redis_prefix" validate:"omitempty,max=64,printascii"`
	PostgresTable string `yaml:"postgres_table" validate:"omitempty,max=63"`
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size" validate:"gte=0"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters and the refresh latency
// histogram.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns production-leaning defaults. Issuer and key material
// are left empty and must be provided.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod:   string(jwt.MethodEd25519),
			Leeway:          0,
			AccessLifetime:  15 * time.Minute,
			RenewalLifetime: 7 * 24 * time.Hour,
		},
		Tracking: TrackingConfig{
			RedisPrefix:   "jrt",
			PostgresTable: "renewal_tokens",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// TestConfig returns a configuration suitable only for tests: issuer
// "issuer", HS256 with the secret "secret", access tokens valid for one hour
// and renewal tokens for one day.
func TestConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Issuer = "issuer"
	cfg.JWT.SigningMethod = string(jwt.MethodHS256)
	cfg.JWT.PrivateKey = []byte("secret")
	cfg.JWT.AccessLifetime = time.Hour
	cfg.JWT.RenewalLifetime = 24 * time.Hour
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

var configValidate = validator.New()

// Validate checks field ranges and that the key material matches the
// signing method. It does not parse keys; Build does.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	if err := configValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer must not be blank")
	}

	method := jwt.SigningMethod(c.JWT.SigningMethod)
	if method.IsHMAC() {
		if len(c.JWT.PrivateKey) == 0 {
			return fmt.Errorf("%s requires PrivateKey (shared secret)", method)
		}
	} else {
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	}

	return nil
}
