package jwtpair

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "test config valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "leeway valid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "leeway too large",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "leeway negative",
			mutate: func(c *Config) {
				c.JWT.Leeway = -time.Second
			},
			wantValid: false,
		},
		{
			name: "issuer blank",
			mutate: func(c *Config) {
				c.JWT.Issuer = "   "
			},
			wantValid: false,
		},
		{
			name: "hs512 valid",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "hs512"
			},
			wantValid: true,
		},
		{
			name: "rs256 unsupported",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "hmac without secret",
			mutate: func(c *Config) {
				c.JWT.PrivateKey = nil
			},
			wantValid: false,
		},
		{
			name: "ed25519 without public key",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "ed25519"
			},
			wantValid: false,
		},
		{
			name: "zero access lifetime",
			mutate: func(c *Config) {
				c.JWT.AccessLifetime = 0
			},
			wantValid: false,
		},
		{
			name: "zero renewal lifetime",
			mutate: func(c *Config) {
				c.JWT.RenewalLifetime = 0
			},
			wantValid: false,
		},
		{
			name: "renewal shorter than access is allowed",
			mutate: func(c *Config) {
				c.JWT.RenewalLifetime = time.Minute
			},
			wantValid: true,
		},
		{
			name: "negative audit buffer",
			mutate: func(c *Config) {
				c.Audit.BufferSize = -1
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := TestConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultConfigNeedsIssuerAndKeys(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("default config must not validate without issuer and keys")
	}
	if cfg.JWT.Leeway != 0 {
		t.Fatalf("leeway must be opt-in, default is %s", cfg.JWT.Leeway)
	}
}

func TestWithConfigCopiesKeyMaterial(t *testing.T) {
	cfg := TestConfig()
	b := New[int64]().WithConfig(cfg)
	cfg.JWT.PrivateKey[0] = 'X'
	if string(b.config.JWT.PrivateKey) != "secret" {
		t.Fatalf("builder config aliased caller slice: %q", b.config.JWT.PrivateKey)
	}
}

func TestLoadConfig(t *testing.T) {
	doc := `
jwt:
  issuer: auth.example
  signing_method: hs384
  secret: 0123456789abcdef0123456789abcdef
  access_lifetime: 10m
  renewal_lifetime: 72h
tracking:
  redis_prefix: rt
audit:
  enabled: true
`
	cfg, err := LoadConfig(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWT.Issuer != "auth.example" || cfg.JWT.SigningMethod != "hs384" {
		t.Fatalf("unexpected jwt section %+v", cfg.JWT)
	}
	if cfg.JWT.AccessLifetime != 10*time.Minute || cfg.JWT.RenewalLifetime != 72*time.Hour {
		t.Fatalf("unexpected lifetimes %s/%s", cfg.JWT.AccessLifetime, cfg.JWT.RenewalLifetime)
	}
	if cfg.JWT.Leeway != DefaultConfig().JWT.Leeway {
		t.Fatalf("unset leeway should keep default, got %s", cfg.JWT.Leeway)
	}
	if cfg.Tracking.RedisPrefix != "rt" || cfg.Tracking.PostgresTable != "renewal_tokens" {
		t.Fatalf("unexpected tracking section %+v", cfg.Tracking)
	}
	if !cfg.Audit.Enabled || cfg.Audit.BufferSize != 1024 {
		t.Fatalf("unexpected audit section %+v", cfg.Audit)
	}
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	doc := "jwt:\n  issuer: x\n  secret: s\n  signing_method: hs256\n  lifetime: 1h\n"
	if _, err := LoadConfig(strings.NewReader(doc)); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestLoadConfigSecretFromEnv(t *testing.T) {
	t.Setenv("JWTPAIR_TEST_SECRET", "from-the-environment")
	doc := "jwt:\n  issuer: x\n  signing_method: hs256\n  secret_env: JWTPAIR_TEST_SECRET\n"
	cfg, err := LoadConfig(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(cfg.JWT.PrivateKey) != "from-the-environment" {
		t.Fatalf("unexpected secret %q", cfg.JWT.PrivateKey)
	}

	missing := "jwt:\n  issuer: x\n  signing_method: hs256\n  secret_env: JWTPAIR_TEST_UNSET\n"
	if _, err := LoadConfig(strings.NewReader(missing)); err == nil {
		t.Fatal("expected error for unset environment variable")
	}
}

func TestLoadConfigFileReadsKeyFiles(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "signing.key"), priv, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "signing.pub"), pub, 0o644); err != nil {
		t.Fatal(err)
	}
	doc := `
jwt:
  issuer: auth.example
  signing_method: ed25519
  key_id: k1
  private_key_file: signing.key
  public_key_file: signing.pub
`
	path := filepath.Join(dir, "jwtpair.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.JWT.PrivateKey) != ed25519.PrivateKeySize || len(cfg.JWT.PublicKey) != ed25519.PublicKeySize {
		t.Fatalf("unexpected key sizes %d/%d", len(cfg.JWT.PrivateKey), len(cfg.JWT.PublicKey))
	}
}
