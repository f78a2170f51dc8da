package jwtpair

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of Config. Key material is never inlined
// except for the HMAC secret, which may come from an environment variable.
type fileConfig struct {
	JWT struct {
		Issuer          string        `yaml:"issuer"`
		SigningMethod   string        `yaml:"signing_method"`
		KeyID           string        `yaml:"key_id"`
		Leeway          time.Duration `yaml:"leeway"`
		AccessLifetime  time.Duration `yaml:"access_lifetime"`
		RenewalLifetime time.Duration `yaml:"renewal_lifetime"`
		Secret          string        `yaml:"secret"`
		SecretEnv       string        `yaml:"secret_env"`
		PrivateKeyFile  string        `yaml:"private_key_file"`
		PublicKeyFile   string        `yaml:"public_key_file"`
	} `yaml:"jwt"`
	Tracking TrackingConfig `yaml:"tracking"`
	Audit    AuditConfig    `yaml:"audit"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// LoadConfig reads a YAML document from r on top of DefaultConfig and
// validates the result. Durations use Go syntax ("15m", "168h"). Relative
// key file paths are resolved against the working directory.
func LoadConfig(r io.Reader) (Config, error) {
	return loadConfig(r, "")
}

// LoadConfigFile reads the YAML file at path. Relative key file paths are
// resolved against the file's directory.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return loadConfig(bytes.NewReader(data), filepath.Dir(path))
}

func loadConfig(r io.Reader, baseDir string) (Config, error) {
	defaults := DefaultConfig()

	var fc fileConfig
	fc.JWT.Issuer = defaults.JWT.Issuer
	fc.JWT.SigningMethod = defaults.JWT.SigningMethod
	fc.JWT.Leeway = defaults.JWT.Leeway
	fc.JWT.AccessLifetime = defaults.JWT.AccessLifetime
	fc.JWT.RenewalLifetime = defaults.JWT.RenewalLifetime
	fc.Tracking = defaults.Tracking
	fc.Audit = defaults.Audit
	fc.Metrics = defaults.Metrics

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	cfg := Config{
		JWT: JWTConfig{
			Issuer:          fc.JWT.Issuer,
			SigningMethod:   fc.JWT.SigningMethod,
			KeyID:           fc.JWT.KeyID,
			Leeway:          fc.JWT.Leeway,
			AccessLifetime:  fc.JWT.AccessLifetime,
			RenewalLifetime: fc.JWT.RenewalLifetime,
		},
		Tracking: fc.Tracking,
		Audit:    fc.Audit,
		Metrics:  fc.Metrics,
	}

	switch {
	case fc.JWT.Secret != "" && fc.JWT.SecretEnv != "":
		return Config{}, errors.New("config: jwt.secret and jwt.secret_env are mutually exclusive")
	case fc.JWT.Secret != "":
		cfg.JWT.PrivateKey = []byte(fc.JWT.Secret)
	case fc.JWT.SecretEnv != "":
		secret, ok := os.LookupEnv(fc.JWT.SecretEnv)
		if !ok || secret == "" {
			return Config{}, fmt.Errorf("config: environment variable %s is not set", fc.JWT.SecretEnv)
		}
		cfg.JWT.PrivateKey = []byte(secret)
	}

	if fc.JWT.PrivateKeyFile != "" {
		if len(cfg.JWT.PrivateKey) > 0 {
			return Config{}, errors.New("config: jwt.private_key_file conflicts with jwt.secret")
		}
		key, err := os.ReadFile(resolvePath(baseDir, fc.JWT.PrivateKeyFile))
		if err != nil {
			return Config{}, fmt.Errorf("reading private key: %w", err)
		}
		cfg.JWT.PrivateKey = key
	}
	if fc.JWT.PublicKeyFile != "" {
		key, err := os.ReadFile(resolvePath(baseDir, fc.JWT.PublicKeyFile))
		if err != nil {
			return Config{}, fmt.Errorf("reading public key: %w", err)
		}
		cfg.JWT.PublicKey = key
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolvePath(baseDir, path string) string {
	if baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
