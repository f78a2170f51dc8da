package jwtpair

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/jwtpair/jwt"
)

// LintSeverity ranks a lint warning.
type LintSeverity int

const (
	// LintInfo is informational.
	LintInfo LintSeverity = iota
	// LintWarn flags a setting worth reviewing before production.
	LintWarn
	// LintHigh flags a setting that weakens replay protection or key safety.
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one non-fatal configuration finding.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list of findings returned by Config.Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins the warnings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	filtered := r.BySeverity(min)
	if len(filtered) == 0 {
		return nil
	}
	parts := make([]string, 0, len(filtered))
	for _, w := range filtered {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return errors.New("config lint: " + strings.Join(parts, "; "))
}

const (
	lintLongAccessLifetime  = time.Hour
	lintLongRenewalLifetime = 30 * 24 * time.Hour
	lintLargeLeeway         = time.Minute
	lintMinHMACSecret       = 32
)

// Lint reports settings that are valid but questionable. It never fails;
// use AsError to turn findings into a startup error.
func (c Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if c.JWT.RenewalLifetime > 0 && c.JWT.RenewalLifetime < c.JWT.AccessLifetime {
		add("renewal_shorter_than_access", LintHigh,
			"renewal lifetime %s is shorter than access lifetime %s; rotation cannot outlive the access token",
			c.JWT.RenewalLifetime, c.JWT.AccessLifetime)
	}
	if c.JWT.AccessLifetime > lintLongAccessLifetime {
		add("access_lifetime_long", LintWarn,
			"access lifetime %s exceeds %s; access tokens cannot be revoked", c.JWT.AccessLifetime, lintLongAccessLifetime)
	}
	if c.JWT.RenewalLifetime > lintLongRenewalLifetime {
		add("renewal_lifetime_long", LintWarn,
			"renewal lifetime %s exceeds %s", c.JWT.RenewalLifetime, lintLongRenewalLifetime)
	}
	if c.JWT.Leeway > lintLargeLeeway {
		add("leeway_large", LintWarn, "leeway %s exceeds %s", c.JWT.Leeway, lintLargeLeeway)
	}

	method := jwt.SigningMethod(c.JWT.SigningMethod)
	if method.IsHMAC() {
		add("signing_hmac", LintInfo,
			"%s shares one secret between issuers and verifiers; ed25519 allows verify-only services", method)
		if len(c.JWT.PrivateKey) > 0 && len(c.JWT.PrivateKey) < lintMinHMACSecret {
			add("hmac_secret_short", LintHigh,
				"%s secret is %d bytes; use at least %d", method, len(c.JWT.PrivateKey), lintMinHMACSecret)
		}
	}
	if !method.IsHMAC() && c.JWT.KeyID == "" {
		add("key_id_missing", LintInfo, "no key id is set; published JWKS entries will be unnamed")
	}

	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "audit events for reuse detection are not emitted")
	} else if c.Audit.DropIfFull {
		add("audit_drop_if_full", LintInfo, "audit events are dropped when the buffer is full")
	}

	return ws
}
