package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	jwtpair "github.com/MrEthical07/jwtpair"
	"github.com/MrEthical07/jwtpair/jwt"
)

// Decoder verifies a token and returns its claims.
// *jwtpair.Authenticator[ID] satisfies it.
type Decoder[ID comparable] interface {
	Decode(token string) (*jwt.Claims[ID], error)
}

type claimsContextKey struct{}

// ClaimsFromContext returns the claims RequireAccess stored for the request.
func ClaimsFromContext[ID comparable](ctx context.Context) (*jwt.Claims[ID], bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims[ID])
	return claims, ok
}

// RequireAccess admits requests carrying a valid access token in the
// Authorization header and stores its claims in the request context.
// Renewal tokens are rejected: they only ever go to the refresh endpoint.
//
// Verification is stateless; the tracking store is not consulted.
func RequireAccess[ID comparable](decoder Decoder[ID]) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if decoder == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := decoder.Decode(token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", challenge(err))
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if claims.TokenType != jwt.TokenAccess {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func challenge(err error) string {
	if errors.Is(err, jwtpair.ErrExpired) {
		return `Bearer error="invalid_token", error_description="token expired"`
	}
	return `Bearer error="invalid_token"`
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
