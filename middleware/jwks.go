package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// JWKSSource publishes verification keys. *jwtpair.Authenticator[ID]
// satisfies it.
type JWKSSource interface {
	PublicJWKS() (jwk.Set, error)
}

// JWKSHandler serves the public key set. Authenticators signing with a
// shared secret answer 404.
func JWKSHandler(source JWKSSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		set, err := source.PublicJWKS()
		if err != nil {
			http.NotFound(w, r)
			return
		}
		body, err := json.Marshal(set)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/jwk-set+json")
		w.Header().Set("Cache-Control", "public, max-age=300")
		_, _ = w.Write(body)
	})
}
