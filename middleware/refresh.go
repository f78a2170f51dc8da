package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	jwtpair "github.com/MrEthical07/jwtpair"
)

// Refresher rotates a renewal token. *jwtpair.Authenticator[ID] satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, renewalToken string) (jwtpair.TokenPair, error)
}

type refreshRequest struct {
	RenewalToken string `json:"renewal_token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const maxRefreshBody = 16 << 10

// RefreshHandler serves POST requests whose JSON body carries a
// renewal_token and answers with the rotated pair.
//
// Status codes: 400 for a bad body, 401 for tokens that fail verification,
// are unknown or were already used, and 503 when the tracking store fails.
// A token consumed by a rotation that then failed to issue is also 401.
// Reuse and unknown identifiers share one response so callers cannot tell
// which identifiers exist.
func RefreshHandler(refresher Refresher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method_not_allowed"})
			return
		}

		var req refreshRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRefreshBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil || req.RenewalToken == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request"})
			return
		}

		pair, err := refresher.Refresh(r.Context(), req.RenewalToken)
		if err != nil {
			status, code := refreshErrorResponse(err)
			writeJSON(w, status, errorResponse{Error: code})
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, pair)
	})
}

func refreshErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, jwtpair.ErrRenewalConsumed):
		// The client must authenticate again; retrying the grant cannot work.
		return http.StatusUnauthorized, "invalid_grant"
	case errors.Is(err, jwtpair.ErrStore):
		return http.StatusServiceUnavailable, "temporarily_unavailable"
	case errors.Is(err, jwtpair.ErrAuthenticatorNotReady),
		errors.Is(err, jwtpair.ErrSigning):
		return http.StatusInternalServerError, "server_error"
	default:
		return http.StatusUnauthorized, "invalid_grant"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
