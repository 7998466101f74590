package api

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyAuth rejects requests whose X-API-Key (or Authorization: Bearer)
// header doesn't match apiKey, using a constant-time comparison. Adapted
// from the teacher's internal/api/middleware.go verbatim.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-API-Key")
			if provided == "" {
				auth := r.Header.Get("Authorization")
				const prefix = "Bearer "
				if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
					provided = auth[len(prefix):]
				}
			}
			if provided == "" {
				respondError(w, http.StatusUnauthorized, "missing API key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				respondError(w, http.StatusForbidden, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
