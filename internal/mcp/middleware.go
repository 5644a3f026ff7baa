package mcp

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyMiddleware rejects requests that do not carry apiKey in the
// X-API-Key header or as a bearer token.
func APIKeyMiddleware(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided := r.Header.Get("X-API-Key")
		if provided == "" {
			provided, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		}

		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
