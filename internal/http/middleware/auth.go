package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// Auth guards the versioned API with a static bearer token. Health stays
// open so liveness checks need no credentials, and an empty configured
// token disables the check entirely.
func Auth(requiredToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiredToken == "" || !strings.HasPrefix(r.URL.Path, "/v1/") {
				next.ServeHTTP(w, r)
				return
			}
			if !tokenMatches(r.Header.Get("Authorization"), requiredToken) {
				writeUnauthorized(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// tokenMatches compares in constant time so the token cannot be recovered
// byte by byte from response timing.
func tokenMatches(authorization, requiredToken string) bool {
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authorization, bearerPrefix))
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(requiredToken)) == 1
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"unauthorized","message":"a valid bearer token is required"},"request_id":"` + GetRequestID(r.Context()) + `"}`))
}
