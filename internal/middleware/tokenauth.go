package middleware

import (
	"crypto/subtle"
	"net/http"
)

// TokenAuth is a middleware that enforces a shared-secret header on the
// control API.
//
// It checks whether the incoming HTTP request carries the expected token in
// the X-Api-Token header. The /api/health endpoint is excluded so probes can
// run unauthenticated. An empty expected token disables the check entirely,
// for deployments where the API is bound to localhost only.
func TokenAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" || r.URL.Path == "/api/health" {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get("X-Api-Token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "invalid api token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
