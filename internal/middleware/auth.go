package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health":                 true,
	"/health/ready":           true,
	"/.well-known/agent.json": true,
}

// publicPrefixes are exempt from API key checks because they carry their
// own signature or token verification.
var publicPrefixes = []string{"/api/v1/webhooks/"}

// WebSocketPath accepts the key as a ?token= query parameter, since
// browsers cannot set headers on a WebSocket handshake.
const WebSocketPath = "/ws"

func isPublic(path string) bool {
	if publicPaths[path] {
		return true
	}
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// APIKey returns middleware that requires the given key in either the
// X-API-Key header or an "Authorization: Bearer" header. An empty key
// disables authentication.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" || isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get("X-API-Key")
			if got == "" && r.URL.Path == WebSocketPath {
				got = r.URL.Query().Get("token")
			}
			if got == "" {
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					writeAuthError(w, http.StatusUnauthorized, "authorization required")
					return
				}
				got = strings.TrimPrefix(authHeader, "Bearer ")
				if got == authHeader {
					writeAuthError(w, http.StatusUnauthorized, "invalid authorization header")
					return
				}
			}

			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeAuthError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
