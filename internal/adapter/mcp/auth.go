package mcp

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// AuthMiddleware guards the MCP endpoint with a static key sent as
// "Authorization: Bearer <key>", a bare Authorization value, or X-API-Key.
// An empty apiKey disables the check. Rejections carry a JSON-RPC error
// body so MCP clients surface the reason.
func AuthMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	want := []byte(apiKey)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-API-Key")
		if got == "" {
			got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		switch {
		case got == "":
			rejectRPC(w, http.StatusUnauthorized, "missing API key")
		case subtle.ConstantTimeCompare([]byte(got), want) != 1:
			rejectRPC(w, http.StatusForbidden, "invalid API key")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func rejectRPC(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      nil,
		"error":   map[string]any{"code": -32001, "message": msg},
	})
}
