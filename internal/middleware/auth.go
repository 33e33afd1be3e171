package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey string

const ClientKey contextKey = "client"

// APIKeyAuth validates the key from `Authorization: Bearer <key>` or the
// `apikey` header. keys maps client name to key; an empty map disables auth.
func APIKeyAuth(keys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// preflight and probes stay open
			if r.Method == http.MethodOptions || isProbe(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			key := strings.TrimSpace(r.Header.Get("apikey"))
			if auth := r.Header.Get("Authorization"); key == "" && auth != "" {
				key = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			client := ""
			for name, k := range keys {
				if subtle.ConstantTimeCompare([]byte(key), []byte(k)) == 1 {
					client = name
					break
				}
			}
			if client == "" {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), ClientKey, client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientFromContext returns the authenticated client name, or "".
func GetClientFromContext(ctx context.Context) string {
	if c, ok := ctx.Value(ClientKey).(string); ok {
		return c
	}
	return ""
}

func isProbe(path string) bool {
	switch path {
	case "/health", "/ready", "/live", "/metrics":
		return true
	}
	return false
}
