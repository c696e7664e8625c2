package mw

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// BearerAuth returns a Chi middleware that requires the configured static
// token on every request, checking the Authorization: Bearer header first
// and falling back to the X-API-Key header. An empty token disables auth.
func BearerAuth(logger *slog.Logger, token string) func(http.Handler) http.Handler {
	if token == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if strings.HasPrefix(key, bearerPrefix) {
				key = key[len(bearerPrefix):]
			} else {
				key = r.Header.Get("X-API-Key")
			}

			if key == "" {
				logger.Warn("API token missing",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, "Unauthorized: API token required", http.StatusUnauthorized)
				return
			}

			if subtle.ConstantTimeCompare([]byte(key), []byte(token)) != 1 {
				logger.Warn("Invalid API token used",
					"key_prefix", keyPrefix(key),
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, "Unauthorized: invalid API token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// keyPrefix returns the first 4 characters of a key for safe logging.
func keyPrefix(key string) string {
	if len(key) >= 4 {
		return key[:4]
	}
	return key
}
