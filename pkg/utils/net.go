package utils

import (
	"net/http"
	"strings"
)

// ExtractClientIP determines the client address for rate limiting.
// X-Forwarded-For wins (first entry is the original client), then
// X-Real-IP, then RemoteAddr with the port stripped. Deployments sit
// behind a reverse proxy, so RemoteAddr alone would rate-limit the
// proxy instead of the caller.
func ExtractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		xff = strings.TrimSpace(xff)
		// "client, proxy1, proxy2"
		if idx := strings.IndexAny(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	remoteAddr := r.RemoteAddr

	// "[::1]:8080"
	if strings.HasPrefix(remoteAddr, "[") {
		if idx := strings.LastIndex(remoteAddr, "]"); idx != -1 {
			return remoteAddr[1:idx]
		}
	}
	// "127.0.0.1:8080"
	if idx := strings.LastIndex(remoteAddr, ":"); idx != -1 {
		return remoteAddr[:idx]
	}

	return remoteAddr
}
