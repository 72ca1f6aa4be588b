package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// Forwarding headers consulted in order. The first one carrying a usable
// value wins; X-Forwarded-For may hold a chain, in which case the first
// entry is the originating client.
var forwardedHeaders = []string{
	"X-Forwarded-For",
	"Proxy-Client-IP",
	"WL-Proxy-Client-IP",
	"HTTP_X_FORWARDED_FOR",
	"HTTP_CLIENT_IP",
	"X-Real-IP",
}

// ResolveClientIP extracts the originating client address for a request,
// falling back to the socket peer when no proxy header is usable. Some
// proxies write the literal "unknown" instead of omitting the header; those
// values are skipped.
func ResolveClientIP(c *gin.Context) string {
	for _, header := range forwardedHeaders {
		value := strings.TrimSpace(c.GetHeader(header))
		if value == "" || strings.EqualFold(value, "unknown") {
			continue
		}

		if idx := strings.Index(value, ","); idx >= 0 {
			value = strings.TrimSpace(value[:idx])
		}
		if value == "" || strings.EqualFold(value, "unknown") {
			continue
		}

		return value
	}

	remote := c.Request.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		return host
	}
	return remote
}
