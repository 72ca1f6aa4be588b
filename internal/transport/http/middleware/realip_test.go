package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func resolveWithHeaders(t *testing.T, remoteAddr string, headers map[string]string) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var resolved string
	router := gin.New()
	router.GET("/", func(c *gin.Context) {
		resolved = ResolveClientIP(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	router.ServeHTTP(httptest.NewRecorder(), req)
	return resolved
}

func TestResolveClientIPHeaderPriority(t *testing.T) {
	got := resolveWithHeaders(t, "10.0.0.1:4321", map[string]string{
		"X-Forwarded-For": "203.0.113.5",
		"X-Real-IP":       "198.51.100.9",
	})
	if got != "203.0.113.5" {
		t.Fatalf("expected X-Forwarded-For to win, got %q", got)
	}
}

func TestResolveClientIPForwardedChain(t *testing.T) {
	got := resolveWithHeaders(t, "10.0.0.1:4321", map[string]string{
		"X-Forwarded-For": "203.0.113.5, 10.0.0.2, 10.0.0.3",
	})
	if got != "203.0.113.5" {
		t.Fatalf("expected first chain entry, got %q", got)
	}
}

func TestResolveClientIPSkipsUnknown(t *testing.T) {
	got := resolveWithHeaders(t, "10.0.0.1:4321", map[string]string{
		"X-Forwarded-For": "unknown",
		"X-Real-IP":       "198.51.100.9",
	})
	if got != "198.51.100.9" {
		t.Fatalf("expected unknown value skipped, got %q", got)
	}
}

func TestResolveClientIPFallsBackToRemoteAddr(t *testing.T) {
	got := resolveWithHeaders(t, "10.0.0.1:4321", nil)
	if got != "10.0.0.1" {
		t.Fatalf("expected socket peer without port, got %q", got)
	}
}
