package middleware

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), SecurityHeaders(SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour, NoStore: true}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/x", nil)
	h := w.Header()
	if h.Get("X-Content-Type-Options") != "nosniff" || h.Get("X-Frame-Options") != "DENY" {
		t.Fatalf("baseline headers missing: %v", h)
	}
	if h.Get("Cache-Control") != "no-store" {
		t.Fatalf("no-store missing")
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS must not be sent over plain HTTP")
	}
	if h.Get("Access-Control-Expose-Headers") != requestIDHeader {
		t.Fatalf("expose headers = %q", h.Get("Access-Control-Expose-Headers"))
	}

	w = serve(r, http.MethodGet, "/x", map[string]string{"X-Forwarded-Proto": "https"})
	if got := w.Header().Get("Strict-Transport-Security"); got != "max-age=3600; includeSubDomains" {
		t.Fatalf("HSTS = %q", got)
	}
}

func TestSecurityHeaders_DefaultsAndExposeOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Expose-Headers", "Content-Length")
		c.Header(requestIDHeader, "rid")
		c.Next()
	})
	r.Use(SecurityHeaders(SecurityOptions{EnableHSTS: true}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/x", map[string]string{"X-Forwarded-Proto": "HTTPS"})
	if got := w.Header().Get("Access-Control-Expose-Headers"); got != "Content-Length, X-Request-ID" {
		t.Fatalf("expose headers = %q", got)
	}
	if !strings.HasPrefix(w.Header().Get("Strict-Transport-Security"), "max-age=15552000") {
		t.Fatalf("default HSTS max-age not applied: %q", w.Header().Get("Strict-Transport-Security"))
	}
	if w.Header().Get("Cache-Control") != "" {
		t.Fatalf("no-store should be opt-in")
	}
}
