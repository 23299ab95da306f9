package middleware

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedact(t *testing.T) {
	cases := map[string]string{
		"phone=+380931234567":     "phone=[REDACTED:phone]",
		"phone=093-123-45-67":     "phone=[REDACTED:phone]",
		"q=(093) 123 45 67":       "q=[REDACTED:phone]",
		"to=+380 93 123 45 67":    "to=[REDACTED:phone]",
		"ttn=20450000000001":      "ttn=[REDACTED:ttn]",
		"email=olena@example.com": "email=[REDACTED:email]",
		"status=shipped&page=2":   "status=shipped&page=2",
		"":                        "",
	}
	for in, want := range cases {
		if got := redact(in); got != want {
			t.Errorf("redact(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRedactingLogger_ScrubsQueryAndHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{MaskHeaders: []string{" X-Api-Key "}}))
	r.GET("/api/v1/orders", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	serve(r, http.MethodGet, "/api/v1/orders?phone=%2B380931234567&ttn=59000000000042", map[string]string{
		"Authorization": "Bearer s3cret",
		"X-Api-Key":     "k",
		"X-Customer":    "+380 93 123 45 67",
	})
	out := buf.String()
	for _, leak := range []string{"s3cret", "59000000000042", "123 45 67", `"X-Api-Key":"k"`} {
		if strings.Contains(out, leak) {
			t.Fatalf("log leaked %q:\n%s", leak, out)
		}
	}
	if !strings.Contains(out, `"level":"info"`) || !strings.Contains(out, "[REDACTED:ttn]") {
		t.Fatalf("unexpected log:\n%s", out)
	}

	buf.Reset()
	serve(r, http.MethodGet, "/boom", nil)
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("5xx should log at error:\n%s", buf.String())
	}
}
