package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	return &buf
}

func serve(r http.Handler, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID_GeneratesPropagatesAndCaps(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/rid", func(c *gin.Context) {
		if asString(c.Value(requestIDKey)) == "" {
			t.Fatalf("request id missing from context")
		}
		c.Status(http.StatusNoContent)
	})

	if w := serve(r, http.MethodGet, "/rid", nil); w.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated %s", requestIDHeader)
	}
	w := serve(r, http.MethodGet, "/rid", map[string]string{"x-request-id": "abc-123"})
	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("propagated id = %q", got)
	}
	long := strings.Repeat("x", maxRequestIDLen+1)
	w = serve(r, http.MethodGet, "/rid", map[string]string{requestIDHeader: long})
	if got := w.Header().Get(requestIDHeader); got == long || got == "" {
		t.Fatalf("oversized id should be replaced, got %q", got)
	}
}

func TestLogger_LevelsByOutcome(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/api/v1/orders/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/err", func(c *gin.Context) {
		_ = c.Error(errSentinel{})
		c.Status(http.StatusBadRequest)
	})

	serve(r, http.MethodGet, "/api/v1/orders/7", nil)
	serve(r, http.MethodGet, "/health", nil)
	serve(r, http.MethodGet, "/missing", nil)
	serve(r, http.MethodGet, "/err", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("want 4 access logs, got %d:\n%s", len(lines), buf.String())
	}
	want := []struct{ level, path string }{
		{"info", "/api/v1/orders/:id"},
		{"debug", "/health"},
		{"warn", "/missing"},
		{"error", "/err"},
	}
	for i, w := range want {
		var m map[string]any
		if err := json.Unmarshal([]byte(lines[i]), &m); err != nil {
			t.Fatalf("line %d not json: %v", i, err)
		}
		if m["level"] != w.level || m["path"] != w.path {
			t.Fatalf("line %d = %v/%v, want %s/%s", i, m["level"], m["path"], w.level, w.path)
		}
	}
}

type errSentinel struct{}

func (errSentinel) Error() string { return "boom" }

func TestRecovery_PanicToJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Logger(), Recovery())
	r.GET("/panic", func(*gin.Context) { panic("kaboom") })
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("late kaboom")
	})

	w := serve(r, http.MethodGet, "/panic", map[string]string{requestIDHeader: "rid-1"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["code"] != "internal_error" || body["request_id"] != "rid-1" {
		t.Fatalf("unexpected body: %v", body)
	}

	w = serve(r, http.MethodGet, "/late", nil)
	if strings.Contains(w.Body.String(), "internal_error") {
		t.Fatalf("no JSON error body expected after write, got %q", w.Body.String())
	}
	if strings.Count(buf.String(), "panic recovered") != 2 {
		t.Fatalf("expected two panic logs:\n%s", buf.String())
	}
}

func TestLoggerFrom_FallbackAndScoped(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	bare := gin.New()
	bare.GET("/use", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("bare")
		c.Status(http.StatusOK)
	})
	serve(bare, http.MethodGet, "/use", nil)
	if strings.Contains(buf.String(), `"request_id"`) {
		t.Fatalf("fallback logger should carry no request fields: %s", buf.String())
	}

	buf.Reset()
	scoped := gin.New()
	scoped.Use(RequestID(), Logger())
	scoped.GET("/use", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("scoped")
		c.Status(http.StatusOK)
	})
	serve(scoped, http.MethodGet, "/use", map[string]string{requestIDHeader: "rid-2"})
	if !strings.Contains(buf.String(), `"request_id":"rid-2","method":"GET"`) {
		t.Fatalf("scoped logger should carry request fields: %s", buf.String())
	}
}

func TestHelpers(t *testing.T) {
	if asString("x") != "x" || asString(3) != "" {
		t.Fatalf("asString")
	}
	if truncate("abcdefgh", 5) != "abcde…" || truncate("abc", 0) != "abc" {
		t.Fatalf("truncate")
	}
	if !quietPath("/metrics") || quietPath("/api/v1/orders") {
		t.Fatalf("quietPath")
	}
}
