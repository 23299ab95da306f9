package httpapi

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/merch-order-bot/internal/config"
	"github.com/tbourn/merch-order-bot/internal/domain"
	"github.com/tbourn/merch-order-bot/internal/repo"
	"github.com/tbourn/merch-order-bot/internal/services"
)

const token = "op-secret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newServer(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	if cfg.RateRPS == 0 {
		cfg.RateRPS, cfg.RateBurst = 100, 10
	}
	cfg.OTEL.ServiceName = "orderbot-test"
	r := gin.New()
	RegisterRoutes(r, db, &services.OrderService{DB: db}, cfg)
	return r, db
}

func do(r http.Handler, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRoutes_HealthMetricsFallbacks(t *testing.T) {
	r, _ := newServer(t, config.Config{})

	w := do(r, http.MethodGet, "/health", map[string]string{"Origin": "https://dash.example"})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("GET /health = %d %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-all CORS expected '*', got %q", got)
	}
	if w.Header().Get("Cache-Control") != "no-store" || w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("security headers missing: %v", w.Header())
	}

	w = do(r, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "orderbot_http_requests_total") {
		t.Fatalf("GET /metrics = %d", w.Code)
	}

	if w := do(r, http.MethodGet, "/nope", nil); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/health", nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health = %d", w.Code)
	}
}

func TestRoutes_APIDisabledWithoutToken(t *testing.T) {
	r, _ := newServer(t, config.Config{})
	w := do(r, http.MethodGet, "/api/v1/orders", map[string]string{"Authorization": "Bearer anything"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("API should not be mounted, got %d", w.Code)
	}
}

func TestRoutes_APIRequiresBearer(t *testing.T) {
	r, _ := newServer(t, config.Config{AdminAPIToken: token})

	for _, hdr := range []map[string]string{
		nil,
		{"Authorization": "Bearer wrong"},
		{"Authorization": "Basic " + token},
	} {
		w := do(r, http.MethodGet, "/api/v1/orders", hdr)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%v: status = %d", hdr, w.Code)
		}
		if w.Header().Get("WWW-Authenticate") == "" {
			t.Fatalf("challenge header missing")
		}
	}
}

func TestRoutes_OrdersGzipAndDetails(t *testing.T) {
	r, db := newServer(t, config.Config{AdminAPIToken: token})
	o := &domain.Order{
		UserID: 7, ProductRef: "hd1", Size: "XL", PaymentMethod: domain.PaymentCard,
		Status: domain.StatusAwaitingPayment, Price: 1500,
		Shipping: domain.ShippingInfo{City: "Львів", Branch: "3", Name: "Ігор", Phone: "0671234567"},
	}
	if err := repo.CreateOrder(context.Background(), db, o); err != nil {
		t.Fatalf("seed: %v", err)
	}
	auth := map[string]string{"Authorization": "Bearer " + token, "Accept-Encoding": "gzip"}

	w := do(r, http.MethodGet, "/api/v1/orders?status=awaiting_payment", auth)
	if w.Code != http.StatusOK || w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("list = %d encoding=%q", w.Code, w.Header().Get("Content-Encoding"))
	}
	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	raw, _ := io.ReadAll(zr)
	var list struct {
		Orders []struct {
			ID       uint   `json:"id"`
			Category string `json:"category"`
		} `json:"orders"`
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		t.Fatalf("json: %v (%s)", err, raw)
	}
	if len(list.Orders) != 1 || list.Orders[0].ID != o.ID || list.Orders[0].Category != string(domain.CategoryHoodie) {
		t.Fatalf("unexpected list: %+v", list)
	}

	delete(auth, "Accept-Encoding")
	w = do(r, http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", o.ID), auth)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status_label":"Очікується підтвердження оплати"`) {
		t.Fatalf("details = %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/api/v1/stats", auth)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"awaiting_payment":1`) {
		t.Fatalf("stats = %d %s", w.Code, w.Body.String())
	}
}

func TestRoutes_RateLimitAfterAuth(t *testing.T) {
	r, _ := newServer(t, config.Config{AdminAPIToken: token, RateRPS: 0.001, RateBurst: 1})
	auth := map[string]string{"Authorization": "Bearer " + token}

	if w := do(r, http.MethodGet, "/api/v1/stats", auth); w.Code != http.StatusOK {
		t.Fatalf("first = %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/v1/stats", auth); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second = %d", w.Code)
	}
	// Unauthenticated requests are rejected before they can drain the bucket.
	if w := do(r, http.MethodGet, "/api/v1/stats", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous = %d", w.Code)
	}
}

func TestRoutes_CORSAllowList(t *testing.T) {
	r, _ := newServer(t, config.Config{CORS: config.CORSConfig{AllowedOrigins: []string{"https://dash.example"}}})

	w := do(r, http.MethodGet, "/health", map[string]string{"Origin": "https://dash.example"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example" {
		t.Fatalf("ACAO = %q", got)
	}
	w = do(r, http.MethodGet, "/health", map[string]string{"Origin": "https://evil.example"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("disallowed origin = %d", w.Code)
	}
}

func TestHealth_DegradedWhenDBClosed(t *testing.T) {
	r, db := newServer(t, config.Config{})
	sqlDB, _ := db.DB()
	_ = sqlDB.Close()

	if w := do(r, http.MethodGet, "/health", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("health = %d", w.Code)
	}
}

func TestRoutes_SwaggerToggle(t *testing.T) {
	r, _ := newServer(t, config.Config{})
	if w := do(r, http.MethodGet, "/swagger/doc.json", nil); w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be off by default, got %d", w.Code)
	}

	r, _ = newServer(t, config.Config{SwaggerEnabled: true})
	w := do(r, http.MethodGet, "/swagger/doc.json", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /swagger/doc.json = %d", w.Code)
	}
	var doc struct {
		BasePath string                    `json:"basePath"`
		Paths    map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json: %v", err)
	}
	if doc.BasePath != "/api/v1" || doc.Paths["/orders/{id}"] == nil {
		t.Fatalf("unexpected doc: %+v", doc)
	}
	if w.Header().Get("Content-Security-Policy") != "" {
		t.Fatalf("swagger must not carry the API CSP")
	}
}
