// Package httpapi wires the bot's auxiliary HTTP server: liveness, Prometheus
// scraping, and the read-only operator API over orders. Chat traffic never
// passes through here; the bot talks to the messaging platform by long
// polling.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/merch-order-bot/internal/config"
	_ "github.com/tbourn/merch-order-bot/internal/http/docs"
	"github.com/tbourn/merch-order-bot/internal/http/handlers"
	"github.com/tbourn/merch-order-bot/internal/http/middleware"
)

// maxBodyBytes caps request bodies. The API is read-only, so anything larger
// is noise.
const maxBodyBytes = 64 << 10

// RegisterRoutes installs middleware and routes on r.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. RedactingLogger (order rows carry phone numbers)
//  4. Recovery
//  5. body limit
//  6. Metrics
//  7. CORS, security headers
//
// /swagger is mounted when cfg.SwaggerEnabled and skips the security headers.
// /api/v1 is mounted only when cfg.AdminAPIToken is set and sits behind
// AdminAuth, the rate limiter (keyed after auth), and gzip.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, orders handlers.OrderService, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	r.Use(middleware.Metrics())
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))

	// Registered before the security headers: the UI needs scripts and
	// styles that the API's CSP forbids.
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{NoStore: true}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", health(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.AdminAPIToken == "" {
		return
	}

	h := handlers.New(orders, db)
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByOperatorOrIP())
	api := r.Group("/api/v1",
		middleware.AdminAuth(cfg.AdminAPIToken),
		rl.Handler(),
		gzip.Gzip(gzip.DefaultCompression),
	)
	{
		api.GET("/orders", h.ListOrders)
		api.GET("/orders/:id", h.GetOrder)
		api.GET("/stats", h.Stats)
	}
}

// health reports 200 when the database answers a ping, 503 otherwise.
func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(c.Request.Context())
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// corsMiddleware allows any origin without credentials when origins is
// empty, otherwise only the listed ones.
func corsMiddleware(origins []string) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Accept", "Authorization", "If-None-Match"},
		ExposeHeaders: []string{"X-Request-ID", "ETag", "Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return cors.New(c)
}

// limitBody wraps the request body with http.MaxBytesReader.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
