// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the bot identity,
// the admin chat, persistence, the shipping carrier, the reconciliation cycle,
// the auxiliary HTTP server, logging, and observability settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings for the admin API.
type CORSConfig struct {
	AllowedOrigins []string
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// CarrierConfig holds the shipping carrier API settings and the fixed
// sender contact used on every shipment document.
type CarrierConfig struct {
	APIURL  string        // CARRIER_API_URL
	APIKey  string        // CARRIER_API_KEY
	Timeout time.Duration // CARRIER_TIMEOUT per HTTP call
	RPS     float64       // CARRIER_RPS, outbound call pacing

	SenderName  string // SENDER_NAME
	SenderPhone string // SENDER_PHONE
}

// Config holds all configuration values for the application.
type Config struct {
	// Bot
	BotToken    string // BOT_TOKEN
	AdminChatID int64  // ADMIN_CHAT_ID
	CardDetails string // CARD_DETAILS shown to card-paying customers
	PollTimeout int    // POLL_TIMEOUT seconds for long polling

	// Storage / catalog
	DBPath        string        // SQLite path
	CatalogPath   string        // products JSON written by the catalog job
	CatalogReload time.Duration // how often the catalog file is re-read

	// Workflow
	ReconcileInterval time.Duration // pause between reconciliation sweeps
	DraftTTL          time.Duration // idle lifetime of drafts and admin dialogs (0 = forever)
	UpdateLogTTL      time.Duration // how long processed update IDs are remembered

	Carrier CarrierConfig

	// HTTP (liveness, metrics, admin API)
	Port          string
	GinMode       string // debug|release|test
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	AdminAPIToken string // empty disables /api/v1
	RateRPS       float64
	RateBurst     int
	CORS          CORSConfig

	// Logging / docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool
	SwaggerEnabled bool // serve the API docs at /swagger

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		BotToken:    strings.TrimSpace(getenv("BOT_TOKEN", "")),
		AdminChatID: getint64("ADMIN_CHAT_ID", 0),
		CardDetails: getenv("CARD_DETAILS", "4441111140615463"),
		PollTimeout: getint("POLL_TIMEOUT", 60),

		DBPath:        getenv("DB_PATH", "orders.db"),
		CatalogPath:   getenv("CATALOG_PATH", "data/products.json"),
		CatalogReload: getdur("CATALOG_RELOAD", 20*time.Minute),

		ReconcileInterval: getdur("RECONCILE_INTERVAL", time.Hour),
		DraftTTL:          getdur("DRAFT_TTL", 24*time.Hour),
		UpdateLogTTL:      getdur("UPDATE_LOG_TTL", 72*time.Hour),

		Carrier: CarrierConfig{
			APIURL:      getenv("CARRIER_API_URL", "https://api.novaposhta.ua/v2.0/json/"),
			APIKey:      getenv("CARRIER_API_KEY", ""),
			Timeout:     getdur("CARRIER_TIMEOUT", 15*time.Second),
			RPS:         getfloat("CARRIER_RPS", 2.0),
			SenderName:  getenv("SENDER_NAME", ""),
			SenderPhone: getenv("SENDER_PHONE", ""),
		},

		Port:          getenv("PORT", "8080"),
		GinMode:       strings.ToLower(getenv("GIN_MODE", "release")),
		ReadTimeout:   getdur("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:  getdur("WRITE_TIMEOUT", 20*time.Second),
		AdminAPIToken: getenv("ADMIN_API_TOKEN", ""),
		RateRPS:       getfloat("RATE_RPS", 5.0),
		RateBurst:     getint("RATE_BURST", 10),
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "merch-order-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if cfg.BotToken == "" {
		return cfg, errors.New("BOT_TOKEN must not be empty")
	}
	if cfg.AdminChatID == 0 {
		return cfg, errors.New("ADMIN_CHAT_ID must be a non-zero chat id")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.PollTimeout < 0 {
		return cfg, errors.New("POLL_TIMEOUT must be >= 0")
	}
	if cfg.ReconcileInterval <= 0 {
		return cfg, errors.New("RECONCILE_INTERVAL must be > 0")
	}
	if cfg.DraftTTL < 0 {
		return cfg, errors.New("DRAFT_TTL must be >= 0")
	}
	if cfg.UpdateLogTTL <= 0 {
		return cfg, errors.New("UPDATE_LOG_TTL must be > 0")
	}
	if cfg.CatalogReload <= 0 {
		return cfg, errors.New("CATALOG_RELOAD must be > 0")
	}
	if strings.TrimSpace(cfg.Carrier.APIURL) == "" {
		return cfg, errors.New("CARRIER_API_URL must not be empty")
	}
	if cfg.Carrier.Timeout <= 0 {
		return cfg, errors.New("CARRIER_TIMEOUT must be > 0")
	}
	if cfg.Carrier.RPS <= 0 {
		return cfg, errors.New("CARRIER_RPS must be > 0")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.WriteTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// lookup returns the parsed value of k, or def when k is unset, empty, or
// unparsable.
func lookup[T any](k string, def T, parse func(string) (T, error)) T {
	v, ok := os.LookupEnv(k)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	out, err := parse(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return out
}

func getenv(k, def string) string {
	return lookup(k, def, func(v string) (string, error) { return v, nil })
}

func getint(k string, def int) int { return lookup(k, def, strconv.Atoi) }

// getint64 parses chat identifiers, which exceed int32 for groups.
func getint64(k string, def int64) int64 {
	return lookup(k, def, func(v string) (int64, error) { return strconv.ParseInt(v, 10, 64) })
}

func getfloat(k string, def float64) float64 {
	return lookup(k, def, func(v string) (float64, error) { return strconv.ParseFloat(v, 64) })
}

func getdur(k string, def time.Duration) time.Duration { return lookup(k, def, time.ParseDuration) }

var errNotBool = errors.New("not a boolean")

func getbool(k string, def bool) bool {
	return lookup(k, def, func(v string) (bool, error) {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y", "on":
			return true, nil
		case "0", "false", "no", "n", "off":
			return false, nil
		}
		return false, errNotBool
	})
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
