package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions extends the built-in header mask (Authorization, Cookie,
// Set-Cookie) with project-specific header names. Matching ignores case.
type RedactOptions struct {
	MaskHeaders []string
}

var (
	// Ukrainian mobile numbers in the shapes customers type them:
	// +380 93 123 45 67, 380931234567, 093-123-45-67, (093) 123 4567.
	phoneRE = regexp.MustCompile(`(?:\+?38[ .-]?)?\(?0[ .-]?\d{2}\)?[ .-]*\d{3}[ .-]*\d{2}[ .-]*\d{2}`)
	// Carrier waybill numbers: 14 digits starting with 20 or 59.
	trackingRE = regexp.MustCompile(`\b(?:20|59)\d{12}\b`)
	emailRE    = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
)

// redact scrubs phone numbers, waybill numbers, and emails from s. Waybills
// go first so the phone pattern cannot eat their trailing digits.
func redact(s string) string {
	if s == "" {
		return s
	}
	s = trackingRE.ReplaceAllString(s, "[REDACTED:ttn]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// RedactingLogger is an access logger for endpoints that may see customer
// data in query strings or headers. It never logs bodies; query and header
// values pass through redact, and masked headers are replaced outright.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := routePath(c)
		query := redact(truncate(c.Request.URL.RawQuery, maxQueryLogLength))

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := masked[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = redact(strings.Join(vv, ", "))
		}

		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		case quietPath(path):
			ev = log.Debug()
		}

		ev.
			Str("request_id", c.Writer.Header().Get(requestIDHeader)).
			Str("operator", asString(c.Value(operatorKey))).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
