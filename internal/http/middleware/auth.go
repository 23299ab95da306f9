package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// operatorKey is the Gin context key set once a request carried a valid
// operator token. Its value is a short, non-reversible token fingerprint.
const operatorKey = "operator"

// AdminAuth guards the operator API with a single static bearer token.
//
// The header must be "Authorization: Bearer <token>". Requests without it are
// rejected with 401 unauthorized; requests with a different token get 401 as
// well so the endpoint does not reveal whether a token exists. An empty
// configured token rejects everything.
func AdminAuth(token string) gin.HandlerFunc {
	want := sha256.Sum256([]byte(token))
	return func(c *gin.Context) {
		got := bearer(c.GetHeader("Authorization"))
		if token == "" || got == "" {
			deny(c, "access token required")
			return
		}
		sum := sha256.Sum256([]byte(got))
		if subtle.ConstantTimeCompare(sum[:], want[:]) != 1 {
			LoggerFrom(c).Warn().Str("remote_ip", c.ClientIP()).Msg("operator token rejected")
			deny(c, "invalid access token")
			return
		}
		c.Set(operatorKey, fingerprint(sum))
		c.Next()
	}
}

// Operator returns the authenticated operator fingerprint, if any.
func Operator(c *gin.Context) (string, bool) {
	v, ok := c.Get(operatorKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func bearer(h string) string {
	const prefix = "Bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func fingerprint(sum [32]byte) string { return hex.EncodeToString(sum[:6]) }

func deny(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="orderbot"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
