package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/inkwell/utils"
)

// ContextClientIDKey stores the opaque client identifier in Gin context.
const ContextClientIDKey = "client_id"

// ClientIdentifier derives an opaque per-client id from the visitor address so the raw IP
// never reaches handlers, storage or responses.
func ClientIdentifier(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextClientIDKey, utils.HashClientIP(secret, EffectiveClientIP(c)))
		c.Next()
	}
}

// ClientID returns the identifier set by ClientIdentifier.
func ClientID(c *gin.Context) string {
	return c.GetString(ContextClientIDKey)
}

// EffectiveClientIP extracts the real visitor IP considering common proxy headers.
// Priority: CF-Connecting-IP > X-Real-IP > first of X-Forwarded-For > gin.ClientIP
func EffectiveClientIP(c *gin.Context) string {
	if v := strings.TrimSpace(c.GetHeader("CF-Connecting-IP")); v != "" {
		if v = stripPort(v); isValidPublicIP(v) {
			return v
		}
	}
	if v := strings.TrimSpace(c.GetHeader("X-Real-IP")); v != "" {
		if v = stripPort(v); isValidPublicIP(v) {
			return v
		}
	}
	if v := strings.TrimSpace(c.GetHeader("X-Forwarded-For")); v != "" {
		first := stripPort(strings.TrimSpace(strings.Split(v, ",")[0]))
		if isValidPublicIP(first) {
			return first
		}
	}
	if ip := stripPort(c.ClientIP()); ip != "" {
		return ip
	}
	return "unknown"
}

func stripPort(ip string) string {
	if h, _, err := net.SplitHostPort(ip); err == nil {
		return h
	}
	return ip
}

func isValidPublicIP(ip string) bool {
	p := net.ParseIP(ip)
	if p == nil {
		return false
	}
	return !p.IsLoopback() && !p.IsPrivate()
}
