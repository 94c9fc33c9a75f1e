package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shopneo/console/internal/transport"
)

const (
	ContextRequestID = "request_id"
	ContextIPAddress = "ip_address"
	ContextUserAgent = "user_agent"
)

// RequestContext tags every request with an id (reusing the caller's
// X-Request-ID when present) and records who made it.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(transport.HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(ContextRequestID, rid)
		c.Writer.Header().Set(transport.HeaderRequestID, rid)

		// Check X-Forwarded-For first, for proxies
		ipAddress := c.GetHeader("X-Forwarded-For")
		if ipAddress == "" {
			ipAddress = c.GetHeader("X-Real-IP")
		}
		if ipAddress == "" {
			ipAddress = c.ClientIP()
		}
		if idx := strings.Index(ipAddress, ","); idx != -1 {
			ipAddress = strings.TrimSpace(ipAddress[:idx])
		}

		c.Set(ContextIPAddress, ipAddress)
		c.Set(ContextUserAgent, c.GetHeader("User-Agent"))

		c.Next()
	}
}

func GetRequestID(c *gin.Context) string {
	return getString(c, ContextRequestID)
}

func GetIPAddress(c *gin.Context) string {
	return getString(c, ContextIPAddress)
}

func GetUserAgent(c *gin.Context) string {
	return getString(c, ContextUserAgent)
}

func getString(c *gin.Context, key string) string {
	val, exists := c.Get(key)
	if !exists {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
