package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders -> state dashboard selalu live, jangan di-cache.
// Referrer dimatikan karena path berisi table id.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

		if c.Request.Method == "GET" && !strings.HasPrefix(c.Request.URL.Path, "/ws/") {
			c.Header("Cache-Control", "no-store")
		}

		c.Next()
	}
}
