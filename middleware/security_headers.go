package middleware

import (
	"github.com/KidRide/kidride-backend/config"
	"github.com/gin-gonic/gin"
)

// SecurityHeadersMiddleware sets response headers for a JSON API that
// returns payment and wallet data. Responses are never cached.
func SecurityHeadersMiddleware(cfg *config.Config) gin.HandlerFunc {
	production := cfg.IsProduction()
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		if production {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
