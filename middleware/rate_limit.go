package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/KidRide/kidride-backend/errors"
	"github.com/KidRide/kidride-backend/logger"
	"github.com/gin-gonic/gin"
)

// LimitChecker counts one hit against key and reports whether it is allowed.
type LimitChecker interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

// PaymentRateLimiter throttles payment attempts per authenticated user, or
// per client IP when there is none. A limiter error lets the request through.
func PaymentRateLimiter(limiter LimitChecker, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := c.GetString(string(UserIDKey))
		if identifier == "" {
			identifier = "ip:" + getClientIP(c)
		}
		key := fmt.Sprintf("payments:%s", identifier)

		allowed, retryAfter, err := limiter.CheckLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.GetLogger().Warnw("Rate limit check failed, allowing request", "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if !allowed {
			secs := int(retryAfter.Seconds())
			if secs <= 0 {
				secs = int(window.Seconds())
			}
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(secs))
			_ = c.Error(apperrors.RateLimitExceeded("Too many payment attempts. Please try again later.", secs))
			c.Abort()
			return
		}
		c.Next()
	}
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func getClientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if realIP := c.GetHeader("X-Real-IP"); realIP != "" {
		return realIP
	}
	return c.ClientIP()
}
