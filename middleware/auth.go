package middleware

import (
	"errors"
	"strings"

	apperrors "github.com/KidRide/kidride-backend/errors"
	"github.com/KidRide/kidride-backend/logger"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the Bearer token and stores the user id and role
// on the context.
func AuthMiddleware(validator Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.GetLogger()

		authHeader := c.GetHeader("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || token == authHeader || token == "" {
			_ = c.Error(apperrors.Unauthorized("missing_token", "Authorization header with Bearer token is required"))
			c.Abort()
			return
		}

		claims, err := validator.Validate(token)
		if err != nil {
			log.Debugw("Token validation failed", "path", c.Request.URL.Path, "error", err)
			if errors.Is(err, ErrTokenExpired) {
				_ = c.Error(apperrors.Unauthorized("token_expired", "Your session has expired"))
			} else {
				_ = c.Error(apperrors.Unauthorized("invalid_token", "Invalid or malformed token"))
			}
			c.Abort()
			return
		}

		c.Set(string(UserIDKey), claims.Subject)
		c.Set(string(UserRoleKey), claims.Role)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the caller has one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role := CurrentUser(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		_ = c.Error(apperrors.Forbidden("Insufficient permissions", "requires role "+strings.Join(roles, " or ")))
		c.Abort()
	}
}
