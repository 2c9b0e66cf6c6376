package middleware

import "github.com/gin-gonic/gin"

// contextKey defines a type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID (string).
	UserIDKey contextKey = "userID"
	// UserRoleKey is the context key for the authenticated user's role (string).
	UserRoleKey contextKey = "userRole"
)

// CurrentUser returns the id and role set by AuthMiddleware.
func CurrentUser(c *gin.Context) (userID, role string) {
	return c.GetString(string(UserIDKey)), c.GetString(string(UserRoleKey))
}

// IsAdmin reports whether the request was made with an admin token.
func IsAdmin(c *gin.Context) bool {
	return c.GetString(string(UserRoleKey)) == RoleAdmin
}
