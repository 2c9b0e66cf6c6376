package handlers

import (
	"strconv"

	apperrors "github.com/KidRide/kidride-backend/errors"
	"github.com/KidRide/kidride-backend/middleware"
	"github.com/gin-gonic/gin"
)

// PaginationParams is the limit/offset pair read from the query string.
type PaginationParams struct {
	Limit  int
	Offset int
}

// getUserIDFromContext extracts the authenticated user ID from the Gin context.
// Returns empty string if not found (caller should handle unauthorized response).
func getUserIDFromContext(c *gin.Context) string {
	return c.GetString(string(middleware.UserIDKey))
}

// bindJSONOrError binds JSON request body and sets validation error if binding fails.
// Returns true if binding succeeded, false if error was set (caller should return).
func bindJSONOrError(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid_request_payload", err.Error()))
		return false
	}
	return true
}

// getPaginationParams extracts and validates pagination parameters from the request
func getPaginationParams(c *gin.Context, defaultLimit, defaultOffset int) PaginationParams {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", strconv.Itoa(defaultOffset)))
	if err != nil || offset < 0 {
		offset = defaultOffset
	}

	return PaginationParams{
		Limit:  limit,
		Offset: offset,
	}
}

// requireUser sets an unauthorized error and returns false when the request
// carries no authenticated user.
func requireUser(c *gin.Context) (string, bool) {
	userID := getUserIDFromContext(c)
	if userID == "" {
		_ = c.Error(apperrors.Unauthorized("not_authenticated", "user not authenticated"))
		return "", false
	}
	return userID, true
}

// allowOwnerOrAdmin passes admins and any caller whose id is one of owners.
func allowOwnerOrAdmin(c *gin.Context, owners ...string) bool {
	if middleware.IsAdmin(c) {
		return true
	}
	userID := getUserIDFromContext(c)
	for _, o := range owners {
		if o != "" && o == userID {
			return true
		}
	}
	_ = c.Error(apperrors.Forbidden("Access denied", "caller is not a party to this resource"))
	return false
}
