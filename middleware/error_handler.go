package middleware

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/KidRide/kidride-backend/errors"
	"github.com/KidRide/kidride-backend/logger"
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ErrorHandler renders the last error attached with c.Error as JSON.
// AppErrors keep their own status; anything else is a 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		last := c.Errors.Last()
		err := last.Err

		var appError *errors.AppError
		if stderrors.As(err, &appError) {
			status := appError.GetHTTPStatus()
			logger.LogHTTPError(c, err, status, string(appError.Type))

			response := ErrorResponse{
				Type:    string(appError.Type),
				Message: appError.Message,
				Code:    strconv.Itoa(status),
			}
			if appError.Detail != "" && showDetail(appError.Type) {
				response.Details = appError.Detail
			}
			c.JSON(status, response)
			return
		}

		if last.Type == gin.ErrorTypeBind {
			logger.LogHTTPError(c, err, http.StatusBadRequest, "Request binding error")
			response := ErrorResponse{
				Type:    string(errors.ValidationError),
				Message: "Failed to bind request",
				Code:    "400",
			}
			if gin.IsDebugging() {
				response.Details = err.Error()
			}
			c.JSON(http.StatusBadRequest, response)
			return
		}

		logger.LogHTTPError(c, err, http.StatusInternalServerError, "Unexpected server error")
		response := ErrorResponse{
			Type:    string(errors.ServerError),
			Message: "Internal Server Error",
			Code:    "500",
		}
		if gin.IsDebugging() {
			response.Details = err.Error()
		}
		c.JSON(http.StatusInternalServerError, response)
	}
}

// showDetail reports whether the detail is safe to return to the caller.
// Ledger rejections carry the amounts a client needs to correct a payment.
func showDetail(t errors.ErrorType) bool {
	if gin.IsDebugging() {
		return true
	}
	switch t {
	case errors.ValidationError,
		errors.NotFoundError,
		errors.TransactionNotFoundError,
		errors.InsufficientAmountError,
		errors.ExceedsRemainingError,
		errors.AlreadySuspendedError,
		errors.InvalidStatusTransitionError,
		errors.ConflictError,
		errors.RateLimitError:
		return true
	}
	return false
}
