package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/KidRide/kidride-backend/logger"
)

type ErrorType string

const (
	ValidationError              ErrorType = "VALIDATION_ERROR"
	NotFoundError                ErrorType = "NOT_FOUND"
	AuthError                    ErrorType = "AUTHENTICATION_ERROR"
	DatabaseError                ErrorType = "DATABASE_ERROR"
	ServerError                  ErrorType = "SERVER_ERROR"
	ForbiddenError               ErrorType = "FORBIDDEN"
	ConflictError                ErrorType = "CONFLICT"
	RateLimitError               ErrorType = "RATE_LIMIT_EXCEEDED"
	InvalidStatusTransitionError ErrorType = "INVALID_STATUS_TRANSITION"

	// Payment ledger
	InsufficientAmountError    ErrorType = "INSUFFICIENT_AMOUNT"
	ExceedsRemainingError      ErrorType = "EXCEEDS_REMAINING"
	AlreadySuspendedError      ErrorType = "ALREADY_SUSPENDED"
	TransactionNotFoundError   ErrorType = "TRANSACTION_NOT_FOUND"
	GatewayFailureError        ErrorType = "GATEWAY_FAILURE"
	PayoutTransferFailureError ErrorType = "PAYOUT_TRANSFER_FAILURE"
)

// SuspendedMessage is what a parent sees when paying a booking that was suspended.
const SuspendedMessage = "booking suspended for non-payment"

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Raw        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Raw
}

// GetHTTPStatus returns the status code the error handler should respond with.
func (e *AppError) GetHTTPStatus() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return getHTTPStatus(e.Type)
}

// New creates a new AppError
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

// IsType reports whether err is an AppError of the given type anywhere in its chain.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// Helper functions for common errors
func NotFound(entity string, id interface{}) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    fmt.Sprintf("%s not found", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func ValidationFailed(message string, details string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewDatabaseError(err error) *AppError {
	// Log original error but return sanitized message
	logger.GetLogger().Errorw("Database error", "error", err)
	return &AppError{
		Type:       DatabaseError,
		Message:    "Database operation failed",
		Detail:     "Please try again later",
		HTTPStatus: http.StatusInternalServerError,
		Raw:        err,
	}
}

func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

func Forbidden(message string, details string) *AppError {
	return &AppError{
		Type:       ForbiddenError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusForbidden,
	}
}

func InvalidStatusTransition(current, new string) *AppError {
	return &AppError{
		Type:       InvalidStatusTransitionError,
		Message:    "Invalid status transition",
		Detail:     fmt.Sprintf("Cannot transition from %s to %s", current, new),
		HTTPStatus: http.StatusConflict,
	}
}

func NewConflictError(message string, detail string) *AppError {
	return &AppError{
		Type:       ConflictError,
		Message:    message,
		Detail:     detail,
		HTTPStatus: http.StatusConflict,
	}
}

func Unauthorized(code, message string) *AppError {
	return &AppError{
		Type:       AuthError,
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func RateLimitExceeded(message string, retryAfterSeconds int) *AppError {
	return &AppError{
		Type:       RateLimitError,
		Message:    message,
		Detail:     fmt.Sprintf("retry after %d seconds", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

func InsufficientAmount(required, given int64) *AppError {
	return &AppError{
		Type:       InsufficientAmountError,
		Message:    "Payment is below the required upfront amount",
		Detail:     fmt.Sprintf("required at least %d, got %d", required, given),
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

func ExceedsRemaining(remaining, given int64) *AppError {
	return &AppError{
		Type:       ExceedsRemainingError,
		Message:    "Payment exceeds the remaining balance",
		Detail:     fmt.Sprintf("remaining %d, got %d", remaining, given),
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

func AlreadySuspended(transactionID string) *AppError {
	return &AppError{
		Type:       AlreadySuspendedError,
		Message:    SuspendedMessage,
		Detail:     fmt.Sprintf("Transaction ID: %s", transactionID),
		HTTPStatus: http.StatusConflict,
	}
}

func TransactionNotFound(id string) *AppError {
	return &AppError{
		Type:       TransactionNotFoundError,
		Message:    "Payment transaction not found",
		Detail:     fmt.Sprintf("Transaction ID: %s", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func GatewayFailure(message string, err error) *AppError {
	appErr := &AppError{
		Type:       GatewayFailureError,
		Message:    "Payment could not be processed",
		Detail:     message,
		HTTPStatus: http.StatusBadGateway,
		Raw:        err,
	}
	return appErr
}

func PayoutTransferFailure(driverID, reason string) *AppError {
	return &AppError{
		Type:       PayoutTransferFailureError,
		Message:    "Payout transfer rejected",
		Detail:     fmt.Sprintf("driver %s: %s", driverID, reason),
		HTTPStatus: http.StatusBadGateway,
	}
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError:
		return http.StatusBadRequest
	case NotFoundError, TransactionNotFoundError:
		return http.StatusNotFound
	case AuthError:
		return http.StatusUnauthorized
	case ForbiddenError:
		return http.StatusForbidden
	case ConflictError, InvalidStatusTransitionError, AlreadySuspendedError:
		return http.StatusConflict
	case InsufficientAmountError, ExceedsRemainingError:
		return http.StatusUnprocessableEntity
	case GatewayFailureError, PayoutTransferFailureError:
		return http.StatusBadGateway
	case RateLimitError:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
