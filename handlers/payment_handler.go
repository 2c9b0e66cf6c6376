package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/KidRide/kidride-backend/errors"
	"github.com/KidRide/kidride-backend/logger"
	paymentSvc "github.com/KidRide/kidride-backend/models/payment/service"
	"github.com/KidRide/kidride-backend/types"
	"github.com/gin-gonic/gin"
)

// PaymentServiceInterface defines the methods used by PaymentHandler,
// allowing the handler to be tested with mocks.
type PaymentServiceInterface interface {
	CreateTransaction(ctx context.Context, in paymentSvc.CreateTransactionInput) (*types.PaymentTransaction, error)
	GetTransaction(ctx context.Context, id string) (*types.PaymentTransaction, error)
	GetTransactionByBooking(ctx context.Context, bookingID string) (*types.PaymentTransaction, error)
	PayUpfront(ctx context.Context, id string, amount int64, customer types.CustomerInfo) (*types.PaymentTransaction, error)
	PayBalance(ctx context.Context, id string, amount int64, customer types.CustomerInfo) (*types.PaymentTransaction, error)
	Policy() paymentSvc.SplitPolicy
}

var _ PaymentServiceInterface = (*paymentSvc.PaymentService)(nil)

type PaymentHandler struct {
	paymentService PaymentServiceInterface
}

func NewPaymentHandler(paymentService PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// PaymentRequest is the body of the upfront and balance endpoints.
type PaymentRequest struct {
	Amount        int64  `json:"amount" binding:"required"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	PaymentMethod string `json:"paymentMethod"`
}

// CreateTransactionHandler creates the ledger record for a booking.
// @Summary Create a payment transaction
// @Tags payments
// @Accept json
// @Produce json
// @Param request body paymentSvc.CreateTransactionInput true "Booking amount and parties"
// @Success 201 {object} types.PaymentTransaction "Created transaction with its split"
// @Failure 400 {object} middleware.ErrorResponse "Bad request - Invalid input data"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 409 {object} middleware.ErrorResponse "Conflict - State does not allow this operation"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /payments/transactions [post]
// @Security BearerAuth
func (h *PaymentHandler) CreateTransactionHandler(c *gin.Context) {
	var in paymentSvc.CreateTransactionInput
	if !bindJSONOrError(c, &in) {
		return
	}

	tx, err := h.paymentService.CreateTransaction(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// GetTransactionHandler returns one transaction to its parent, its driver or an admin.
// @Summary Get a payment transaction
// @Tags payments
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} types.PaymentTransaction "Transaction"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 404 {object} middleware.ErrorResponse "Not found"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /payments/transactions/{id} [get]
// @Security BearerAuth
func (h *PaymentHandler) GetTransactionHandler(c *gin.Context) {
	tx, err := h.paymentService.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !allowOwnerOrAdmin(c, tx.ParentID, tx.DriverID) {
		return
	}
	c.JSON(http.StatusOK, tx)
}

// GetBookingPaymentHandler returns the transaction of a booking.
// @Summary Get the payment of a booking
// @Tags payments
// @Produce json
// @Param bookingId path string true "Booking ID"
// @Success 200 {object} types.PaymentTransaction "Transaction"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 404 {object} middleware.ErrorResponse "Not found"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /bookings/{bookingId}/payment [get]
// @Security BearerAuth
func (h *PaymentHandler) GetBookingPaymentHandler(c *gin.Context) {
	tx, err := h.paymentService.GetTransactionByBooking(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !allowOwnerOrAdmin(c, tx.ParentID, tx.DriverID) {
		return
	}
	c.JSON(http.StatusOK, tx)
}

// SplitPreviewHandler computes the schedule for a hypothetical booking.
// @Summary Preview a payment split
// @Tags payments
// @Produce json
// @Param totalAmount query int true "Total amount in minor units"
// @Param endDate query string true "Service end date, RFC 3339"
// @Success 200 {object} types.PaymentSplit "Upfront, balance and earnings"
// @Failure 400 {object} middleware.ErrorResponse "Bad request - Invalid input data"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /payments/split [get]
// @Security BearerAuth
func (h *PaymentHandler) SplitPreviewHandler(c *gin.Context) {
	total, err := strconv.ParseInt(c.Query("totalAmount"), 10, 64)
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid totalAmount", "totalAmount must be an integer amount in minor units"))
		return
	}
	endDate, err := parseDateParam(c.Query("endDate"))
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid endDate", "endDate must be RFC3339 or YYYY-MM-DD"))
		return
	}

	split, err := h.paymentService.Policy().Compute(total, endDate)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, split)
}

// PayUpfrontHandler charges and applies the upfront payment.
// @Summary Pay the upfront amount
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body PaymentRequest true "Amount and customer details"
// @Success 200 {object} types.PaymentTransaction "Updated transaction"
// @Failure 400 {object} middleware.ErrorResponse "Bad request - Invalid input data"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 402 {object} middleware.ErrorResponse "Payment declined"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 404 {object} middleware.ErrorResponse "Not found"
// @Failure 409 {object} middleware.ErrorResponse "Conflict - State does not allow this operation"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /payments/transactions/{id}/upfront [post]
// @Security BearerAuth
func (h *PaymentHandler) PayUpfrontHandler(c *gin.Context) {
	h.pay(c, paymentSvc.UpfrontPayment)
}

// PayBalanceHandler charges and applies a balance payment.
// @Summary Pay toward the balance
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body PaymentRequest true "Amount and customer details"
// @Success 200 {object} types.PaymentTransaction "Updated transaction"
// @Failure 400 {object} middleware.ErrorResponse "Bad request - Invalid input data"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 402 {object} middleware.ErrorResponse "Payment declined"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 404 {object} middleware.ErrorResponse "Not found"
// @Failure 409 {object} middleware.ErrorResponse "Conflict - State does not allow this operation"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /payments/transactions/{id}/balance [post]
// @Security BearerAuth
func (h *PaymentHandler) PayBalanceHandler(c *gin.Context) {
	h.pay(c, paymentSvc.BalancePayment)
}

func (h *PaymentHandler) pay(c *gin.Context, kind paymentSvc.PaymentKind) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req PaymentRequest
	if !bindJSONOrError(c, &req) {
		return
	}

	id := c.Param("id")
	ctx := c.Request.Context()
	tx, err := h.paymentService.GetTransaction(ctx, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if tx.ParentID != userID {
		_ = c.Error(apperrors.Forbidden("Access denied", "only the booking's parent can pay"))
		return
	}

	customer := types.CustomerInfo{
		UserID:        userID,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		PaymentMethod: req.PaymentMethod,
	}
	if kind == paymentSvc.UpfrontPayment {
		tx, err = h.paymentService.PayUpfront(ctx, id, req.Amount, customer)
	} else {
		tx, err = h.paymentService.PayBalance(ctx, id, req.Amount, customer)
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	logger.GetLogger().Infow("Payment accepted",
		"transactionId", tx.ID,
		"kind", kind,
		"amount", req.Amount,
		"status", tx.Status)
	c.JSON(http.StatusOK, tx)
}

func parseDateParam(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
