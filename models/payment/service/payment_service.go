// Package service implements the payment ledger: the split calculator, the
// per-booking transaction state machine, the reminder sweep and suspension.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/KidRide/kidride-backend/errors"
	"github.com/KidRide/kidride-backend/internal/events"
	"github.com/KidRide/kidride-backend/internal/gateway"
	"github.com/KidRide/kidride-backend/internal/store"
	"github.com/KidRide/kidride-backend/logger"
	walletsvc "github.com/KidRide/kidride-backend/models/wallet/service"
	"github.com/KidRide/kidride-backend/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentKind selects which leg of the schedule a payment is applied to.
type PaymentKind string

const (
	UpfrontPayment PaymentKind = "upfront"
	BalancePayment PaymentKind = "balance"
)

// CreateTransactionInput seeds the ledger record of a booking.
type CreateTransactionInput struct {
	BookingID   string `json:"bookingId" binding:"required"`
	ParentID    string `json:"parentId" binding:"required"`
	DriverID    string `json:"driverId" binding:"required"`
	TotalAmount int64  `json:"totalAmount" binding:"required"`
	Currency    string `json:"currency"`
}

// PaymentService owns the payment ledger. Every mutation runs in a single
// store transaction that also posts the driver's wallet credit.
type PaymentService struct {
	store     store.Store
	policy    SplitPolicy
	currency  string
	gateway   gateway.PaymentGateway
	publisher events.Publisher
	log       *zap.SugaredLogger
	metrics   *paymentMetrics
	nowFn     func() time.Time
}

func NewPaymentService(st store.Store, policy SplitPolicy, currency string, gw gateway.PaymentGateway, pub events.Publisher) *PaymentService {
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	return &PaymentService{
		store:     st,
		policy:    policy,
		currency:  currency,
		gateway:   gw,
		publisher: pub,
		log:       logger.GetLogger().Named("payments"),
		metrics:   newPaymentMetrics(),
		nowFn:     time.Now,
	}
}

// Policy returns the split policy in force.
func (s *PaymentService) Policy() SplitPolicy {
	return s.policy
}

// CreateTransaction computes the split for a booking and stores its ledger
// record in pending_upfront. A booking has at most one transaction.
func (s *PaymentService) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*types.PaymentTransaction, error) {
	if in.BookingID == "" || in.ParentID == "" || in.DriverID == "" {
		return nil, apperrors.ValidationFailed("invalid transaction", "bookingId, parentId and driverId are required")
	}
	currency := in.Currency
	if currency == "" {
		currency = s.currency
	}

	endDate, err := s.store.GetBookingEndDate(ctx, in.BookingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Booking", in.BookingID)
		}
		return nil, apperrors.NewDatabaseError(err)
	}

	split, err := s.policy.Compute(in.TotalAmount, endDate)
	if err != nil {
		return nil, err
	}

	now := s.nowFn()
	tx := &types.PaymentTransaction{
		ID:              uuid.NewString(),
		BookingID:       in.BookingID,
		ParentID:        in.ParentID,
		DriverID:        in.DriverID,
		Currency:        currency,
		TotalAmount:     split.TotalAmount,
		RequiredUpfront: split.UpfrontAmount,
		BalanceDueDate:  split.BalanceDueDate,
		Status:          types.PaymentStatusPendingUpfront,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.CreatePaymentTransaction(ctx, tx); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperrors.NewConflictError("payment transaction already exists",
				fmt.Sprintf("booking %s already has a payment transaction", in.BookingID))
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Booking", in.BookingID)
		}
		s.log.Errorw("Failed to create payment transaction", "bookingId", in.BookingID, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}

	s.log.Infow("Payment transaction created",
		"transactionId", tx.ID,
		"bookingId", tx.BookingID,
		"totalAmount", tx.TotalAmount,
		"requiredUpfront", tx.RequiredUpfront,
		"balanceDueDate", tx.BalanceDueDate)
	s.publish(ctx, types.PaymentEvent{
		Type:          types.EventTransactionCreated,
		TransactionID: tx.ID,
		BookingID:     tx.BookingID,
		Amount:        tx.TotalAmount,
		Status:        string(tx.Status),
	})
	return tx, nil
}

func (s *PaymentService) GetTransaction(ctx context.Context, id string) (*types.PaymentTransaction, error) {
	tx, err := s.store.GetPaymentTransaction(ctx, id)
	if err != nil {
		return nil, translateStoreError(err, id)
	}
	return tx, nil
}

func (s *PaymentService) GetTransactionByBooking(ctx context.Context, bookingID string) (*types.PaymentTransaction, error) {
	tx, err := s.store.GetPaymentTransactionByBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.TransactionNotFound("booking " + bookingID)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return tx, nil
}

// PayUpfront charges the gateway and applies the result as the upfront payment.
func (s *PaymentService) PayUpfront(ctx context.Context, id string, amount int64, customer types.CustomerInfo) (*types.PaymentTransaction, error) {
	return s.pay(ctx, id, UpfrontPayment, amount, customer)
}

// PayBalance charges the gateway and applies the result as a balance payment.
func (s *PaymentService) PayBalance(ctx context.Context, id string, amount int64, customer types.CustomerInfo) (*types.PaymentTransaction, error) {
	return s.pay(ctx, id, BalancePayment, amount, customer)
}

func (s *PaymentService) pay(ctx context.Context, id string, kind PaymentKind, amount int64, customer types.CustomerInfo) (*types.PaymentTransaction, error) {
	tx, err := s.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	// Reject before charging so a doomed payment never reaches the gateway.
	if err := validatePayment(tx, kind, amount); err != nil {
		s.recordRejection(err)
		return nil, err
	}

	result, err := s.gateway.Charge(ctx, amount, customer)
	if err != nil {
		s.metrics.paymentRejections.WithLabelValues(string(apperrors.GatewayFailureError)).Inc()
		s.log.Errorw("Gateway charge failed", "transactionId", id, "kind", kind, "error", err)
		return nil, apperrors.GatewayFailure("gateway unavailable", err)
	}
	if !result.Success {
		s.metrics.paymentRejections.WithLabelValues(string(apperrors.GatewayFailureError)).Inc()
		s.log.Warnw("Gateway declined charge", "transactionId", id, "kind", kind, "message", result.Message)
		return nil, apperrors.GatewayFailure(result.Message, nil)
	}

	// The customer has been charged; record it even if the caller has gone away.
	updated, err := s.apply(context.WithoutCancel(ctx), id, kind, amount, result.TransactionID)
	if err != nil {
		// The charge went through but the ledger refused it, e.g. a concurrent
		// payment won the race. Needs a refund out of band.
		s.log.Errorw("Charged payment could not be applied",
			"transactionId", id,
			"kind", kind,
			"amount", amount,
			"gatewayRef", result.TransactionID,
			"error", err)
		return nil, err
	}
	return updated, nil
}

// ApplyUpfrontPayment records a successful upfront charge.
func (s *PaymentService) ApplyUpfrontPayment(ctx context.Context, id string, amount int64, gatewayRef string) (*types.PaymentTransaction, error) {
	return s.apply(ctx, id, UpfrontPayment, amount, gatewayRef)
}

// ApplyBalancePayment records a successful balance charge.
func (s *PaymentService) ApplyBalancePayment(ctx context.Context, id string, amount int64, gatewayRef string) (*types.PaymentTransaction, error) {
	return s.apply(ctx, id, BalancePayment, amount, gatewayRef)
}

func (s *PaymentService) apply(ctx context.Context, id string, kind PaymentKind, amount int64, gatewayRef string) (*types.PaymentTransaction, error) {
	now := s.nowFn()
	var updated *types.PaymentTransaction
	var attr types.SplitAttribution

	err := s.store.WithTx(ctx, func(q store.Queries) error {
		tx, err := q.GetPaymentTransactionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := validatePayment(tx, kind, amount); err != nil {
			return err
		}

		attr = s.policy.Attribute(amount)
		walletType := types.WalletTxUpfrontEarning
		switch kind {
		case UpfrontPayment:
			tx.UpfrontPaid += amount
			tx.UpfrontPaymentDate = &now
			tx.UpfrontGatewayRef = gatewayRef
		case BalancePayment:
			tx.BalancePaid += amount
			tx.BalancePaymentDate = &now
			tx.BalanceGatewayRef = gatewayRef
			walletType = types.WalletTxBalanceEarning
		}
		tx.GatewayFee += attr.GatewayFee
		tx.SystemCommission += attr.SystemCommission
		tx.DriverEarning += attr.DriverEarning
		if tx.Remaining() == 0 {
			tx.Status = types.PaymentStatusFullyPaid
		} else {
			tx.Status = types.PaymentStatusUpfrontPaid
		}
		tx.UpdatedAt = now

		if err := q.UpdatePaymentTransaction(ctx, tx); err != nil {
			return err
		}
		if attr.DriverEarning > 0 {
			entry := walletsvc.EarningEntry(tx, walletType, attr.DriverEarning, now)
			if err := walletsvc.Credit(ctx, q, entry); err != nil {
				return fmt.Errorf("failed to credit driver wallet: %w", err)
			}
		}
		updated = tx
		return nil
	})
	if err != nil {
		appErr := translateStoreError(err, id)
		s.recordRejection(appErr)
		if !isClientError(appErr) {
			s.log.Errorw("Failed to apply payment", "transactionId", id, "kind", kind, "error", err)
		}
		return nil, appErr
	}

	s.metrics.paymentsApplied.WithLabelValues(string(kind)).Inc()
	s.metrics.amountApplied.WithLabelValues(string(kind)).Add(float64(amount))
	s.log.Infow("Payment applied",
		"transactionId", updated.ID,
		"bookingId", updated.BookingID,
		"kind", kind,
		"amount", amount,
		"driverEarning", attr.DriverEarning,
		"status", updated.Status)

	eventType := types.EventUpfrontPaid
	if kind == BalancePayment {
		eventType = types.EventBalancePaid
	}
	s.publish(ctx, types.PaymentEvent{
		Type:          eventType,
		TransactionID: updated.ID,
		BookingID:     updated.BookingID,
		Amount:        amount,
		Status:        string(updated.Status),
	})
	if updated.Status == types.PaymentStatusFullyPaid {
		s.publish(ctx, types.PaymentEvent{
			Type:          types.EventFullyPaid,
			TransactionID: updated.ID,
			BookingID:     updated.BookingID,
			Amount:        updated.TotalAmount,
			Status:        string(updated.Status),
		})
	}
	return updated, nil
}

// validatePayment checks amount against the current state of tx. Suspension
// is checked first so a suspended booking always reports as such.
func validatePayment(tx *types.PaymentTransaction, kind PaymentKind, amount int64) error {
	if tx.Status == types.PaymentStatusSuspended {
		return apperrors.AlreadySuspended(tx.ID)
	}
	if amount <= 0 {
		return apperrors.ValidationFailed("invalid amount", "payment amount must be positive")
	}

	switch kind {
	case UpfrontPayment:
		if tx.Status != types.PaymentStatusPendingUpfront {
			return apperrors.InvalidStatusTransition(string(tx.Status), string(types.PaymentStatusUpfrontPaid))
		}
		if required := tx.RequiredUpfront - tx.UpfrontPaid; amount < required {
			return apperrors.InsufficientAmount(required, amount)
		}
	case BalancePayment:
		if tx.Status != types.PaymentStatusUpfrontPaid {
			return apperrors.InvalidStatusTransition(string(tx.Status), string(types.PaymentStatusFullyPaid))
		}
	default:
		return apperrors.ValidationFailed("invalid payment kind", string(kind))
	}

	if remaining := tx.Remaining(); amount > remaining {
		return apperrors.ExceedsRemaining(remaining, amount)
	}
	return nil
}

func (s *PaymentService) publish(ctx context.Context, event types.PaymentEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warnw("Failed to publish payment event",
			"type", event.Type,
			"transactionId", event.TransactionID,
			"error", err)
	}
}

func (s *PaymentService) recordRejection(err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		s.metrics.paymentRejections.WithLabelValues(string(appErr.Type)).Inc()
		return
	}
	s.metrics.paymentRejections.WithLabelValues(string(apperrors.ServerError)).Inc()
}

// translateStoreError maps store sentinels to AppErrors and passes AppErrors
// raised inside a transaction through unchanged.
func translateStoreError(err error, id string) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, store.ErrNotFound):
		return apperrors.TransactionNotFound(id)
	case errors.Is(err, store.ErrConflict):
		return apperrors.NewConflictError("payment transaction changed concurrently", err.Error())
	default:
		return apperrors.NewDatabaseError(err)
	}
}

func isClientError(err error) bool {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	status := appErr.GetHTTPStatus()
	return status >= 400 && status < 500
}
