package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KidRide/kidride-backend/internal/events"
	"github.com/KidRide/kidride-backend/internal/lock"
	"github.com/KidRide/kidride-backend/internal/notification"
	"github.com/KidRide/kidride-backend/internal/store"
	"github.com/KidRide/kidride-backend/logger"
	"github.com/KidRide/kidride-backend/types"
	"go.uber.org/zap"
)

const reminderSweepLockKey = "sweep:reminders"

// SweepResult summarizes one reminder sweep.
type SweepResult struct {
	Examined         int  `json:"examined"`
	RemindersSent    int  `json:"remindersSent"`
	ReminderFailures int  `json:"reminderFailures"`
	Suspended        int  `json:"suspended"`
	Errors           int  `json:"errors"`
	Skipped          bool `json:"skipped"`
}

// SuspensionEnforcer moves overdue transactions to suspended and tells the
// booking collaborator, both in one store transaction.
type SuspensionEnforcer struct {
	store     store.Store
	notifier  notification.Notifier
	publisher events.Publisher
	log       *zap.SugaredLogger
	metrics   *paymentMetrics
	nowFn     func() time.Time
}

func NewSuspensionEnforcer(st store.Store, notifier notification.Notifier, pub events.Publisher) *SuspensionEnforcer {
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	return &SuspensionEnforcer{
		store:     st,
		notifier:  notifier,
		publisher: pub,
		log:       logger.GetLogger().Named("suspensions"),
		metrics:   newPaymentMetrics(),
		nowFn:     time.Now,
	}
}

// Suspend suspends the transaction if it is still upfront_paid and past its
// balance due date. It reports whether this call made the change.
func (e *SuspensionEnforcer) Suspend(ctx context.Context, transactionID string) (bool, error) {
	now := e.nowFn()
	var suspended *types.PaymentTransaction

	err := e.store.WithTx(ctx, func(q store.Queries) error {
		tx, err := q.GetPaymentTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if tx.Status != types.PaymentStatusUpfrontPaid || !now.After(tx.BalanceDueDate) {
			return nil
		}

		tx.Status = types.PaymentStatusSuspended
		tx.SuspendedAt = &now
		tx.SuspensionReason = types.SuspensionReasonNonPayment
		tx.UpdatedAt = now
		if err := q.UpdatePaymentTransaction(ctx, tx); err != nil {
			return err
		}
		if err := q.SetBookingStatus(ctx, tx.BookingID, types.BookingStatusSuspendedPayment, types.SuspensionReasonNonPayment); err != nil {
			return fmt.Errorf("failed to update booking status: %w", err)
		}
		suspended = tx
		return nil
	})
	if err != nil {
		return false, translateStoreError(err, transactionID)
	}
	if suspended == nil {
		return false, nil
	}

	e.metrics.suspensions.Inc()
	e.log.Infow("Transaction suspended for non-payment",
		"transactionId", suspended.ID,
		"bookingId", suspended.BookingID,
		"balanceDueDate", suspended.BalanceDueDate,
		"outstanding", suspended.Remaining())

	// Best effort: the suspension stands whether or not the parent hears about it.
	if err := e.notifier.Notify(ctx, suspended.ParentID, types.NotifyPaymentOverdue, map[string]interface{}{
		"transactionId":  suspended.ID,
		"bookingId":      suspended.BookingID,
		"outstanding":    suspended.Remaining(),
		"currency":       suspended.Currency,
		"balanceDueDate": suspended.BalanceDueDate,
		"reason":         suspended.SuspensionReason,
	}); err != nil {
		e.log.Warnw("Failed to send overdue notification", "transactionId", suspended.ID, "error", err)
	}
	if err := e.publisher.Publish(ctx, types.PaymentEvent{
		Type:          types.EventSuspended,
		TransactionID: suspended.ID,
		BookingID:     suspended.BookingID,
		Amount:        suspended.Remaining(),
		Status:        string(suspended.Status),
	}); err != nil {
		e.log.Warnw("Failed to publish suspension event", "transactionId", suspended.ID, "error", err)
	}
	return true, nil
}

// ReminderSweeper is the periodic balance reminder sweep. Each run is a
// function of the stored ledger and the clock, so it can be re-run at any
// time and from any process.
type ReminderSweeper struct {
	store    store.Store
	policy   SplitPolicy
	enforcer *SuspensionEnforcer
	notifier notification.Notifier
	locker   lock.Locker
	lockTTL  time.Duration
	loc      *time.Location
	log      *zap.SugaredLogger
	metrics  *paymentMetrics
	nowFn    func() time.Time
}

func NewReminderSweeper(
	st store.Store,
	policy SplitPolicy,
	enforcer *SuspensionEnforcer,
	notifier notification.Notifier,
	locker lock.Locker,
	lockTTL time.Duration,
	loc *time.Location,
) *ReminderSweeper {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderSweeper{
		store:    st,
		policy:   policy,
		enforcer: enforcer,
		notifier: notifier,
		locker:   locker,
		lockTTL:  lockTTL,
		loc:      loc,
		log:      logger.GetLogger().Named("reminders"),
		metrics:  newPaymentMetrics(),
		nowFn:    time.Now,
	}
}

// Sweep sends due reminders and suspends overdue transactions. A sweep that
// finds another runner holding the lock returns Skipped.
func (s *ReminderSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	lease, err := s.locker.Acquire(ctx, reminderSweepLockKey, s.lockTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		s.log.Infow("Reminder sweep already running elsewhere, skipping")
		result.Skipped = true
		return result, nil
	}
	if err != nil {
		return result, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warnw("Failed to release reminder sweep lock", "error", err)
		}
	}()

	start := time.Now()
	defer func() {
		s.metrics.sweepDuration.Observe(time.Since(start).Seconds())
	}()

	now := s.nowFn()
	horizon := now.AddDate(0, 0, s.policy.FirstReminderDays+1)
	candidates, err := s.store.ListReminderCandidates(ctx, types.PaymentStatusUpfrontPaid, horizon)
	if err != nil {
		return result, fmt.Errorf("failed to list reminder candidates: %w", err)
	}

	for _, tx := range candidates {
		result.Examined++
		s.process(ctx, tx, now, &result)
	}

	s.log.Infow("Reminder sweep finished",
		"examined", result.Examined,
		"remindersSent", result.RemindersSent,
		"reminderFailures", result.ReminderFailures,
		"suspended", result.Suspended,
		"errors", result.Errors,
		"duration", time.Since(start))
	return result, nil
}

func (s *ReminderSweeper) process(ctx context.Context, tx *types.PaymentTransaction, now time.Time, result *SweepResult) {
	if now.After(tx.BalanceDueDate) {
		changed, err := s.enforcer.Suspend(ctx, tx.ID)
		if err != nil {
			result.Errors++
			s.log.Errorw("Failed to suspend overdue transaction", "transactionId", tx.ID, "error", err)
			return
		}
		if changed {
			result.Suspended++
		}
		return
	}

	for _, kind := range []types.ReminderKind{types.ReminderThreeDays, types.ReminderOneDay} {
		if tx.RemindersSent.Sent(kind) {
			continue
		}
		if !sameDay(now, s.policy.ReminderDate(tx.BalanceDueDate, kind), s.loc) {
			continue
		}
		s.remind(ctx, tx, kind, now, result)
	}
}

// remind delivers first and sets the flag second, so a failed delivery
// leaves the flag unset for the next sweep to retry.
func (s *ReminderSweeper) remind(ctx context.Context, tx *types.PaymentTransaction, kind types.ReminderKind, now time.Time, result *SweepResult) {
	notifyKind := types.ReminderNotification(kind)
	err := s.notifier.Notify(ctx, tx.ParentID, notifyKind, map[string]interface{}{
		"transactionId":  tx.ID,
		"bookingId":      tx.BookingID,
		"balanceAmount":  tx.Remaining(),
		"currency":       tx.Currency,
		"balanceDueDate": tx.BalanceDueDate,
	})
	if err != nil {
		result.ReminderFailures++
		s.metrics.reminderFailures.Inc()
		s.log.Warnw("Reminder delivery failed, will retry next sweep",
			"transactionId", tx.ID,
			"kind", kind,
			"error", err)
		return
	}

	changed, err := s.store.MarkReminderSent(ctx, tx.ID, kind, now)
	if err != nil {
		result.Errors++
		s.log.Errorw("Failed to record reminder", "transactionId", tx.ID, "kind", kind, "error", err)
		return
	}
	if !changed {
		s.log.Warnw("Reminder flag was already set", "transactionId", tx.ID, "kind", kind)
		return
	}
	result.RemindersSent++
	s.metrics.remindersSent.WithLabelValues(string(kind)).Inc()
	s.log.Infow("Reminder sent", "transactionId", tx.ID, "bookingId", tx.BookingID, "kind", kind)
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
