package service

import (
	"context"
	"testing"
	"time"

	"github.com/KidRide/kidride-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The fixture's transactions fall due 2026-11-18 15:00 UTC.
var (
	threeDayMorning = time.Date(2026, 11, 15, 9, 0, 0, 0, time.UTC)
	oneDayMorning   = time.Date(2026, 11, 17, 9, 0, 0, 0, time.UTC)
)

func TestSweep_ThreeDayReminderIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.upfrontPaid(t, "booking-1")

	f.now = threeDayMorning
	first, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Examined)
	assert.Equal(t, 1, first.RemindersSent)

	f.now = threeDayMorning.Add(6 * time.Hour)
	second, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.RemindersSent)

	assert.Equal(t, []types.NotificationKind{types.NotifyPaymentReminder3Day}, f.notifier.kinds())
	assert.Equal(t, "parent-1", f.notifier.sent[0].RecipientID)
	assert.Equal(t, int64(7500), f.notifier.sent[0].Payload["balanceAmount"])

	got, err := f.payments.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, got.RemindersSent.ThreeDays)
	assert.False(t, got.RemindersSent.OneDay)
}

func TestSweep_OneDayReminder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.upfrontPaid(t, "booking-1")

	f.now = oneDayMorning
	res, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RemindersSent)
	assert.Equal(t, []types.NotificationKind{types.NotifyPaymentReminder1Day}, f.notifier.kinds())

	got, err := f.payments.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, got.RemindersSent.OneDay)
	assert.False(t, got.RemindersSent.ThreeDays, "missed reminders are not sent late")
}

func TestSweep_NothingDueOutsideReminderDays(t *testing.T) {
	f := newFixture(t)
	f.upfrontPaid(t, "booking-1")

	for _, now := range []time.Time{
		time.Date(2026, 11, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 11, 16, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 11, 18, 9, 0, 0, 0, time.UTC),
	} {
		f.now = now
		res, err := f.sweeper.Sweep(context.Background())
		require.NoError(t, err)
		assert.Zero(t, res.RemindersSent, now.String())
		assert.Zero(t, res.Suspended, now.String())
	}
	assert.Empty(t, f.notifier.kinds())
}

func TestSweep_FailedDeliveryIsRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.upfrontPaid(t, "booking-1")

	f.now = threeDayMorning
	f.notifier.setFail(true)
	res, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ReminderFailures)
	assert.Zero(t, res.RemindersSent)

	got, err := f.payments.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.False(t, got.RemindersSent.ThreeDays)

	f.notifier.setFail(false)
	f.now = threeDayMorning.Add(time.Hour)
	res, err = f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RemindersSent)
	assert.Equal(t, []types.NotificationKind{types.NotifyPaymentReminder3Day}, f.notifier.kinds())
}

func TestSweep_OverdueIsSuspended(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.upfrontPaid(t, "booking-1")

	f.now = tx.BalanceDueDate.AddDate(0, 0, 1)
	res, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Suspended)
	assert.Zero(t, res.RemindersSent)

	got, err := f.payments.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusSuspended, got.Status)
	assert.Equal(t, types.SuspensionReasonNonPayment, got.SuspensionReason)
	require.NotNil(t, got.SuspendedAt)

	status, reason, ok := f.store.Booking("booking-1")
	require.True(t, ok)
	assert.Equal(t, types.BookingStatusSuspendedPayment, status)
	assert.Equal(t, types.SuspensionReasonNonPayment, reason)

	assert.Equal(t, []types.NotificationKind{types.NotifyPaymentOverdue}, f.notifier.kinds())
	assert.Contains(t, f.publisher.eventTypes(), types.EventSuspended)

	again, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Examined, "suspended transactions are no longer candidates")
}

func TestSweep_IgnoresPaidAndPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.newTransaction(t, "booking-pending")
	paid := f.upfrontPaid(t, "booking-paid")
	_, err := f.payments.ApplyBalancePayment(ctx, paid.ID, paid.Remaining(), "ref")
	require.NoError(t, err)

	f.now = bookingEnd.AddDate(0, 0, 5)
	res, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Examined)

	status, _, _ := f.store.Booking("booking-paid")
	assert.NotEqual(t, types.BookingStatusSuspendedPayment, status)
}

func TestSweep_SkipsWhenLocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upfrontPaid(t, "booking-1")

	lease, err := f.locker.Acquire(ctx, reminderSweepLockKey, time.Minute)
	require.NoError(t, err)
	defer lease.Release(ctx)

	f.now = threeDayMorning
	res, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, f.notifier.kinds())
}

func TestSweep_CalendarDayUsesConfiguredZone(t *testing.T) {
	f := newFixture(t)
	f.upfrontPaid(t, "booking-1")
	f.sweeper.loc = time.FixedZone("IST", 5*3600+1800)

	// Still 15 Nov in UTC but already 16 Nov 00:30 in IST.
	f.now = time.Date(2026, 11, 15, 19, 0, 0, 0, time.UTC)
	res, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.RemindersSent)
}

func TestSuspend_NotYetDue(t *testing.T) {
	f := newFixture(t)
	tx := f.upfrontPaid(t, "booking-1")

	f.now = tx.BalanceDueDate
	changed, err := f.enforcer.Suspend(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.False(t, changed, "due date itself is not overdue")
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, sameDay(a, a.Add(23*time.Hour+59*time.Minute), time.UTC))
	assert.False(t, sameDay(a, a.Add(24*time.Hour), time.UTC))
	assert.False(t, sameDay(a, a.Add(-time.Minute), time.UTC))
}
