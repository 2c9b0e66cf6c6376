package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KidRide/kidride-backend/internal/store"
	"github.com/KidRide/kidride-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func seedPayment(t *testing.T, s *Store) *types.PaymentTransaction {
	t.Helper()
	s.AddBooking("booking-1", t0.AddDate(0, 0, 10))
	p := &types.PaymentTransaction{
		ID: "pay-1", BookingID: "booking-1", ParentID: "parent-1", DriverID: "driver-1",
		Currency: "INR", TotalAmount: 10000, RequiredUpfront: 2500,
		BalanceDueDate: t0.AddDate(0, 0, 8), Status: types.PaymentStatusPendingUpfront,
		CreatedAt: t0, UpdatedAt: t0,
	}
	require.NoError(t, s.CreatePaymentTransaction(context.Background(), p))
	return p
}

func TestStore_PaymentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := seedPayment(t, s)

	t.Run("one transaction per booking", func(t *testing.T) {
		dup := p.Clone()
		dup.ID = "pay-2"
		assert.ErrorIs(t, s.CreatePaymentTransaction(ctx, dup), store.ErrConflict)
	})

	t.Run("unknown booking", func(t *testing.T) {
		orphan := p.Clone()
		orphan.ID = "pay-3"
		orphan.BookingID = "nope"
		assert.ErrorIs(t, s.CreatePaymentTransaction(ctx, orphan), store.ErrNotFound)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		got, err := s.GetPaymentTransaction(ctx, p.ID)
		require.NoError(t, err)
		got.UpfrontPaid = 9999
		again, err := s.GetPaymentTransaction(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), again.UpfrontPaid)
	})

	t.Run("overpayment rejected", func(t *testing.T) {
		got, err := s.GetPaymentTransactionByBooking(ctx, p.BookingID)
		require.NoError(t, err)
		got.BalancePaid = 10001
		assert.ErrorIs(t, s.UpdatePaymentTransaction(ctx, got), store.ErrConflict)
	})

	t.Run("reminder flag is compare and swap", func(t *testing.T) {
		changed, err := s.MarkReminderSent(ctx, p.ID, types.ReminderOneDay, t0)
		require.NoError(t, err)
		assert.True(t, changed)
		changed, err = s.MarkReminderSent(ctx, p.ID, types.ReminderOneDay, t0)
		require.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestStore_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := seedPayment(t, s)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(q store.Queries) error {
		locked, err := q.GetPaymentTransactionForUpdate(ctx, p.ID)
		require.NoError(t, err)
		locked.UpfrontPaid = 2500
		locked.Status = types.PaymentStatusUpfrontPaid
		require.NoError(t, q.UpdatePaymentTransaction(ctx, locked))
		require.NoError(t, q.CreditWallet(ctx, &types.WalletTransaction{
			ID: "wtx-1", DriverID: "driver-1", Amount: 2042,
			Type: types.WalletTxUpfrontEarning, Status: types.WalletTxPending, Date: t0,
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetPaymentTransaction(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusPendingUpfront, got.Status)
	_, err = s.GetWallet(ctx, "driver-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_ReminderCandidatesOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for i, id := range []string{"b", "a", "c"} {
		s.AddBooking("booking-"+id, t0)
		require.NoError(t, s.CreatePaymentTransaction(ctx, &types.PaymentTransaction{
			ID: "pay-" + id, BookingID: "booking-" + id, TotalAmount: 100,
			BalanceDueDate: t0.AddDate(0, 0, 3-i), Status: types.PaymentStatusUpfrontPaid,
		}))
	}

	got, err := s.ListReminderCandidates(ctx, types.PaymentStatusUpfrontPaid, t0.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "pay-c", got[0].ID)
	assert.Equal(t, "pay-a", got[1].ID)
}

func TestStore_WalletPayoutDrain(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	for i, amount := range []int64{2042, 6127} {
		require.NoError(t, s.CreditWallet(ctx, &types.WalletTransaction{
			ID: []string{"wtx-1", "wtx-2"}[i], DriverID: "driver-1", Amount: amount,
			Type: types.WalletTxUpfrontEarning, Status: types.WalletTxPending, Date: t0,
		}))
	}

	drivers, err := s.ListDriversWithPendingPayouts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"driver-1"}, drivers)

	pending, err := s.ListPendingWalletTransactions(ctx, "driver-1")
	require.NoError(t, err)
	require.Len(t, pending, 2)

	// a credit landing after the snapshot must stay pending
	require.NoError(t, s.CreditWallet(ctx, &types.WalletTransaction{
		ID: "wtx-3", DriverID: "driver-1", Amount: 500,
		Type: types.WalletTxBalanceEarning, Status: types.WalletTxPending, Date: t0,
	}))

	err = s.WithTx(ctx, func(q store.Queries) error {
		if err := q.CompleteWalletTransactions(ctx, "driver-1", []string{"wtx-1", "wtx-2"}, "batch-1"); err != nil {
			return err
		}
		return q.DeductPendingPayouts(ctx, "driver-1", 8169, &types.WalletTransaction{
			ID: "wtx-p", DriverID: "driver-1", Amount: 8169,
			Type: types.WalletTxPayout, Status: types.WalletTxCompleted, Date: t0,
		})
	})
	require.NoError(t, err)

	w, err := s.GetWallet(ctx, "driver-1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), w.PendingPayouts)
	assert.Equal(t, int64(8669), w.TotalEarnings)
	assert.Equal(t, w.PendingPayouts, w.PendingSum())
	require.NotNil(t, w.LastPayoutDate)

	err = s.CompleteWalletTransactions(ctx, "driver-1", []string{"wtx-1"}, "batch-2")
	assert.ErrorIs(t, err, store.ErrStaleSnapshot)
	err = s.DeductPendingPayouts(ctx, "driver-1", 501, &types.WalletTransaction{ID: "wtx-q", Date: t0})
	assert.ErrorIs(t, err, store.ErrStaleSnapshot)
}

func TestStore_PayoutBatchesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, id := range []string{"b1", "b2", "b3"} {
		require.NoError(t, s.CreatePayoutBatch(ctx, &types.PayoutBatch{ID: id, Status: types.PayoutBatchPending}))
	}

	got, err := s.ListPayoutBatches(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b3", got[0].ID)
	assert.Equal(t, "b2", got[1].ID)

	got, err = s.ListPayoutBatches(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].ID)

	assert.ErrorIs(t, s.SavePayoutBatch(ctx, &types.PayoutBatch{ID: "missing"}), store.ErrNotFound)
}

func TestStore_BudgetAggregates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.UpsertBudgetLimit(ctx, &types.BudgetLimit{
		ID: "budget-1", ChildID: "child-1", ParentID: "parent-1", MonthlyLimit: 5000,
		WarningThreshold: 80, IsActive: true, SpendMonth: "2026-02",
	}))

	var last *types.MonthlyExpense
	for i, amount := range []int64{1000, 1500, 1501} {
		var err error
		last, err = s.AppendExpense(ctx, "parent-1", &types.ExpenseEntry{
			ID: []string{"e1", "e2", "e3"}[i], ChildID: "child-1", Month: "2026-03", Amount: amount, Date: t0,
		}, t0)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(4001), last.TotalAmount)
	assert.Equal(t, 3, last.RideCount)
	assert.Equal(t, int64(1334), last.AverageCostPerRide)
	assert.Empty(t, last.Expenses)

	m, err := s.GetMonthlyExpense(ctx, "child-1", "2026-03")
	require.NoError(t, err)
	assert.Len(t, m.Expenses, 3)

	n, err := s.ResetBudgetSpend(ctx, "2026-03", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// settings change keeps the spend tracking fields
	limit := &types.BudgetLimit{ChildID: "child-1", ParentID: "parent-1", MonthlyLimit: 8000, WarningThreshold: 90, IsActive: true}
	require.NoError(t, s.UpsertBudgetLimit(ctx, limit))
	assert.Equal(t, "budget-1", limit.ID)
	assert.Equal(t, "2026-03", limit.SpendMonth)
	assert.Equal(t, int64(8000), limit.MonthlyLimit)
}
