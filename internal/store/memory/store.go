// Package memory is an in-process ledger store for local development and
// service tests. WithTx runs against a copy of the state and swaps it in on
// success, so a failed callback leaves nothing behind.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/KidRide/kidride-backend/internal/store"
	"github.com/KidRide/kidride-backend/pkg/valueobjects"
	"github.com/KidRide/kidride-backend/types"
	"github.com/google/uuid"
)

type booking struct {
	endDate time.Time
	status  string
	reason  string
}

type state struct {
	payments          map[string]*types.PaymentTransaction
	paymentsByBooking map[string]string
	bookings          map[string]*booking
	wallets           map[string]*types.DriverWallet
	batches           map[string]*types.PayoutBatch
	batchOrder        []string
	budgets           map[string]*types.BudgetLimit
	expenses          map[string]*types.MonthlyExpense
}

func newState() *state {
	return &state{
		payments:          make(map[string]*types.PaymentTransaction),
		paymentsByBooking: make(map[string]string),
		bookings:          make(map[string]*booking),
		wallets:           make(map[string]*types.DriverWallet),
		batches:           make(map[string]*types.PayoutBatch),
		budgets:           make(map[string]*types.BudgetLimit),
		expenses:          make(map[string]*types.MonthlyExpense),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.payments {
		c.payments[k] = v.Clone()
	}
	for k, v := range s.paymentsByBooking {
		c.paymentsByBooking[k] = v
	}
	for k, v := range s.bookings {
		b := *v
		c.bookings[k] = &b
	}
	for k, v := range s.wallets {
		c.wallets[k] = v.Clone()
	}
	for k, v := range s.batches {
		c.batches[k] = v.Clone()
	}
	c.batchOrder = append([]string(nil), s.batchOrder...)
	for k, v := range s.budgets {
		c.budgets[k] = v.Clone()
	}
	for k, v := range s.expenses {
		c.expenses[k] = v.Clone()
	}
	return c
}

// Store keeps the whole ledger behind one mutex.
type Store struct {
	mu sync.Mutex
	st *state
}

var _ store.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{st: newState()}
}

// AddBooking registers a booking the payment engine can reference.
func (s *Store) AddBooking(id string, endDate time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.bookings[id] = &booking{endDate: endDate, status: "confirmed"}
}

// Booking returns the booking status and status reason.
func (s *Store) Booking(id string) (status, reason string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.st.bookings[id]
	if !ok {
		return "", "", false
	}
	return b.status, b.reason, true
}

func (s *Store) WithTx(ctx context.Context, fn func(q store.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&queries{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.st = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) run(fn func(q *queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&queries{st: s.st})
}

func (s *Store) CreatePaymentTransaction(ctx context.Context, tx *types.PaymentTransaction) error {
	return s.run(func(q *queries) error { return q.CreatePaymentTransaction(ctx, tx) })
}

func (s *Store) GetPaymentTransaction(ctx context.Context, id string) (out *types.PaymentTransaction, err error) {
	err = s.run(func(q *queries) error { out, err = q.GetPaymentTransaction(ctx, id); return err })
	return out, err
}

func (s *Store) GetPaymentTransactionForUpdate(ctx context.Context, id string) (*types.PaymentTransaction, error) {
	return s.GetPaymentTransaction(ctx, id)
}

func (s *Store) GetPaymentTransactionByBooking(ctx context.Context, bookingID string) (out *types.PaymentTransaction, err error) {
	err = s.run(func(q *queries) error { out, err = q.GetPaymentTransactionByBooking(ctx, bookingID); return err })
	return out, err
}

func (s *Store) UpdatePaymentTransaction(ctx context.Context, tx *types.PaymentTransaction) error {
	return s.run(func(q *queries) error { return q.UpdatePaymentTransaction(ctx, tx) })
}

func (s *Store) ListReminderCandidates(ctx context.Context, status types.PaymentStatus, dueBefore time.Time) (out []*types.PaymentTransaction, err error) {
	err = s.run(func(q *queries) error { out, err = q.ListReminderCandidates(ctx, status, dueBefore); return err })
	return out, err
}

func (s *Store) MarkReminderSent(ctx context.Context, id string, kind types.ReminderKind, at time.Time) (changed bool, err error) {
	err = s.run(func(q *queries) error { changed, err = q.MarkReminderSent(ctx, id, kind, at); return err })
	return changed, err
}

func (s *Store) GetBookingEndDate(ctx context.Context, bookingID string) (end time.Time, err error) {
	err = s.run(func(q *queries) error { end, err = q.GetBookingEndDate(ctx, bookingID); return err })
	return end, err
}

func (s *Store) SetBookingStatus(ctx context.Context, bookingID, status, reason string) error {
	return s.run(func(q *queries) error { return q.SetBookingStatus(ctx, bookingID, status, reason) })
}

func (s *Store) CreditWallet(ctx context.Context, entry *types.WalletTransaction) error {
	return s.run(func(q *queries) error { return q.CreditWallet(ctx, entry) })
}

func (s *Store) GetWallet(ctx context.Context, driverID string) (out *types.DriverWallet, err error) {
	err = s.run(func(q *queries) error { out, err = q.GetWallet(ctx, driverID); return err })
	return out, err
}

func (s *Store) LockWallet(ctx context.Context, driverID string) (out *types.DriverWallet, err error) {
	err = s.run(func(q *queries) error { out, err = q.LockWallet(ctx, driverID); return err })
	return out, err
}

func (s *Store) ListDriversWithPendingPayouts(ctx context.Context) (out []string, err error) {
	err = s.run(func(q *queries) error { out, err = q.ListDriversWithPendingPayouts(ctx); return err })
	return out, err
}

func (s *Store) ListPendingWalletTransactions(ctx context.Context, driverID string) (out []types.WalletTransaction, err error) {
	err = s.run(func(q *queries) error { out, err = q.ListPendingWalletTransactions(ctx, driverID); return err })
	return out, err
}

func (s *Store) CompleteWalletTransactions(ctx context.Context, driverID string, ids []string, batchID string) error {
	return s.WithTx(ctx, func(q store.Queries) error { return q.CompleteWalletTransactions(ctx, driverID, ids, batchID) })
}

func (s *Store) DeductPendingPayouts(ctx context.Context, driverID string, amount int64, payout *types.WalletTransaction) error {
	return s.WithTx(ctx, func(q store.Queries) error { return q.DeductPendingPayouts(ctx, driverID, amount, payout) })
}

func (s *Store) CreatePayoutBatch(ctx context.Context, batch *types.PayoutBatch) error {
	return s.run(func(q *queries) error { return q.CreatePayoutBatch(ctx, batch) })
}

func (s *Store) SavePayoutBatch(ctx context.Context, batch *types.PayoutBatch) error {
	return s.run(func(q *queries) error { return q.SavePayoutBatch(ctx, batch) })
}

func (s *Store) GetPayoutBatch(ctx context.Context, id string) (out *types.PayoutBatch, err error) {
	err = s.run(func(q *queries) error { out, err = q.GetPayoutBatch(ctx, id); return err })
	return out, err
}

func (s *Store) ListPayoutBatches(ctx context.Context, limit, offset int) (out []*types.PayoutBatch, err error) {
	err = s.run(func(q *queries) error { out, err = q.ListPayoutBatches(ctx, limit, offset); return err })
	return out, err
}

func (s *Store) UpsertBudgetLimit(ctx context.Context, limit *types.BudgetLimit) error {
	return s.run(func(q *queries) error { return q.UpsertBudgetLimit(ctx, limit) })
}

func (s *Store) GetBudgetLimit(ctx context.Context, childID string) (out *types.BudgetLimit, err error) {
	err = s.run(func(q *queries) error { out, err = q.GetBudgetLimit(ctx, childID); return err })
	return out, err
}

func (s *Store) GetBudgetLimitForUpdate(ctx context.Context, childID string) (*types.BudgetLimit, error) {
	return s.GetBudgetLimit(ctx, childID)
}

func (s *Store) UpdateBudgetLimit(ctx context.Context, limit *types.BudgetLimit) error {
	return s.run(func(q *queries) error { return q.UpdateBudgetLimit(ctx, limit) })
}

func (s *Store) GetMonthlyExpense(ctx context.Context, childID, month string) (out *types.MonthlyExpense, err error) {
	err = s.run(func(q *queries) error { out, err = q.GetMonthlyExpense(ctx, childID, month); return err })
	return out, err
}

func (s *Store) AppendExpense(ctx context.Context, parentID string, entry *types.ExpenseEntry, at time.Time) (out *types.MonthlyExpense, err error) {
	err = s.run(func(q *queries) error { out, err = q.AppendExpense(ctx, parentID, entry, at); return err })
	return out, err
}

func (s *Store) ResetBudgetSpend(ctx context.Context, month string, at time.Time) (n int64, err error) {
	err = s.run(func(q *queries) error { n, err = q.ResetBudgetSpend(ctx, month, at); return err })
	return n, err
}

// queries operates on a state the caller has already locked.
type queries struct {
	st *state
}

var _ store.Queries = (*queries)(nil)

func (q *queries) CreatePaymentTransaction(_ context.Context, tx *types.PaymentTransaction) error {
	if _, ok := q.st.bookings[tx.BookingID]; !ok {
		return fmt.Errorf("create payment transaction: booking %s: %w", tx.BookingID, store.ErrNotFound)
	}
	if _, ok := q.st.payments[tx.ID]; ok {
		return fmt.Errorf("create payment transaction %s: %w", tx.ID, store.ErrConflict)
	}
	if _, ok := q.st.paymentsByBooking[tx.BookingID]; ok {
		return fmt.Errorf("create payment transaction for booking %s: %w", tx.BookingID, store.ErrConflict)
	}
	q.st.payments[tx.ID] = tx.Clone()
	q.st.paymentsByBooking[tx.BookingID] = tx.ID
	return nil
}

func (q *queries) GetPaymentTransaction(_ context.Context, id string) (*types.PaymentTransaction, error) {
	tx, ok := q.st.payments[id]
	if !ok {
		return nil, fmt.Errorf("get payment transaction %s: %w", id, store.ErrNotFound)
	}
	return tx.Clone(), nil
}

func (q *queries) GetPaymentTransactionForUpdate(ctx context.Context, id string) (*types.PaymentTransaction, error) {
	return q.GetPaymentTransaction(ctx, id)
}

func (q *queries) GetPaymentTransactionByBooking(ctx context.Context, bookingID string) (*types.PaymentTransaction, error) {
	id, ok := q.st.paymentsByBooking[bookingID]
	if !ok {
		return nil, fmt.Errorf("get payment transaction by booking %s: %w", bookingID, store.ErrNotFound)
	}
	return q.GetPaymentTransaction(ctx, id)
}

func (q *queries) UpdatePaymentTransaction(_ context.Context, tx *types.PaymentTransaction) error {
	cur, ok := q.st.payments[tx.ID]
	if !ok {
		return fmt.Errorf("update payment transaction %s: %w", tx.ID, store.ErrNotFound)
	}
	if tx.UpfrontPaid < 0 || tx.BalancePaid < 0 || tx.PaidAmount() > cur.TotalAmount {
		return fmt.Errorf("update payment transaction %s: constraint payment_not_overpaid: %w", tx.ID, store.ErrConflict)
	}
	in := tx.Clone()
	next := cur.Clone()
	next.UpfrontPaid = tx.UpfrontPaid
	next.BalancePaid = tx.BalancePaid
	next.SystemCommission = tx.SystemCommission
	next.GatewayFee = tx.GatewayFee
	next.DriverEarning = tx.DriverEarning
	next.Status = tx.Status
	next.UpfrontGatewayRef = tx.UpfrontGatewayRef
	next.BalanceGatewayRef = tx.BalanceGatewayRef
	next.SuspensionReason = tx.SuspensionReason
	next.UpdatedAt = tx.UpdatedAt
	next.UpfrontPaymentDate = in.UpfrontPaymentDate
	next.BalancePaymentDate = in.BalancePaymentDate
	next.SuspendedAt = in.SuspendedAt
	q.st.payments[tx.ID] = next
	return nil
}

func (q *queries) ListReminderCandidates(_ context.Context, status types.PaymentStatus, dueBefore time.Time) ([]*types.PaymentTransaction, error) {
	var out []*types.PaymentTransaction
	for _, tx := range q.st.payments {
		if tx.Status == status && tx.BalanceDueDate.Before(dueBefore) {
			out = append(out, tx.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BalanceDueDate.Equal(out[j].BalanceDueDate) {
			return out[i].BalanceDueDate.Before(out[j].BalanceDueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (q *queries) MarkReminderSent(_ context.Context, id string, kind types.ReminderKind, at time.Time) (bool, error) {
	tx, ok := q.st.payments[id]
	if !ok {
		return false, fmt.Errorf("mark reminder sent %s: %w", id, store.ErrNotFound)
	}
	switch kind {
	case types.ReminderThreeDays:
		if tx.RemindersSent.ThreeDays {
			return false, nil
		}
		tx.RemindersSent.ThreeDays = true
	case types.ReminderOneDay:
		if tx.RemindersSent.OneDay {
			return false, nil
		}
		tx.RemindersSent.OneDay = true
	default:
		return false, fmt.Errorf("unknown reminder kind %q", kind)
	}
	tx.UpdatedAt = at
	return true, nil
}

func (q *queries) GetBookingEndDate(_ context.Context, bookingID string) (time.Time, error) {
	b, ok := q.st.bookings[bookingID]
	if !ok {
		return time.Time{}, fmt.Errorf("get booking end date %s: %w", bookingID, store.ErrNotFound)
	}
	return b.endDate, nil
}

func (q *queries) SetBookingStatus(_ context.Context, bookingID, status, reason string) error {
	b, ok := q.st.bookings[bookingID]
	if !ok {
		return fmt.Errorf("set booking status %s: %w", bookingID, store.ErrNotFound)
	}
	b.status = status
	b.reason = reason
	return nil
}

func (q *queries) CreditWallet(_ context.Context, entry *types.WalletTransaction) error {
	w, ok := q.st.wallets[entry.DriverID]
	if !ok {
		w = &types.DriverWallet{DriverID: entry.DriverID, CreatedAt: entry.Date}
		q.st.wallets[entry.DriverID] = w
	}
	w.TotalEarnings += entry.Amount
	w.PendingPayouts += entry.Amount
	w.UpdatedAt = entry.Date
	e := *entry
	w.Transactions = append(w.Transactions, e)
	return nil
}

func (q *queries) GetWallet(_ context.Context, driverID string) (*types.DriverWallet, error) {
	w, ok := q.st.wallets[driverID]
	if !ok {
		return nil, fmt.Errorf("get wallet %s: %w", driverID, store.ErrNotFound)
	}
	return w.Clone(), nil
}

func (q *queries) LockWallet(ctx context.Context, driverID string) (*types.DriverWallet, error) {
	w, err := q.GetWallet(ctx, driverID)
	if err != nil {
		return nil, err
	}
	w.Transactions = nil
	return w, nil
}

func (q *queries) ListDriversWithPendingPayouts(_ context.Context) ([]string, error) {
	var ids []string
	for id, w := range q.st.wallets {
		if w.PendingPayouts > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (q *queries) ListPendingWalletTransactions(_ context.Context, driverID string) ([]types.WalletTransaction, error) {
	entries := []types.WalletTransaction{}
	w, ok := q.st.wallets[driverID]
	if !ok {
		return entries, nil
	}
	for _, e := range w.Transactions {
		if e.Status == types.WalletTxPending {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (q *queries) CompleteWalletTransactions(_ context.Context, driverID string, ids []string, batchID string) error {
	if len(ids) == 0 {
		return nil
	}
	w, ok := q.st.wallets[driverID]
	if !ok {
		return fmt.Errorf("complete wallet transactions for %s: %w", driverID, store.ErrStaleSnapshot)
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var hits []int
	for i, e := range w.Transactions {
		if want[e.ID] && e.Status == types.WalletTxPending {
			hits = append(hits, i)
		}
	}
	if len(hits) != len(ids) {
		return fmt.Errorf("complete wallet transactions for %s: %d of %d pending: %w",
			driverID, len(hits), len(ids), store.ErrStaleSnapshot)
	}
	for _, i := range hits {
		w.Transactions[i].Status = types.WalletTxCompleted
		bid := batchID
		w.Transactions[i].PayoutBatchID = &bid
	}
	return nil
}

func (q *queries) DeductPendingPayouts(_ context.Context, driverID string, amount int64, payout *types.WalletTransaction) error {
	w, ok := q.st.wallets[driverID]
	if !ok || w.PendingPayouts < amount {
		return fmt.Errorf("deduct %d from wallet %s: %w", amount, driverID, store.ErrStaleSnapshot)
	}
	w.PendingPayouts -= amount
	at := payout.Date
	w.LastPayoutDate = &at
	w.UpdatedAt = at
	e := *payout
	w.Transactions = append(w.Transactions, e)
	return nil
}

func (q *queries) CreatePayoutBatch(_ context.Context, batch *types.PayoutBatch) error {
	if _, ok := q.st.batches[batch.ID]; ok {
		return fmt.Errorf("create payout batch %s: %w", batch.ID, store.ErrConflict)
	}
	q.st.batches[batch.ID] = batch.Clone()
	q.st.batchOrder = append(q.st.batchOrder, batch.ID)
	return nil
}

func (q *queries) SavePayoutBatch(_ context.Context, batch *types.PayoutBatch) error {
	if _, ok := q.st.batches[batch.ID]; !ok {
		return fmt.Errorf("save payout batch %s: %w", batch.ID, store.ErrNotFound)
	}
	q.st.batches[batch.ID] = batch.Clone()
	return nil
}

func (q *queries) GetPayoutBatch(_ context.Context, id string) (*types.PayoutBatch, error) {
	b, ok := q.st.batches[id]
	if !ok {
		return nil, fmt.Errorf("get payout batch %s: %w", id, store.ErrNotFound)
	}
	return b.Clone(), nil
}

// ListPayoutBatches returns newest first.
func (q *queries) ListPayoutBatches(_ context.Context, limit, offset int) ([]*types.PayoutBatch, error) {
	var out []*types.PayoutBatch
	for i := len(q.st.batchOrder) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, q.st.batches[q.st.batchOrder[i]].Clone())
	}
	return out, nil
}

func (q *queries) UpsertBudgetLimit(_ context.Context, limit *types.BudgetLimit) error {
	if cur, ok := q.st.budgets[limit.ChildID]; ok {
		next := cur.Clone()
		next.ParentID = limit.ParentID
		next.MonthlyLimit = limit.MonthlyLimit
		next.WarningThreshold = limit.WarningThreshold
		next.NotifyOnWarning = limit.NotifyOnWarning
		next.NotifyOnLimit = limit.NotifyOnLimit
		next.IsActive = limit.IsActive
		next.UpdatedAt = limit.UpdatedAt
		q.st.budgets[limit.ChildID] = next
		*limit = *next
		return nil
	}
	q.st.budgets[limit.ChildID] = limit.Clone()
	return nil
}

func (q *queries) GetBudgetLimit(_ context.Context, childID string) (*types.BudgetLimit, error) {
	b, ok := q.st.budgets[childID]
	if !ok {
		return nil, fmt.Errorf("get budget limit %s: %w", childID, store.ErrNotFound)
	}
	return b.Clone(), nil
}

func (q *queries) GetBudgetLimitForUpdate(ctx context.Context, childID string) (*types.BudgetLimit, error) {
	return q.GetBudgetLimit(ctx, childID)
}

func (q *queries) UpdateBudgetLimit(_ context.Context, limit *types.BudgetLimit) error {
	cur, ok := q.st.budgets[limit.ChildID]
	if !ok {
		return fmt.Errorf("update budget limit for %s: %w", limit.ChildID, store.ErrNotFound)
	}
	cur.CurrentSpent = limit.CurrentSpent
	cur.SpendMonth = limit.SpendMonth
	cur.WarningNotifiedMonth = limit.WarningNotifiedMonth
	cur.LimitNotifiedMonth = limit.LimitNotifiedMonth
	cur.UpdatedAt = limit.UpdatedAt
	return nil
}

func expenseKey(childID, month string) string {
	return childID + "|" + month
}

func (q *queries) GetMonthlyExpense(_ context.Context, childID, month string) (*types.MonthlyExpense, error) {
	m, ok := q.st.expenses[expenseKey(childID, month)]
	if !ok {
		return nil, fmt.Errorf("get monthly expense %s %s: %w", childID, month, store.ErrNotFound)
	}
	return m.Clone(), nil
}

func (q *queries) AppendExpense(_ context.Context, parentID string, entry *types.ExpenseEntry, at time.Time) (*types.MonthlyExpense, error) {
	key := expenseKey(entry.ChildID, entry.Month)
	m, ok := q.st.expenses[key]
	if !ok {
		m = &types.MonthlyExpense{
			ID:        uuid.NewString(),
			ChildID:   entry.ChildID,
			ParentID:  parentID,
			Month:     entry.Month,
			Expenses:  []types.ExpenseEntry{},
			CreatedAt: at,
		}
		q.st.expenses[key] = m
	}
	m.TotalAmount += entry.Amount
	m.RideCount++
	m.AverageCostPerRide = valueobjects.Average(m.TotalAmount, m.RideCount)
	m.UpdatedAt = at
	m.Expenses = append(m.Expenses, *entry)

	out := m.Clone()
	out.Expenses = nil
	return out, nil
}

func (q *queries) ResetBudgetSpend(_ context.Context, month string, at time.Time) (int64, error) {
	var n int64
	for _, b := range q.st.budgets {
		if b.IsActive && b.SpendMonth != month {
			b.CurrentSpent = 0
			b.SpendMonth = month
			b.UpdatedAt = at
			n++
		}
	}
	return n, nil
}
