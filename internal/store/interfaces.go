// Package store defines the persistence contract of the payment ledger.
// Every mutation that must be atomic runs inside Store.WithTx; the Queries
// handed to the callback see and write a single transaction.
package store

import (
	"context"
	"time"

	"github.com/KidRide/kidride-backend/types"
)

// PaymentQueries covers the transaction ledger.
type PaymentQueries interface {
	CreatePaymentTransaction(ctx context.Context, tx *types.PaymentTransaction) error
	GetPaymentTransaction(ctx context.Context, id string) (*types.PaymentTransaction, error)
	// GetPaymentTransactionForUpdate locks the row for the rest of the transaction.
	GetPaymentTransactionForUpdate(ctx context.Context, id string) (*types.PaymentTransaction, error)
	GetPaymentTransactionByBooking(ctx context.Context, bookingID string) (*types.PaymentTransaction, error)
	UpdatePaymentTransaction(ctx context.Context, tx *types.PaymentTransaction) error
	// ListReminderCandidates returns transactions in status whose balance due
	// date is before dueBefore, oldest due first.
	ListReminderCandidates(ctx context.Context, status types.PaymentStatus, dueBefore time.Time) ([]*types.PaymentTransaction, error)
	// MarkReminderSent sets the flag only if it is unset and reports whether it changed.
	MarkReminderSent(ctx context.Context, id string, kind types.ReminderKind, at time.Time) (bool, error)
}

// BookingQueries is the narrow booking collaborator. Nothing else of the
// booking record is read or written.
type BookingQueries interface {
	GetBookingEndDate(ctx context.Context, bookingID string) (time.Time, error)
	SetBookingStatus(ctx context.Context, bookingID, status, reason string) error
}

// WalletQueries covers the driver wallet ledger.
type WalletQueries interface {
	// CreditWallet creates the wallet if needed, appends entry and raises
	// totalEarnings and pendingPayouts by entry.Amount.
	CreditWallet(ctx context.Context, entry *types.WalletTransaction) error
	GetWallet(ctx context.Context, driverID string) (*types.DriverWallet, error)
	// LockWallet takes the per-driver row lock and returns the wallet header
	// without its entries.
	LockWallet(ctx context.Context, driverID string) (*types.DriverWallet, error)
	ListDriversWithPendingPayouts(ctx context.Context) ([]string, error)
	ListPendingWalletTransactions(ctx context.Context, driverID string) ([]types.WalletTransaction, error)
	// CompleteWalletTransactions flips exactly ids from pending to completed.
	// It fails with ErrStaleSnapshot if any id was not pending.
	CompleteWalletTransactions(ctx context.Context, driverID string, ids []string, batchID string) error
	// DeductPendingPayouts subtracts amount from pendingPayouts, records the
	// payout entry and stamps lastPayoutDate.
	DeductPendingPayouts(ctx context.Context, driverID string, amount int64, payout *types.WalletTransaction) error
}

// PayoutQueries covers payout batches.
type PayoutQueries interface {
	CreatePayoutBatch(ctx context.Context, batch *types.PayoutBatch) error
	// SavePayoutBatch persists the batch header and upserts its transactions.
	SavePayoutBatch(ctx context.Context, batch *types.PayoutBatch) error
	GetPayoutBatch(ctx context.Context, id string) (*types.PayoutBatch, error)
	ListPayoutBatches(ctx context.Context, limit, offset int) ([]*types.PayoutBatch, error)
}

// BudgetQueries covers child budget tracking.
type BudgetQueries interface {
	UpsertBudgetLimit(ctx context.Context, limit *types.BudgetLimit) error
	GetBudgetLimit(ctx context.Context, childID string) (*types.BudgetLimit, error)
	GetBudgetLimitForUpdate(ctx context.Context, childID string) (*types.BudgetLimit, error)
	UpdateBudgetLimit(ctx context.Context, limit *types.BudgetLimit) error
	// GetMonthlyExpense returns the month aggregate with its entries.
	GetMonthlyExpense(ctx context.Context, childID, month string) (*types.MonthlyExpense, error)
	// AppendExpense adds entry to its child/month aggregate, creating the
	// aggregate on the first ride of the month, and returns the updated
	// aggregate without entries.
	AppendExpense(ctx context.Context, parentID string, entry *types.ExpenseEntry, at time.Time) (*types.MonthlyExpense, error)
	// ResetBudgetSpend zeroes currentSpent for active limits whose spend month
	// differs from month and moves them to month. Returns rows reset.
	ResetBudgetSpend(ctx context.Context, month string, at time.Time) (int64, error)
}

// Queries is everything available inside or outside a transaction.
type Queries interface {
	PaymentQueries
	BookingQueries
	WalletQueries
	PayoutQueries
	BudgetQueries
}

// Store is the ledger persistence boundary.
type Store interface {
	Queries
	// WithTx runs fn in one transaction. Returning an error rolls everything back.
	WithTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
}
