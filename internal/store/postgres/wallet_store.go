package postgres

import (
	"context"
	"fmt"

	"github.com/KidRide/kidride-backend/internal/store"
	"github.com/KidRide/kidride-backend/types"
	"github.com/jackc/pgx/v5"
)

const walletEntryColumns = `id, driver_id, booking_id, parent_id, payment_transaction_id, amount, type, date, status, payout_batch_id`

func scanWalletEntry(row pgx.Row) (types.WalletTransaction, error) {
	var e types.WalletTransaction
	var txType, status string
	err := row.Scan(&e.ID, &e.DriverID, &e.BookingID, &e.ParentID, &e.PaymentTransactionID,
		&e.Amount, &txType, &e.Date, &status, &e.PayoutBatchID)
	e.Type = types.WalletTransactionType(txType)
	e.Status = types.WalletTransactionStatus(status)
	return e, err
}

func (q *queries) insertWalletEntry(ctx context.Context, e *types.WalletTransaction) error {
	_, err := q.db.Exec(ctx, `INSERT INTO wallet_transactions (`+walletEntryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.DriverID, e.BookingID, e.ParentID, e.PaymentTransactionID,
		e.Amount, string(e.Type), e.Date, string(e.Status), e.PayoutBatchID)
	return mapError(err, "insert wallet transaction")
}

// CreditWallet upserts the wallet row. The upsert holds the row lock, which
// serializes concurrent credits and payout drains for the driver.
func (q *queries) CreditWallet(ctx context.Context, e *types.WalletTransaction) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO driver_wallets (driver_id, total_earnings, pending_payouts, created_at, updated_at)
		VALUES ($1, $2, $2, $3, $3)
		ON CONFLICT (driver_id) DO UPDATE SET
			total_earnings = driver_wallets.total_earnings + EXCLUDED.total_earnings,
			pending_payouts = driver_wallets.pending_payouts + EXCLUDED.pending_payouts,
			updated_at = EXCLUDED.updated_at`,
		e.DriverID, e.Amount, e.Date)
	if err != nil {
		return mapError(err, "credit wallet")
	}
	return q.insertWalletEntry(ctx, e)
}

func (q *queries) scanWalletHeader(row pgx.Row, op string) (*types.DriverWallet, error) {
	var w types.DriverWallet
	if err := row.Scan(&w.DriverID, &w.TotalEarnings, &w.PendingPayouts, &w.LastPayoutDate, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, mapError(err, op)
	}
	return &w, nil
}

const walletHeaderColumns = `driver_id, total_earnings, pending_payouts, last_payout_date, created_at, updated_at`

func (q *queries) GetWallet(ctx context.Context, driverID string) (*types.DriverWallet, error) {
	w, err := q.scanWalletHeader(q.db.QueryRow(ctx,
		`SELECT `+walletHeaderColumns+` FROM driver_wallets WHERE driver_id = $1`, driverID), "get wallet")
	if err != nil {
		return nil, err
	}
	entries, err := q.listWalletEntries(ctx,
		`SELECT `+walletEntryColumns+` FROM wallet_transactions WHERE driver_id = $1 ORDER BY date, id`, driverID)
	if err != nil {
		return nil, err
	}
	w.Transactions = entries
	return w, nil
}

func (q *queries) LockWallet(ctx context.Context, driverID string) (*types.DriverWallet, error) {
	return q.scanWalletHeader(q.db.QueryRow(ctx,
		`SELECT `+walletHeaderColumns+` FROM driver_wallets WHERE driver_id = $1 FOR UPDATE`, driverID), "lock wallet")
}

func (q *queries) listWalletEntries(ctx context.Context, sql string, args ...any) ([]types.WalletTransaction, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "list wallet transactions")
	}
	defer rows.Close()

	entries := []types.WalletTransaction{}
	for rows.Next() {
		e, err := scanWalletEntry(rows)
		if err != nil {
			return nil, mapError(err, "scan wallet transaction")
		}
		entries = append(entries, e)
	}
	return entries, mapError(rows.Err(), "iterate wallet transactions")
}

func (q *queries) ListDriversWithPendingPayouts(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx, `SELECT driver_id FROM driver_wallets WHERE pending_payouts > 0 ORDER BY driver_id`)
	if err != nil {
		return nil, mapError(err, "list drivers with pending payouts")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err, "scan driver id")
		}
		ids = append(ids, id)
	}
	return ids, mapError(rows.Err(), "iterate drivers")
}

func (q *queries) ListPendingWalletTransactions(ctx context.Context, driverID string) ([]types.WalletTransaction, error) {
	return q.listWalletEntries(ctx, `SELECT `+walletEntryColumns+` FROM wallet_transactions
		WHERE driver_id = $1 AND status = 'pending' ORDER BY date, id`, driverID)
}

func (q *queries) CompleteWalletTransactions(ctx context.Context, driverID string, ids []string, batchID string) error {
	if len(ids) == 0 {
		return nil
	}
	tag, err := q.db.Exec(ctx, `
		UPDATE wallet_transactions SET status = 'completed', payout_batch_id = $3
		WHERE driver_id = $1 AND id = ANY($2) AND status = 'pending'`,
		driverID, ids, batchID)
	if err != nil {
		return mapError(err, "complete wallet transactions")
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return fmt.Errorf("complete wallet transactions for %s: %d of %d pending: %w",
			driverID, tag.RowsAffected(), len(ids), store.ErrStaleSnapshot)
	}
	return nil
}

func (q *queries) DeductPendingPayouts(ctx context.Context, driverID string, amount int64, payout *types.WalletTransaction) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE driver_wallets SET pending_payouts = pending_payouts - $2, last_payout_date = $3, updated_at = $3
		WHERE driver_id = $1 AND pending_payouts >= $2`,
		driverID, amount, payout.Date)
	if err != nil {
		return mapError(err, "deduct pending payouts")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deduct %d from wallet %s: %w", amount, driverID, store.ErrStaleSnapshot)
	}
	return q.insertWalletEntry(ctx, payout)
}
