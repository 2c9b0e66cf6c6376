package postgres

import (
	"context"
	"fmt"

	"github.com/KidRide/kidride-backend/internal/store"
	"github.com/KidRide/kidride-backend/types"
	"github.com/jackc/pgx/v5"
)

const batchColumns = `id, driver_ids, total_amount, status, trigger_type, triggered_by, created_at, processed_at`

const payoutTxColumns = `id, batch_id, driver_id, amount, wallet_transaction_ids, status, error_message, processed_at`

func scanBatch(row pgx.Row) (*types.PayoutBatch, error) {
	var b types.PayoutBatch
	var status, trigger string
	if err := row.Scan(&b.ID, &b.DriverIDs, &b.TotalAmount, &status, &trigger, &b.TriggeredBy, &b.CreatedAt, &b.ProcessedAt); err != nil {
		return nil, err
	}
	b.Status = types.PayoutBatchStatus(status)
	b.Trigger = types.PayoutTrigger(trigger)
	b.Transactions = []types.PayoutTransaction{}
	return &b, nil
}

func (q *queries) CreatePayoutBatch(ctx context.Context, b *types.PayoutBatch) error {
	_, err := q.db.Exec(ctx, `INSERT INTO payout_batches (`+batchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.DriverIDs, b.TotalAmount, string(b.Status), string(b.Trigger), b.TriggeredBy, b.CreatedAt, b.ProcessedAt)
	if err != nil {
		return mapError(err, "create payout batch")
	}
	return q.upsertPayoutTransactions(ctx, b)
}

func (q *queries) SavePayoutBatch(ctx context.Context, b *types.PayoutBatch) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE payout_batches SET driver_ids = $2, total_amount = $3, status = $4, processed_at = $5
		WHERE id = $1`,
		b.ID, b.DriverIDs, b.TotalAmount, string(b.Status), b.ProcessedAt)
	if err != nil {
		return mapError(err, "save payout batch")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save payout batch %s: %w", b.ID, store.ErrNotFound)
	}
	return q.upsertPayoutTransactions(ctx, b)
}

func (q *queries) upsertPayoutTransactions(ctx context.Context, b *types.PayoutBatch) error {
	for _, tx := range b.Transactions {
		_, err := q.db.Exec(ctx, `
			INSERT INTO payout_transactions (`+payoutTxColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				amount = EXCLUDED.amount,
				wallet_transaction_ids = EXCLUDED.wallet_transaction_ids,
				status = EXCLUDED.status,
				error_message = EXCLUDED.error_message,
				processed_at = EXCLUDED.processed_at`,
			tx.ID, b.ID, tx.DriverID, tx.Amount, tx.WalletTransactionIDs, string(tx.Status), tx.ErrorMessage, tx.ProcessedAt)
		if err != nil {
			return mapError(err, "upsert payout transaction")
		}
	}
	return nil
}

func (q *queries) loadPayoutTransactions(ctx context.Context, b *types.PayoutBatch) error {
	rows, err := q.db.Query(ctx, `SELECT `+payoutTxColumns+` FROM payout_transactions WHERE batch_id = $1 ORDER BY driver_id, id`, b.ID)
	if err != nil {
		return mapError(err, "list payout transactions")
	}
	defer rows.Close()

	for rows.Next() {
		var tx types.PayoutTransaction
		var status string
		if err := rows.Scan(&tx.ID, &tx.BatchID, &tx.DriverID, &tx.Amount, &tx.WalletTransactionIDs,
			&status, &tx.ErrorMessage, &tx.ProcessedAt); err != nil {
			return mapError(err, "scan payout transaction")
		}
		tx.Status = types.PayoutTransactionStatus(status)
		b.Transactions = append(b.Transactions, tx)
	}
	return mapError(rows.Err(), "iterate payout transactions")
}

func (q *queries) GetPayoutBatch(ctx context.Context, id string) (*types.PayoutBatch, error) {
	b, err := scanBatch(q.db.QueryRow(ctx, `SELECT `+batchColumns+` FROM payout_batches WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "get payout batch")
	}
	if err := q.loadPayoutTransactions(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (q *queries) ListPayoutBatches(ctx context.Context, limit, offset int) ([]*types.PayoutBatch, error) {
	rows, err := q.db.Query(ctx, `SELECT `+batchColumns+` FROM payout_batches
		ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapError(err, "list payout batches")
	}
	var batches []*types.PayoutBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			rows.Close()
			return nil, mapError(err, "scan payout batch")
		}
		batches = append(batches, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "iterate payout batches")
	}

	for _, b := range batches {
		if err := q.loadPayoutTransactions(ctx, b); err != nil {
			return nil, err
		}
	}
	return batches, nil
}
