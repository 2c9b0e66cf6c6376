package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/KidRide/kidride-backend/internal/store"
	"github.com/KidRide/kidride-backend/types"
	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, booking_id, parent_id, driver_id, currency, total_amount, required_upfront,
	upfront_paid, balance_paid, system_commission, gateway_fee, driver_earning, balance_due_date,
	reminder_three_days_sent, reminder_one_day_sent, status, upfront_gateway_ref, balance_gateway_ref,
	suspension_reason, created_at, updated_at, upfront_payment_date, balance_payment_date, suspended_at`

func scanPayment(row pgx.Row) (*types.PaymentTransaction, error) {
	var t types.PaymentTransaction
	var status string
	err := row.Scan(
		&t.ID, &t.BookingID, &t.ParentID, &t.DriverID, &t.Currency, &t.TotalAmount, &t.RequiredUpfront,
		&t.UpfrontPaid, &t.BalancePaid, &t.SystemCommission, &t.GatewayFee, &t.DriverEarning, &t.BalanceDueDate,
		&t.RemindersSent.ThreeDays, &t.RemindersSent.OneDay, &status, &t.UpfrontGatewayRef, &t.BalanceGatewayRef,
		&t.SuspensionReason, &t.CreatedAt, &t.UpdatedAt, &t.UpfrontPaymentDate, &t.BalancePaymentDate, &t.SuspendedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = types.PaymentStatus(status)
	if !t.Status.IsValid() {
		return nil, fmt.Errorf("unknown payment status %q on transaction %s", status, t.ID)
	}
	return &t, nil
}

func (q *queries) CreatePaymentTransaction(ctx context.Context, t *types.PaymentTransaction) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO payment_transactions (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		t.ID, t.BookingID, t.ParentID, t.DriverID, t.Currency, t.TotalAmount, t.RequiredUpfront,
		t.UpfrontPaid, t.BalancePaid, t.SystemCommission, t.GatewayFee, t.DriverEarning, t.BalanceDueDate,
		t.RemindersSent.ThreeDays, t.RemindersSent.OneDay, string(t.Status), t.UpfrontGatewayRef, t.BalanceGatewayRef,
		t.SuspensionReason, t.CreatedAt, t.UpdatedAt, t.UpfrontPaymentDate, t.BalancePaymentDate, t.SuspendedAt,
	)
	return mapError(err, "create payment transaction")
}

func (q *queries) GetPaymentTransaction(ctx context.Context, id string) (*types.PaymentTransaction, error) {
	t, err := scanPayment(q.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payment_transactions WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "get payment transaction")
	}
	return t, nil
}

func (q *queries) GetPaymentTransactionForUpdate(ctx context.Context, id string) (*types.PaymentTransaction, error) {
	t, err := scanPayment(q.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payment_transactions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, "lock payment transaction")
	}
	return t, nil
}

func (q *queries) GetPaymentTransactionByBooking(ctx context.Context, bookingID string) (*types.PaymentTransaction, error) {
	t, err := scanPayment(q.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payment_transactions WHERE booking_id = $1`, bookingID))
	if err != nil {
		return nil, mapError(err, "get payment transaction by booking")
	}
	return t, nil
}

func (q *queries) UpdatePaymentTransaction(ctx context.Context, t *types.PaymentTransaction) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE payment_transactions SET
			upfront_paid = $2, balance_paid = $3, system_commission = $4, gateway_fee = $5,
			driver_earning = $6, status = $7, upfront_gateway_ref = $8, balance_gateway_ref = $9,
			suspension_reason = $10, updated_at = $11, upfront_payment_date = $12,
			balance_payment_date = $13, suspended_at = $14
		WHERE id = $1`,
		t.ID, t.UpfrontPaid, t.BalancePaid, t.SystemCommission, t.GatewayFee,
		t.DriverEarning, string(t.Status), t.UpfrontGatewayRef, t.BalanceGatewayRef,
		t.SuspensionReason, t.UpdatedAt, t.UpfrontPaymentDate,
		t.BalancePaymentDate, t.SuspendedAt,
	)
	if err != nil {
		return mapError(err, "update payment transaction")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update payment transaction %s: %w", t.ID, store.ErrNotFound)
	}
	return nil
}

func (q *queries) ListReminderCandidates(ctx context.Context, status types.PaymentStatus, dueBefore time.Time) ([]*types.PaymentTransaction, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+paymentColumns+` FROM payment_transactions
		WHERE status = $1 AND balance_due_date < $2
		ORDER BY balance_due_date, id`, string(status), dueBefore)
	if err != nil {
		return nil, mapError(err, "list reminder candidates")
	}
	defer rows.Close()

	var out []*types.PaymentTransaction
	for rows.Next() {
		t, err := scanPayment(rows)
		if err != nil {
			return nil, mapError(err, "scan reminder candidate")
		}
		out = append(out, t)
	}
	return out, mapError(rows.Err(), "iterate reminder candidates")
}

var reminderColumns = map[types.ReminderKind]string{
	types.ReminderThreeDays: "reminder_three_days_sent",
	types.ReminderOneDay:    "reminder_one_day_sent",
}

// MarkReminderSent is a compare-and-swap on the reminder flag.
func (q *queries) MarkReminderSent(ctx context.Context, id string, kind types.ReminderKind, at time.Time) (bool, error) {
	col, ok := reminderColumns[kind]
	if !ok {
		return false, fmt.Errorf("unknown reminder kind %q", kind)
	}
	tag, err := q.db.Exec(ctx,
		`UPDATE payment_transactions SET `+col+` = TRUE, updated_at = $2 WHERE id = $1 AND `+col+` = FALSE`,
		id, at)
	if err != nil {
		return false, mapError(err, "mark reminder sent")
	}
	return tag.RowsAffected() == 1, nil
}
