package types

import "time"

// PaymentEventType names a lifecycle event published after a ledger commit.
type PaymentEventType string

const (
	EventTransactionCreated PaymentEventType = "payment.transaction_created"
	EventUpfrontPaid        PaymentEventType = "payment.upfront_paid"
	EventBalancePaid        PaymentEventType = "payment.balance_paid"
	EventFullyPaid          PaymentEventType = "payment.fully_paid"
	EventSuspended          PaymentEventType = "payment.suspended"
	EventPayoutBatchDone    PaymentEventType = "payout.batch_finished"
)

type PaymentEvent struct {
	ID            string           `json:"id"`
	Type          PaymentEventType `json:"type"`
	TransactionID string           `json:"transactionId,omitempty"`
	BookingID     string           `json:"bookingId,omitempty"`
	BatchID       string           `json:"batchId,omitempty"`
	Amount        int64            `json:"amount,omitempty"`
	Status        string           `json:"status,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}
