package types

import "time"

type PayoutBatchStatus string

const (
	PayoutBatchPending    PayoutBatchStatus = "pending"
	PayoutBatchProcessing PayoutBatchStatus = "processing"
	PayoutBatchCompleted  PayoutBatchStatus = "completed"
	PayoutBatchFailed     PayoutBatchStatus = "failed"
)

type PayoutTransactionStatus string

const (
	PayoutTxPending   PayoutTransactionStatus = "pending"
	PayoutTxCompleted PayoutTransactionStatus = "completed"
	PayoutTxFailed    PayoutTransactionStatus = "failed"
)

// PayoutTrigger records who started a batch.
type PayoutTrigger string

const (
	PayoutTriggerScheduled PayoutTrigger = "scheduled"
	PayoutTriggerManual    PayoutTrigger = "manual"
)

// PayoutTransaction is one driver's transfer inside a batch.
type PayoutTransaction struct {
	ID                   string                  `json:"id"`
	BatchID              string                  `json:"batchId"`
	DriverID             string                  `json:"driverId"`
	Amount               int64                   `json:"amount"`
	WalletTransactionIDs []string                `json:"walletTransactionIds"`
	Status               PayoutTransactionStatus `json:"status"`
	ErrorMessage         string                  `json:"errorMessage,omitempty"`
	ProcessedAt          *time.Time              `json:"processedAt,omitempty"`
}

// PayoutBatch groups the payouts produced by one sweep or manual trigger.
// TotalAmount counts completed transfers only.
type PayoutBatch struct {
	ID           string              `json:"id"`
	DriverIDs    []string            `json:"driverIds"`
	TotalAmount  int64               `json:"totalAmount"`
	Status       PayoutBatchStatus   `json:"status"`
	Trigger      PayoutTrigger       `json:"trigger"`
	TriggeredBy  string              `json:"triggeredBy,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	ProcessedAt  *time.Time          `json:"processedAt,omitempty"`
	Transactions []PayoutTransaction `json:"transactions"`
}

// FailedTransactions returns the payouts the rail rejected.
func (b *PayoutBatch) FailedTransactions() []PayoutTransaction {
	var failed []PayoutTransaction
	for _, tx := range b.Transactions {
		if tx.Status == PayoutTxFailed {
			failed = append(failed, tx)
		}
	}
	return failed
}

func (b *PayoutBatch) Clone() *PayoutBatch {
	if b == nil {
		return nil
	}
	c := *b
	c.ProcessedAt = cloneTime(b.ProcessedAt)
	c.DriverIDs = append([]string(nil), b.DriverIDs...)
	c.Transactions = make([]PayoutTransaction, len(b.Transactions))
	for i, tx := range b.Transactions {
		tx.WalletTransactionIDs = append([]string(nil), tx.WalletTransactionIDs...)
		tx.ProcessedAt = cloneTime(tx.ProcessedAt)
		c.Transactions[i] = tx
	}
	return &c
}
