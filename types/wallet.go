package types

import "time"

type WalletTransactionType string

const (
	WalletTxUpfrontEarning WalletTransactionType = "upfront_earning"
	WalletTxBalanceEarning WalletTransactionType = "balance_earning"
	WalletTxPayout         WalletTransactionType = "payout"
)

type WalletTransactionStatus string

const (
	WalletTxPending   WalletTransactionStatus = "pending"
	WalletTxCompleted WalletTransactionStatus = "completed"
)

// WalletTransaction is an append-only driver ledger entry.
type WalletTransaction struct {
	ID                   string                  `json:"id"`
	DriverID             string                  `json:"driverId"`
	BookingID            string                  `json:"bookingId,omitempty"`
	ParentID             string                  `json:"parentId,omitempty"`
	PaymentTransactionID string                  `json:"paymentTransactionId,omitempty"`
	Amount               int64                   `json:"amount"`
	Type                 WalletTransactionType   `json:"type"`
	Date                 time.Time               `json:"date"`
	Status               WalletTransactionStatus `json:"status"`
	PayoutBatchID        *string                 `json:"payoutBatchId,omitempty"`
}

// DriverWallet is the running earnings balance of one driver.
// Invariant: PendingPayouts == sum of Amount over pending Transactions.
type DriverWallet struct {
	DriverID       string              `json:"driverId"`
	TotalEarnings  int64               `json:"totalEarnings"`
	PendingPayouts int64               `json:"pendingPayouts"`
	LastPayoutDate *time.Time          `json:"lastPayoutDate,omitempty"`
	Transactions   []WalletTransaction `json:"transactions"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// PendingSum recomputes the pending balance from the entries.
func (w *DriverWallet) PendingSum() int64 {
	var sum int64
	for _, tx := range w.Transactions {
		if tx.Status == WalletTxPending {
			sum += tx.Amount
		}
	}
	return sum
}

func (w *DriverWallet) Clone() *DriverWallet {
	if w == nil {
		return nil
	}
	c := *w
	c.LastPayoutDate = cloneTime(w.LastPayoutDate)
	c.Transactions = make([]WalletTransaction, len(w.Transactions))
	for i, tx := range w.Transactions {
		tx.PayoutBatchID = cloneString(tx.PayoutBatchID)
		c.Transactions[i] = tx
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
