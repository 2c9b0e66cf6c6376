// Package service implements the driver wallet ledger: earning credits posted
// by applied payments, payout entries posted by the batcher, and reads.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/KidRide/kidride-backend/errors"
	"github.com/KidRide/kidride-backend/internal/store"
	"github.com/KidRide/kidride-backend/logger"
	"github.com/KidRide/kidride-backend/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WalletService reads driver wallets. Credits happen inside payment
// transactions through Credit.
type WalletService struct {
	store store.Store
	log   *zap.SugaredLogger
}

func NewWalletService(st store.Store) *WalletService {
	return &WalletService{
		store: st,
		log:   logger.GetLogger().Named("wallets"),
	}
}

// TransactionFilter narrows ListTransactions. Zero values match everything.
type TransactionFilter struct {
	Status types.WalletTransactionStatus
	Type   types.WalletTransactionType
}

func (f TransactionFilter) matches(tx types.WalletTransaction) bool {
	if f.Status != "" && tx.Status != f.Status {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	return true
}

// GetWallet returns the wallet with its full entry log.
func (s *WalletService) GetWallet(ctx context.Context, driverID string) (*types.DriverWallet, error) {
	if driverID == "" {
		return nil, apperrors.ValidationFailed("invalid driver id", "driver id is required")
	}
	w, err := s.store.GetWallet(ctx, driverID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Wallet", driverID)
		}
		s.log.Errorw("Failed to load wallet", "driverId", driverID, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}
	return w, nil
}

// ListTransactions returns the entries of a driver's wallet matching filter,
// oldest first. A driver without a wallet has no entries.
func (s *WalletService) ListTransactions(ctx context.Context, driverID string, filter TransactionFilter) ([]types.WalletTransaction, error) {
	w, err := s.GetWallet(ctx, driverID)
	if err != nil {
		if apperrors.IsType(err, apperrors.NotFoundError) {
			return []types.WalletTransaction{}, nil
		}
		return nil, err
	}
	out := make([]types.WalletTransaction, 0, len(w.Transactions))
	for _, tx := range w.Transactions {
		if filter.matches(tx) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// EarningEntry builds the pending wallet credit for amount earned on payment.
func EarningEntry(payment *types.PaymentTransaction, txType types.WalletTransactionType, amount int64, at time.Time) *types.WalletTransaction {
	return &types.WalletTransaction{
		ID:                   uuid.NewString(),
		DriverID:             payment.DriverID,
		BookingID:            payment.BookingID,
		ParentID:             payment.ParentID,
		PaymentTransactionID: payment.ID,
		Amount:               amount,
		Type:                 txType,
		Date:                 at,
		Status:               types.WalletTxPending,
	}
}

// PayoutEntry builds the completed log entry recording a disbursement.
func PayoutEntry(driverID, batchID string, amount int64, at time.Time) *types.WalletTransaction {
	bid := batchID
	return &types.WalletTransaction{
		ID:            uuid.NewString(),
		DriverID:      driverID,
		Amount:        amount,
		Type:          types.WalletTxPayout,
		Date:          at,
		Status:        types.WalletTxCompleted,
		PayoutBatchID: &bid,
	}
}

// Credit posts an earning entry. It must run inside the same store
// transaction as the payment it belongs to.
func Credit(ctx context.Context, q store.WalletQueries, entry *types.WalletTransaction) error {
	if entry.DriverID == "" {
		return fmt.Errorf("credit wallet: missing driver id")
	}
	if entry.Amount <= 0 {
		return fmt.Errorf("credit wallet %s: non-positive amount %d", entry.DriverID, entry.Amount)
	}
	if entry.Type != types.WalletTxUpfrontEarning && entry.Type != types.WalletTxBalanceEarning {
		return fmt.Errorf("credit wallet %s: %s is not an earning", entry.DriverID, entry.Type)
	}
	return q.CreditWallet(ctx, entry)
}
