// Package service implements the payout batcher. Each driver is paid from a
// snapshot of their pending wallet entries, and the wallet is settled by
// subtracting the snapshot so earnings that land mid-batch carry over.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	apperrors "github.com/KidRide/kidride-backend/errors"
	"github.com/KidRide/kidride-backend/internal/events"
	"github.com/KidRide/kidride-backend/internal/gateway"
	"github.com/KidRide/kidride-backend/internal/lock"
	"github.com/KidRide/kidride-backend/internal/store"
	"github.com/KidRide/kidride-backend/logger"
	walletsvc "github.com/KidRide/kidride-backend/models/wallet/service"
	"github.com/KidRide/kidride-backend/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	payoutSweepLockKey = "sweep:payouts"
	driverLockPrefix   = "payout:driver:"

	defaultDriverLockTTL = 2 * time.Minute
	defaultSweepLockTTL  = 10 * time.Minute
)

// AdminAlerter is told about batches with rejected transfers.
type AdminAlerter interface {
	SendPayoutFailureAlert(ctx context.Context, batch *types.PayoutBatch) error
}

// StatementArchiver stores exported batch statements.
type StatementArchiver interface {
	Save(ctx context.Context, key string, reader io.Reader, size int64) error
}

// Options carries the optional collaborators of PayoutService.
type Options struct {
	DriverLockTTL time.Duration
	SweepLockTTL  time.Duration
	Currency      string
	Archive       StatementArchiver
	ArchivePrefix string
	Alerter       AdminAlerter
	Publisher     events.Publisher
}

// RunResult is the outcome of one payout run. Batch is nil when there was
// nothing to pay or the run was skipped.
type RunResult struct {
	Batch   *types.PayoutBatch `json:"batch,omitempty"`
	Skipped bool               `json:"skipped"`
}

type PayoutService struct {
	store         store.Store
	rail          gateway.PayoutRail
	locker        lock.Locker
	driverLockTTL time.Duration
	sweepLockTTL  time.Duration
	currency      string
	archive       StatementArchiver
	archivePrefix string
	alerter       AdminAlerter
	publisher     events.Publisher
	log           *zap.SugaredLogger
	metrics       *payoutMetrics
	nowFn         func() time.Time
}

func NewPayoutService(st store.Store, rail gateway.PayoutRail, locker lock.Locker, opts Options) *PayoutService {
	if opts.DriverLockTTL <= 0 {
		opts.DriverLockTTL = defaultDriverLockTTL
	}
	if opts.SweepLockTTL <= 0 {
		opts.SweepLockTTL = defaultSweepLockTTL
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NoopPublisher{}
	}
	return &PayoutService{
		store:         st,
		rail:          rail,
		locker:        locker,
		driverLockTTL: opts.DriverLockTTL,
		sweepLockTTL:  opts.SweepLockTTL,
		currency:      opts.Currency,
		archive:       opts.Archive,
		archivePrefix: opts.ArchivePrefix,
		alerter:       opts.Alerter,
		publisher:     opts.Publisher,
		log:           logger.GetLogger().Named("payouts"),
		metrics:       newPayoutMetrics(),
		nowFn:         time.Now,
	}
}

// RunScheduledPayouts drains every wallet with a pending balance into one
// batch. Only one scheduled run proceeds at a time across processes.
func (s *PayoutService) RunScheduledPayouts(ctx context.Context) (RunResult, error) {
	lease, err := s.locker.Acquire(ctx, payoutSweepLockKey, s.sweepLockTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		s.log.Infow("Payout sweep already running elsewhere, skipping")
		return RunResult{Skipped: true}, nil
	}
	if err != nil {
		return RunResult{}, err
	}
	defer s.release(ctx, lease, payoutSweepLockKey)

	drivers, err := s.store.ListDriversWithPendingPayouts(ctx)
	if err != nil {
		return RunResult{}, apperrors.NewDatabaseError(err)
	}
	return s.runBatch(ctx, types.PayoutTriggerScheduled, "", drivers)
}

// RunManualPayout pays the given drivers out of cycle, or every driver with
// a pending balance when driverIDs is empty.
func (s *PayoutService) RunManualPayout(ctx context.Context, driverIDs []string, triggeredBy string) (RunResult, error) {
	drivers := uniqueSorted(driverIDs)
	if len(drivers) == 0 {
		all, err := s.store.ListDriversWithPendingPayouts(ctx)
		if err != nil {
			return RunResult{}, apperrors.NewDatabaseError(err)
		}
		drivers = all
	}
	return s.runBatch(ctx, types.PayoutTriggerManual, triggeredBy, drivers)
}

func (s *PayoutService) GetBatch(ctx context.Context, id string) (*types.PayoutBatch, error) {
	batch, err := s.store.GetPayoutBatch(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("PayoutBatch", id)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return batch, nil
}

// ListBatches returns batches newest first.
func (s *PayoutService) ListBatches(ctx context.Context, limit, offset int) ([]*types.PayoutBatch, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	batches, err := s.store.ListPayoutBatches(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return batches, nil
}

func (s *PayoutService) runBatch(ctx context.Context, trigger types.PayoutTrigger, triggeredBy string, drivers []string) (RunResult, error) {
	if len(drivers) == 0 {
		s.log.Infow("No pending payouts", "trigger", trigger)
		return RunResult{}, nil
	}

	start := time.Now()
	batch := &types.PayoutBatch{
		ID:           uuid.NewString(),
		DriverIDs:    drivers,
		Status:       types.PayoutBatchPending,
		Trigger:      trigger,
		TriggeredBy:  triggeredBy,
		CreatedAt:    s.nowFn(),
		Transactions: []types.PayoutTransaction{},
	}
	if err := s.store.CreatePayoutBatch(ctx, batch); err != nil {
		s.log.Errorw("Failed to create payout batch", "error", err)
		return RunResult{}, apperrors.NewDatabaseError(err)
	}

	batch.Status = types.PayoutBatchProcessing
	if err := s.store.SavePayoutBatch(ctx, batch); err != nil {
		return RunResult{}, apperrors.NewDatabaseError(err)
	}
	s.log.Infow("Payout batch started", "batchId", batch.ID, "trigger", trigger, "drivers", len(drivers))

	// Each driver is settled or recorded as failed before the next one starts.
	// Cancellation is honoured only between drivers; a driver whose transfer
	// has started is always settled, so its entries never stay pending after
	// the money has left.
	detached := context.WithoutCancel(ctx)
	for _, driverID := range drivers {
		if err := ctx.Err(); err != nil {
			s.log.Warnw("Payout batch interrupted, remaining drivers stay pending for the next batch",
				"batchId", batch.ID, "error", err)
			break
		}
		ptx := s.payDriver(detached, batch.ID, driverID)
		if ptx == nil {
			continue
		}
		batch.Transactions = append(batch.Transactions, *ptx)
		if ptx.Status == types.PayoutTxCompleted {
			batch.TotalAmount += ptx.Amount
		}
		if err := s.store.SavePayoutBatch(detached, batch); err != nil {
			s.log.Errorw("Failed to record payout progress", "batchId", batch.ID, "driverId", driverID, "error", err)
		}
	}

	batch.DriverIDs = make([]string, 0, len(batch.Transactions))
	for _, ptx := range batch.Transactions {
		batch.DriverIDs = append(batch.DriverIDs, ptx.DriverID)
	}
	batch.Status = types.PayoutBatchCompleted
	if len(batch.FailedTransactions()) > 0 {
		batch.Status = types.PayoutBatchFailed
	}
	done := s.nowFn()
	batch.ProcessedAt = &done
	if err := s.store.SavePayoutBatch(detached, batch); err != nil {
		s.log.Errorw("Failed to finalize payout batch", "batchId", batch.ID, "error", err)
		return RunResult{Batch: batch}, apperrors.NewDatabaseError(err)
	}

	s.metrics.batches.WithLabelValues(string(batch.Status), string(trigger)).Inc()
	s.metrics.batchDuration.Observe(time.Since(start).Seconds())
	s.log.Infow("Payout batch finished",
		"batchId", batch.ID,
		"status", batch.Status,
		"paid", batch.TotalAmount,
		"transactions", len(batch.Transactions),
		"failed", len(batch.FailedTransactions()),
		"duration", time.Since(start))

	s.afterBatch(detached, batch)
	return RunResult{Batch: batch}, nil
}

// payDriver snapshots, transfers and settles one driver. It returns nil when
// the driver has nothing pending or is being paid by another run.
func (s *PayoutService) payDriver(ctx context.Context, batchID, driverID string) *types.PayoutTransaction {
	log := s.log.With("batchId", batchID, "driverId", driverID)

	key := driverLockPrefix + driverID
	lease, err := s.locker.Acquire(ctx, key, s.driverLockTTL)
	if err != nil {
		s.metrics.skipped.Inc()
		if errors.Is(err, lock.ErrNotAcquired) {
			log.Infow("Driver payout already in progress, skipping")
		} else {
			log.Errorw("Failed to acquire driver payout lock, skipping", "error", err)
		}
		return nil
	}
	defer s.release(ctx, lease, key)

	ids, amount, err := s.snapshot(ctx, driverID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		log.Errorw("Failed to snapshot wallet", "error", err)
		return s.failed(&types.PayoutTransaction{
			ID: uuid.NewString(), BatchID: batchID, DriverID: driverID,
		}, "wallet snapshot failed")
	}
	if amount <= 0 {
		return nil
	}

	ptx := &types.PayoutTransaction{
		ID:                   uuid.NewString(),
		BatchID:              batchID,
		DriverID:             driverID,
		Amount:               amount,
		WalletTransactionIDs: ids,
		Status:               types.PayoutTxPending,
	}

	result, err := s.rail.Transfer(ctx, driverID, amount)
	if err != nil {
		log.Warnw("Payout transfer errored", "amount", amount, "error", err)
		return s.failed(ptx, err.Error())
	}
	if !result.Success {
		log.Warnw("Payout transfer rejected", "amount", amount,
			"error", apperrors.PayoutTransferFailure(driverID, result.ErrorMessage))
		return s.failed(ptx, result.ErrorMessage)
	}

	now := s.nowFn()
	err = s.store.WithTx(ctx, func(q store.Queries) error {
		if _, err := q.LockWallet(ctx, driverID); err != nil {
			return err
		}
		if err := q.CompleteWalletTransactions(ctx, driverID, ids, batchID); err != nil {
			return err
		}
		return q.DeductPendingPayouts(ctx, driverID, amount, walletsvc.PayoutEntry(driverID, batchID, amount, now))
	})
	if err != nil {
		// Money has left but the wallet still shows it pending. Surfaces in
		// the admin alert for manual reconciliation.
		log.Errorw("Transfer succeeded but wallet settlement failed",
			"amount", amount,
			"reference", result.Reference,
			"error", err)
		return s.failed(ptx, fmt.Sprintf("transfer %s sent but wallet settlement failed: %v", result.Reference, err))
	}

	ptx.Status = types.PayoutTxCompleted
	ptx.ProcessedAt = &now
	s.metrics.transactions.WithLabelValues(string(types.PayoutTxCompleted)).Inc()
	s.metrics.amountPaid.Add(float64(amount))
	log.Infow("Driver paid", "amount", amount, "entries", len(ids), "reference", result.Reference)
	return ptx
}

// snapshot reads the pending entries under the wallet row lock.
func (s *PayoutService) snapshot(ctx context.Context, driverID string) ([]string, int64, error) {
	var ids []string
	var amount int64
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		if _, err := q.LockWallet(ctx, driverID); err != nil {
			return err
		}
		pending, err := q.ListPendingWalletTransactions(ctx, driverID)
		if err != nil {
			return err
		}
		for _, e := range pending {
			ids = append(ids, e.ID)
			amount += e.Amount
		}
		return nil
	})
	return ids, amount, err
}

func (s *PayoutService) failed(ptx *types.PayoutTransaction, msg string) *types.PayoutTransaction {
	now := s.nowFn()
	ptx.Status = types.PayoutTxFailed
	ptx.ErrorMessage = msg
	ptx.ProcessedAt = &now
	s.metrics.transactions.WithLabelValues(string(types.PayoutTxFailed)).Inc()
	return ptx
}

func (s *PayoutService) afterBatch(ctx context.Context, batch *types.PayoutBatch) {
	if s.archive != nil {
		if err := s.archiveStatement(ctx, batch); err != nil {
			s.log.Errorw("Failed to archive payout statement", "batchId", batch.ID, "error", err)
		}
	}
	if s.alerter != nil && batch.Status == types.PayoutBatchFailed {
		if err := s.alerter.SendPayoutFailureAlert(ctx, batch); err != nil {
			s.log.Errorw("Failed to send payout failure alert", "batchId", batch.ID, "error", err)
		}
	}
	if err := s.publisher.Publish(ctx, types.PaymentEvent{
		Type:    types.EventPayoutBatchDone,
		BatchID: batch.ID,
		Amount:  batch.TotalAmount,
		Status:  string(batch.Status),
	}); err != nil {
		s.log.Warnw("Failed to publish payout event", "batchId", batch.ID, "error", err)
	}
}

func (s *PayoutService) archiveStatement(ctx context.Context, batch *types.PayoutBatch) error {
	f, err := BuildStatement(batch, s.currency)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to render statement: %w", err)
	}
	key := StatementKey(s.archivePrefix, batch)
	if err := s.archive.Save(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		return err
	}
	s.log.Infow("Payout statement archived", "batchId", batch.ID, "key", key)
	return nil
}

func (s *PayoutService) release(ctx context.Context, lease lock.Lease, key string) {
	if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
		s.log.Warnw("Failed to release lock", "key", key, "error", err)
	}
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
