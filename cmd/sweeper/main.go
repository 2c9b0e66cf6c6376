// Command sweeper runs one ledger sweep and exits. It is meant for cron:
//
//	sweeper reminders
//	sweeper payouts
//	sweeper budget-reset
//	sweeper archive-statements -limit 100 -concurrency 4 [-dry-run]
//
// Every sweep is idempotent and lock-guarded, so overlapping invocations
// and the in-process scheduler can run side by side.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/KidRide/kidride-backend/config"
	"github.com/KidRide/kidride-backend/internal/app"
	"github.com/KidRide/kidride-backend/logger"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: sweeper <reminders|payouts|budget-reset|archive-statements> [flags]")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	cmd := os.Args[1]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "List batches that would be archived without uploading")
	concurrency := fs.Int("concurrency", 4, "Number of parallel statement uploads")
	limit := fs.Int("limit", 100, "Number of most recent batches to archive")
	_ = fs.Parse(os.Args[2:])

	logger.InitLogger()
	log := logger.GetLogger().Named("sweeper")
	defer logger.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer a.Close(context.Background())

	switch cmd {
	case "reminders":
		res, err := a.Sweeper.Sweep(ctx)
		if err != nil {
			log.Errorw("Reminder sweep failed", "error", err)
			exitAfterClose(a)
		}
		log.Infow("Reminder sweep finished",
			"examined", res.Examined,
			"remindersSent", res.RemindersSent,
			"reminderFailures", res.ReminderFailures,
			"suspended", res.Suspended,
			"errors", res.Errors,
			"skipped", res.Skipped)

	case "payouts":
		res, err := a.Payouts.RunScheduledPayouts(ctx)
		if err != nil {
			log.Errorw("Payout sweep failed", "error", err)
			exitAfterClose(a)
		}
		if res.Batch == nil {
			log.Infow("Payout sweep finished with nothing to pay", "skipped", res.Skipped)
			return
		}
		log.Infow("Payout sweep finished",
			"batchId", res.Batch.ID,
			"status", res.Batch.Status,
			"totalAmount", res.Batch.TotalAmount,
			"failed", len(res.Batch.FailedTransactions()))

	case "budget-reset":
		n, err := a.Budgets.ResetMonthlySpend(ctx)
		if err != nil {
			log.Errorw("Budget reset failed", "error", err)
			exitAfterClose(a)
		}
		log.Infow("Budget reset finished", "reset", n)

	case "archive-statements":
		if err := archiveStatements(ctx, a, *limit, *concurrency, *dryRun); err != nil {
			log.Errorw("Statement archive backfill failed", "error", err)
			exitAfterClose(a)
		}

	default:
		usage()
	}
}

// archiveStatements re-uploads the statements of the most recent batches.
func archiveStatements(ctx context.Context, a *app.App, limit, concurrency int, dryRun bool) error {
	log := logger.GetLogger().Named("sweeper")

	var batchIDs []string
	for offset := 0; len(batchIDs) < limit; {
		page, err := a.Payouts.ListBatches(ctx, 100, offset)
		if err != nil {
			return err
		}
		for _, b := range page {
			if len(batchIDs) < limit {
				batchIDs = append(batchIDs, b.ID)
			}
		}
		if len(page) < 100 {
			break
		}
		offset += len(page)
	}

	total := len(batchIDs)
	log.Infow("Found payout batches", "count", total)
	if total == 0 {
		return nil
	}
	if dryRun {
		for i, id := range batchIDs {
			log.Infow("Would archive statement", "n", i+1, "of", total, "batchId", id)
		}
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		archived int64
		errCount int64
		wg       sync.WaitGroup
		sem      = make(chan struct{}, concurrency)
	)
	for i, id := range batchIDs {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, batchID string) {
			defer wg.Done()
			defer func() { <-sem }()

			key, err := a.Payouts.ArchiveStatement(ctx, batchID)
			if err != nil {
				log.Errorw("Failed to archive statement", "n", idx+1, "of", total, "batchId", batchID, "error", err)
				atomic.AddInt64(&errCount, 1)
				return
			}
			log.Infow("Archived statement", "n", idx+1, "of", total, "batchId", batchID, "key", key)
			atomic.AddInt64(&archived, 1)
		}(i, id)
	}
	wg.Wait()

	log.Infow("Statement archive backfill finished", "total", total, "archived", archived, "errors", errCount)
	if errCount > 0 {
		return fmt.Errorf("%d of %d statements failed to archive", errCount, total)
	}
	return nil
}

// exitAfterClose releases connections before exiting non-zero, since
// os.Exit skips deferred calls.
func exitAfterClose(a *app.App) {
	a.Close(context.Background())
	_ = logger.Close()
	os.Exit(1)
}
