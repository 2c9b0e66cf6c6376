package service

import (
	"context"
	"fmt"
	"path"
	"time"

	apperrors "github.com/KidRide/kidride-backend/errors"
	"github.com/KidRide/kidride-backend/pkg/valueobjects"
	"github.com/KidRide/kidride-backend/types"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet   = "Summary"
	transfersSheet = "Transfers"
)

// ExportStatement renders a batch as an .xlsx workbook for admin download.
func (s *PayoutService) ExportStatement(ctx context.Context, batchID string) (*excelize.File, string, error) {
	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, "", err
	}
	f, err := BuildStatement(batch, s.currency)
	if err != nil {
		return nil, "", err
	}
	return f, StatementFilename(batch), nil
}

// StatementLinker is implemented by archives that can hand out download links.
type StatementLinker interface {
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// StatementURL returns a short-lived link to the archived statement of a batch.
func (s *PayoutService) StatementURL(ctx context.Context, batchID string, ttl time.Duration) (string, error) {
	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return "", err
	}
	linker, ok := s.archive.(StatementLinker)
	if !ok {
		return "", apperrors.NotFound("Statement archive", batchID)
	}
	url, err := linker.URL(ctx, StatementKey(s.archivePrefix, batch), ttl)
	if err != nil {
		s.log.Errorw("Failed to sign statement url", "batchId", batchID, "error", err)
		return "", apperrors.InternalServerError("could not create statement link")
	}
	return url, nil
}

// ArchiveStatement renders and stores the statement of an existing batch.
// Re-archiving overwrites the same key.
func (s *PayoutService) ArchiveStatement(ctx context.Context, batchID string) (string, error) {
	if s.archive == nil {
		return "", apperrors.ValidationFailed("statement archive disabled", "no statement archive is configured")
	}
	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return "", err
	}
	if err := s.archiveStatement(ctx, batch); err != nil {
		return "", apperrors.Wrap(err, apperrors.ServerError, "failed to archive statement")
	}
	return StatementKey(s.archivePrefix, batch), nil
}

// StatementFilename is the download name of a batch statement.
func StatementFilename(batch *types.PayoutBatch) string {
	return fmt.Sprintf("payout_%s_%s.xlsx", batch.CreatedAt.UTC().Format("2006-01-02"), batch.ID)
}

// StatementKey is the archive object key, grouped by month.
func StatementKey(prefix string, batch *types.PayoutBatch) string {
	return path.Join(prefix, "payouts", batch.CreatedAt.UTC().Format("2006/01"), StatementFilename(batch))
}

// BuildStatement lays out a batch summary sheet and one row per transfer.
func BuildStatement(batch *types.PayoutBatch, currency string) (*excelize.File, error) {
	f := excelize.NewFile()

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if _, err := f.NewSheet(transfersSheet); err != nil {
		return nil, fmt.Errorf("failed to create transfers sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(summarySheet); err == nil {
		f.SetActiveSheet(idx)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	processed := ""
	if batch.ProcessedAt != nil {
		processed = batch.ProcessedAt.UTC().Format(time.RFC3339)
	}
	summary := [][]interface{}{
		{"Batch", batch.ID},
		{"Status", string(batch.Status)},
		{"Trigger", string(batch.Trigger)},
		{"Triggered by", batch.TriggeredBy},
		{"Created", batch.CreatedAt.UTC().Format(time.RFC3339)},
		{"Processed", processed},
		{"Drivers", len(batch.Transactions)},
		{"Failed", len(batch.FailedTransactions())},
		{"Total paid", formatMinor(batch.TotalAmount)},
		{"Currency", currency},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}
	_ = f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary)), headerStyle)
	_ = f.SetColWidth(summarySheet, "A", "A", 16)
	_ = f.SetColWidth(summarySheet, "B", "B", 40)

	headers := []interface{}{"Driver", "Amount", "Status", "Wallet entries", "Processed", "Error"}
	if err := f.SetSheetRow(transfersSheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}
	_ = f.SetCellStyle(transfersSheet, "A1", "F1", headerStyle)

	for i, tx := range batch.Transactions {
		txProcessed := ""
		if tx.ProcessedAt != nil {
			txProcessed = tx.ProcessedAt.UTC().Format(time.RFC3339)
		}
		row := []interface{}{
			tx.DriverID,
			formatMinor(tx.Amount),
			string(tx.Status),
			len(tx.WalletTransactionIDs),
			txProcessed,
			tx.ErrorMessage,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(transfersSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write transfer row: %w", err)
		}
	}
	_ = f.SetColWidth(transfersSheet, "A", "A", 38)
	_ = f.SetColWidth(transfersSheet, "B", "E", 15)
	_ = f.SetColWidth(transfersSheet, "F", "F", 50)

	return f, nil
}

// formatMinor renders minor units in major units for spreadsheet cells.
func formatMinor(minor int64) float64 {
	v, _ := valueobjects.MinorToMajor(minor).Float64()
	return v
}
