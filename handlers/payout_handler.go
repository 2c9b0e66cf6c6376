package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/KidRide/kidride-backend/errors"
	"github.com/KidRide/kidride-backend/logger"
	payoutSvc "github.com/KidRide/kidride-backend/models/payout/service"
	"github.com/KidRide/kidride-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultStatementTTL = 15 * time.Minute
	maxStatementTTL     = 24 * time.Hour
)

// PayoutServiceInterface defines the methods used by PayoutHandler.
type PayoutServiceInterface interface {
	RunManualPayout(ctx context.Context, driverIDs []string, triggeredBy string) (payoutSvc.RunResult, error)
	GetBatch(ctx context.Context, id string) (*types.PayoutBatch, error)
	ListBatches(ctx context.Context, limit, offset int) ([]*types.PayoutBatch, error)
	ExportStatement(ctx context.Context, batchID string) (*excelize.File, string, error)
	StatementURL(ctx context.Context, batchID string, ttl time.Duration) (string, error)
}

var _ PayoutServiceInterface = (*payoutSvc.PayoutService)(nil)

type PayoutHandler struct {
	payoutService PayoutServiceInterface
}

func NewPayoutHandler(payoutService PayoutServiceInterface) *PayoutHandler {
	return &PayoutHandler{payoutService: payoutService}
}

// ManualPayoutRequest selects drivers for a manual payout. Empty means every
// driver with a pending balance.
type ManualPayoutRequest struct {
	DriverIDs []string `json:"driverIds"`
}

// RunManualPayoutHandler pays out now.
// @Summary Run a manual payout
// @Tags payouts
// @Accept json
// @Produce json
// @Param request body ManualPayoutRequest false "Drivers to pay, empty for all"
// @Success 201 {object} types.PayoutBatch "Completed batch"
// @Failure 400 {object} middleware.ErrorResponse "Bad request - Invalid input data"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 409 {object} middleware.ErrorResponse "Conflict - State does not allow this operation"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /admin/payouts [post]
// @Security BearerAuth
func (h *PayoutHandler) RunManualPayoutHandler(c *gin.Context) {
	adminID, ok := requireUser(c)
	if !ok {
		return
	}
	var req ManualPayoutRequest
	if c.Request.ContentLength != 0 && !bindJSONOrError(c, &req) {
		return
	}

	result, err := h.payoutService.RunManualPayout(c.Request.Context(), req.DriverIDs, adminID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if result.Batch == nil {
		c.JSON(http.StatusOK, gin.H{"message": "No pending payouts", "skipped": result.Skipped})
		return
	}
	c.JSON(http.StatusCreated, result.Batch)
}

// ListBatchesHandler lists payout batches, newest first.
// @Summary List payout batches
// @Tags payouts
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]interface{} "Batches with paging"
// @Failure 400 {object} middleware.ErrorResponse "Bad request - Invalid input data"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /admin/payouts [get]
// @Security BearerAuth
func (h *PayoutHandler) ListBatchesHandler(c *gin.Context) {
	params := getPaginationParams(c, 20, 0)
	batches, err := h.payoutService.ListBatches(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if batches == nil {
		batches = []*types.PayoutBatch{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data": batches,
		"pagination": gin.H{
			"limit":  params.Limit,
			"offset": params.Offset,
		},
	})
}

// GetBatchHandler returns one batch with its transfers.
// @Summary Get a payout batch
// @Tags payouts
// @Produce json
// @Param batchId path string true "Batch ID"
// @Success 200 {object} types.PayoutBatch "Batch with its transfers"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 404 {object} middleware.ErrorResponse "Not found"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /admin/payouts/{batchId} [get]
// @Security BearerAuth
func (h *PayoutHandler) GetBatchHandler(c *gin.Context) {
	batch, err := h.payoutService.GetBatch(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// DownloadStatementHandler streams the batch statement as an xlsx file.
// @Summary Download a payout statement
// @Tags payouts
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param batchId path string true "Batch ID"
// @Success 200 {file} file "xlsx statement"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 404 {object} middleware.ErrorResponse "Not found"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /admin/payouts/{batchId}/statement [get]
// @Security BearerAuth
func (h *PayoutHandler) DownloadStatementHandler(c *gin.Context) {
	f, filename, err := h.payoutService.ExportStatement(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.GetLogger().Warnw("Failed to close statement workbook", "error", err)
		}
	}()

	buf, err := f.WriteToBuffer()
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.ServerError, "Failed to render statement"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// StatementURLHandler returns a short-lived link to the archived statement.
// @Summary Get a statement download link
// @Tags payouts
// @Produce json
// @Param batchId path string true "Batch ID"
// @Param ttl query string false "Link lifetime, e.g. 15m"
// @Success 200 {object} map[string]interface{} "Presigned url and expiry"
// @Failure 400 {object} middleware.ErrorResponse "Bad request - Invalid input data"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 404 {object} middleware.ErrorResponse "Not found"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /admin/payouts/{batchId}/statement/url [get]
// @Security BearerAuth
func (h *PayoutHandler) StatementURLHandler(c *gin.Context) {
	ttl := defaultStatementTTL
	if raw := c.Query("ttl"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 || d > maxStatementTTL {
			_ = c.Error(apperrors.ValidationFailed("invalid ttl", "ttl must be a positive duration of at most 24h"))
			return
		}
		ttl = d
	}

	url, err := h.payoutService.StatementURL(c.Request.Context(), c.Param("batchId"), ttl)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expiresIn": int(ttl.Seconds())})
}
