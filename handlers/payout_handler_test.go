package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/KidRide/kidride-backend/errors"
	"github.com/KidRide/kidride-backend/middleware"
	payoutSvc "github.com/KidRide/kidride-backend/models/payout/service"
	"github.com/KidRide/kidride-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleBatch() *types.PayoutBatch {
	processed := time.Date(2026, 3, 9, 6, 0, 5, 0, time.UTC)
	return &types.PayoutBatch{
		ID:          "batch-1",
		DriverIDs:   []string{"driver-1"},
		TotalAmount: 1808,
		Status:      types.PayoutBatchCompleted,
		Trigger:     types.PayoutTriggerManual,
		TriggeredBy: "admin-1",
		CreatedAt:   time.Date(2026, 3, 9, 6, 0, 0, 0, time.UTC),
		ProcessedAt: &processed,
		Transactions: []types.PayoutTransaction{{
			ID:                   "ptx-1",
			BatchID:              "batch-1",
			DriverID:             "driver-1",
			Amount:               1808,
			WalletTransactionIDs: []string{"wt-1"},
			Status:               types.PayoutTxCompleted,
			ProcessedAt:          &processed,
		}},
	}
}

func TestRunManualPayoutHandler(t *testing.T) {
	t.Run("selected drivers", func(t *testing.T) {
		svc := new(MockPayoutService)
		h := NewPayoutHandler(svc)
		r := buildRouter(http.MethodPost, "/v1/admin/payouts", h.RunManualPayoutHandler, "admin-1", middleware.RoleAdmin)
		svc.On("RunManualPayout", mock.Anything, []string{"driver-1"}, "admin-1").
			Return(payoutSvc.RunResult{Batch: sampleBatch()}, nil)

		w := doRequest(r, http.MethodPost, "/v1/admin/payouts", ManualPayoutRequest{DriverIDs: []string{"driver-1"}})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "batch-1", decodeBody(t, w)["id"])
		svc.AssertExpectations(t)
	})

	t.Run("empty body pays everyone", func(t *testing.T) {
		svc := new(MockPayoutService)
		h := NewPayoutHandler(svc)
		r := buildRouter(http.MethodPost, "/v1/admin/payouts", h.RunManualPayoutHandler, "admin-1", middleware.RoleAdmin)
		svc.On("RunManualPayout", mock.Anything, []string(nil), "admin-1").Return(payoutSvc.RunResult{}, nil)

		w := doRequest(r, http.MethodPost, "/v1/admin/payouts", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "No pending payouts", body["message"])
		assert.Equal(t, false, body["skipped"])
	})

	t.Run("sweep in progress", func(t *testing.T) {
		svc := new(MockPayoutService)
		h := NewPayoutHandler(svc)
		r := buildRouter(http.MethodPost, "/v1/admin/payouts", h.RunManualPayoutHandler, "admin-1", middleware.RoleAdmin)
		svc.On("RunManualPayout", mock.Anything, []string(nil), "admin-1").Return(payoutSvc.RunResult{Skipped: true}, nil)

		w := doRequest(r, http.MethodPost, "/v1/admin/payouts", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeBody(t, w)["skipped"])
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := new(MockPayoutService)
		h := NewPayoutHandler(svc)
		r := buildRouter(http.MethodPost, "/v1/admin/payouts", h.RunManualPayoutHandler, "admin-1", middleware.RoleAdmin)

		req := httptest.NewRequest(http.MethodPost, "/v1/admin/payouts", bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "RunManualPayout", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestListBatchesHandler(t *testing.T) {
	svc := new(MockPayoutService)
	h := NewPayoutHandler(svc)
	r := buildRouter(http.MethodGet, "/v1/admin/payouts", h.ListBatchesHandler, "admin-1", middleware.RoleAdmin)
	svc.On("ListBatches", mock.Anything, 20, 0).Return(nil, nil)
	svc.On("ListBatches", mock.Anything, 5, 10).Return([]*types.PayoutBatch{sampleBatch()}, nil)

	w := doRequest(r, http.MethodGet, "/v1/admin/payouts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, decodeBody(t, w)["data"])

	w = doRequest(r, http.MethodGet, "/v1/admin/payouts?limit=5&offset=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["data"], 1)
	svc.AssertExpectations(t)
}

func TestGetBatchHandler(t *testing.T) {
	svc := new(MockPayoutService)
	h := NewPayoutHandler(svc)
	r := buildRouter(http.MethodGet, "/v1/admin/payouts/:batchId", h.GetBatchHandler, "admin-1", middleware.RoleAdmin)
	svc.On("GetBatch", mock.Anything, "batch-1").Return(sampleBatch(), nil)
	svc.On("GetBatch", mock.Anything, "nope").Return(nil, apperrors.NotFound("Payout batch", "nope"))

	w := doRequest(r, http.MethodGet, "/v1/admin/payouts/batch-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["transactions"], 1)

	w = doRequest(r, http.MethodGet, "/v1/admin/payouts/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadStatementHandler(t *testing.T) {
	t.Run("xlsx attachment", func(t *testing.T) {
		svc := new(MockPayoutService)
		h := NewPayoutHandler(svc)
		r := buildRouter(http.MethodGet, "/v1/admin/payouts/:batchId/statement", h.DownloadStatementHandler, "admin-1", middleware.RoleAdmin)

		batch := sampleBatch()
		f, err := payoutSvc.BuildStatement(batch, "INR")
		require.NoError(t, err)
		svc.On("ExportStatement", mock.Anything, "batch-1").Return(f, payoutSvc.StatementFilename(batch), nil)

		w := doRequest(r, http.MethodGet, "/v1/admin/payouts/batch-1/statement", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=")
		assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

		book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
		require.NoError(t, err)
		defer book.Close()
		assert.NotEmpty(t, book.GetSheetList())
	})

	t.Run("unknown batch", func(t *testing.T) {
		svc := new(MockPayoutService)
		h := NewPayoutHandler(svc)
		r := buildRouter(http.MethodGet, "/v1/admin/payouts/:batchId/statement", h.DownloadStatementHandler, "admin-1", middleware.RoleAdmin)
		svc.On("ExportStatement", mock.Anything, "nope").Return(nil, "", apperrors.NotFound("Payout batch", "nope"))

		w := doRequest(r, http.MethodGet, "/v1/admin/payouts/nope/statement", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestStatementURLHandler(t *testing.T) {
	t.Run("default ttl", func(t *testing.T) {
		svc := new(MockPayoutService)
		h := NewPayoutHandler(svc)
		r := buildRouter(http.MethodGet, "/v1/admin/payouts/:batchId/statement/url", h.StatementURLHandler, "admin-1", middleware.RoleAdmin)
		svc.On("StatementURL", mock.Anything, "batch-1", 15*time.Minute).Return("https://statements.example/batch-1.xlsx?sig=1", nil)

		w := doRequest(r, http.MethodGet, "/v1/admin/payouts/batch-1/statement/url", nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "https://statements.example/batch-1.xlsx?sig=1", body["url"])
		assert.Equal(t, float64(900), body["expiresIn"])
	})

	t.Run("custom ttl", func(t *testing.T) {
		svc := new(MockPayoutService)
		h := NewPayoutHandler(svc)
		r := buildRouter(http.MethodGet, "/v1/admin/payouts/:batchId/statement/url", h.StatementURLHandler, "admin-1", middleware.RoleAdmin)
		svc.On("StatementURL", mock.Anything, "batch-1", time.Hour).Return("https://statements.example/x", nil)

		w := doRequest(r, http.MethodGet, "/v1/admin/payouts/batch-1/statement/url?ttl=1h", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(3600), decodeBody(t, w)["expiresIn"])
	})

	for _, ttl := range []string{"soon", "-5m", "0s", "48h"} {
		t.Run("invalid ttl "+ttl, func(t *testing.T) {
			svc := new(MockPayoutService)
			h := NewPayoutHandler(svc)
			r := buildRouter(http.MethodGet, "/v1/admin/payouts/:batchId/statement/url", h.StatementURLHandler, "admin-1", middleware.RoleAdmin)

			w := doRequest(r, http.MethodGet, "/v1/admin/payouts/batch-1/statement/url?ttl="+ttl, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			svc.AssertNotCalled(t, "StatementURL", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
