package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	apperrors "github.com/KidRide/kidride-backend/errors"
	"github.com/KidRide/kidride-backend/middleware"
	walletSvc "github.com/KidRide/kidride-backend/models/wallet/service"
	"github.com/KidRide/kidride-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func walletEntries(n int) []types.WalletTransaction {
	txs := make([]types.WalletTransaction, n)
	for i := range txs {
		txs[i] = types.WalletTransaction{
			ID:       fmt.Sprintf("wt-%d", i),
			DriverID: "driver-1",
			Amount:   1000,
			Type:     types.WalletTxUpfrontEarning,
			Status:   types.WalletTxPending,
			Date:     time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		}
	}
	return txs
}

func TestGetWalletHandler(t *testing.T) {
	t.Run("driver reads own wallet", func(t *testing.T) {
		svc := new(MockWalletService)
		h := NewWalletHandler(svc)
		r := buildRouter(http.MethodGet, "/v1/drivers/:driverId/wallet", h.GetWalletHandler, "driver-1", middleware.RoleDriver)
		svc.On("GetWallet", mock.Anything, "driver-1").Return(&types.DriverWallet{
			DriverID:       "driver-1",
			TotalEarnings:  1808,
			PendingPayouts: 1808,
			Transactions:   walletEntries(1),
		}, nil)

		w := doRequest(r, http.MethodGet, "/v1/drivers/driver-1/wallet", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(1808), body["pendingPayouts"])
		svc.AssertExpectations(t)
	})

	t.Run("other driver", func(t *testing.T) {
		svc := new(MockWalletService)
		h := NewWalletHandler(svc)
		r := buildRouter(http.MethodGet, "/v1/drivers/:driverId/wallet", h.GetWalletHandler, "driver-2", middleware.RoleDriver)

		w := doRequest(r, http.MethodGet, "/v1/drivers/driver-1/wallet", nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		svc.AssertNotCalled(t, "GetWallet", mock.Anything, mock.Anything)
	})

	t.Run("admin missing wallet", func(t *testing.T) {
		svc := new(MockWalletService)
		h := NewWalletHandler(svc)
		r := buildRouter(http.MethodGet, "/v1/drivers/:driverId/wallet", h.GetWalletHandler, "admin-1", middleware.RoleAdmin)
		svc.On("GetWallet", mock.Anything, "driver-9").Return(nil, apperrors.NotFound("Wallet", "driver-9"))

		w := doRequest(r, http.MethodGet, "/v1/drivers/driver-9/wallet", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListTransactionsHandler(t *testing.T) {
	t.Run("filters and paginates", func(t *testing.T) {
		svc := new(MockWalletService)
		h := NewWalletHandler(svc)
		r := buildRouter(http.MethodGet, "/v1/drivers/:driverId/wallet/transactions", h.ListTransactionsHandler, "driver-1", middleware.RoleDriver)
		filter := walletSvc.TransactionFilter{Status: types.WalletTxPending}
		svc.On("ListTransactions", mock.Anything, "driver-1", filter).Return(walletEntries(5), nil)

		w := doRequest(r, http.MethodGet, "/v1/drivers/driver-1/wallet/transactions?status=pending&limit=2&offset=3", nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		data := body["data"].([]interface{})
		require.Len(t, data, 2)
		assert.Equal(t, "wt-3", data[0].(map[string]interface{})["id"])
		pagination := body["pagination"].(map[string]interface{})
		assert.Equal(t, float64(5), pagination["total"])
		svc.AssertExpectations(t)
	})

	t.Run("offset past end", func(t *testing.T) {
		svc := new(MockWalletService)
		h := NewWalletHandler(svc)
		r := buildRouter(http.MethodGet, "/v1/drivers/:driverId/wallet/transactions", h.ListTransactionsHandler, "admin-1", middleware.RoleAdmin)
		svc.On("ListTransactions", mock.Anything, "driver-1", walletSvc.TransactionFilter{}).Return(walletEntries(2), nil)

		w := doRequest(r, http.MethodGet, "/v1/drivers/driver-1/wallet/transactions?offset=10", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decodeBody(t, w)["data"])
	})

	t.Run("bad filter", func(t *testing.T) {
		svc := new(MockWalletService)
		h := NewWalletHandler(svc)
		r := buildRouter(http.MethodGet, "/v1/drivers/:driverId/wallet/transactions", h.ListTransactionsHandler, "driver-1", middleware.RoleDriver)
		filter := walletSvc.TransactionFilter{Type: "refund"}
		svc.On("ListTransactions", mock.Anything, "driver-1", filter).
			Return(nil, apperrors.ValidationFailed("invalid filter", "unknown type refund"))

		w := doRequest(r, http.MethodGet, "/v1/drivers/driver-1/wallet/transactions?type=refund", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
