package handlers

import (
	"context"
	"net/http"

	walletSvc "github.com/KidRide/kidride-backend/models/wallet/service"
	"github.com/KidRide/kidride-backend/types"
	"github.com/gin-gonic/gin"
)

// WalletServiceInterface defines the methods used by WalletHandler,
// allowing the handler to be tested with mocks.
type WalletServiceInterface interface {
	GetWallet(ctx context.Context, driverID string) (*types.DriverWallet, error)
	ListTransactions(ctx context.Context, driverID string, filter walletSvc.TransactionFilter) ([]types.WalletTransaction, error)
}

// Ensure the concrete service satisfies the interface at compile time.
var _ WalletServiceInterface = (*walletSvc.WalletService)(nil)

type WalletHandler struct {
	walletService WalletServiceInterface
}

func NewWalletHandler(walletService WalletServiceInterface) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// GetWalletHandler returns a driver's wallet with its ledger entries.
// @Summary Get a driver wallet
// @Tags wallets
// @Produce json
// @Param driverId path string true "Driver ID"
// @Success 200 {object} types.DriverWallet "Wallet with ledger entries"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 404 {object} middleware.ErrorResponse "Not found"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /drivers/{driverId}/wallet [get]
// @Security BearerAuth
func (h *WalletHandler) GetWalletHandler(c *gin.Context) {
	driverID := c.Param("driverId")
	if !allowOwnerOrAdmin(c, driverID) {
		return
	}

	wallet, err := h.walletService.GetWallet(c.Request.Context(), driverID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

// ListTransactionsHandler lists wallet entries, optionally filtered by
// ?status=pending|completed and ?type=upfront_earning|balance_earning|payout.
// @Summary List wallet entries
// @Tags wallets
// @Produce json
// @Param driverId path string true "Driver ID"
// @Param status query string false "pending or completed"
// @Param type query string false "upfront_earning, balance_earning or payout"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]interface{} "Entries with paging"
// @Failure 400 {object} middleware.ErrorResponse "Bad request - Invalid input data"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /drivers/{driverId}/wallet/transactions [get]
// @Security BearerAuth
func (h *WalletHandler) ListTransactionsHandler(c *gin.Context) {
	driverID := c.Param("driverId")
	if !allowOwnerOrAdmin(c, driverID) {
		return
	}

	filter := walletSvc.TransactionFilter{
		Status: types.WalletTransactionStatus(c.Query("status")),
		Type:   types.WalletTransactionType(c.Query("type")),
	}
	txs, err := h.walletService.ListTransactions(c.Request.Context(), driverID, filter)
	if err != nil {
		_ = c.Error(err)
		return
	}

	params := getPaginationParams(c, 50, 0)
	total := len(txs)
	start := params.Offset
	if start > total {
		start = total
	}
	end := start + params.Limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"data": txs[start:end],
		"pagination": gin.H{
			"limit":  params.Limit,
			"offset": params.Offset,
			"total":  total,
		},
	})
}
