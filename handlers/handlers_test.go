package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KidRide/kidride-backend/logger"
	"github.com/KidRide/kidride-backend/middleware"
	budgetSvc "github.com/KidRide/kidride-backend/models/budget/service"
	paymentSvc "github.com/KidRide/kidride-backend/models/payment/service"
	payoutSvc "github.com/KidRide/kidride-backend/models/payout/service"
	walletSvc "github.com/KidRide/kidride-backend/models/wallet/service"
	"github.com/KidRide/kidride-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func init() {
	logger.IsTest = true
}

// buildRouter wraps a handler in a Gin router with the error handler
// middleware and a fake authenticated caller.
func buildRouter(method, path string, handler gin.HandlerFunc, userID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set(string(middleware.UserIDKey), userID)
			c.Set(string(middleware.UserRoleKey), role)
		}
		c.Next()
	})
	r.Handle(method, path, handler)
	return r
}

func doRequest(r *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, url, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) CreateTransaction(ctx context.Context, in paymentSvc.CreateTransactionInput) (*types.PaymentTransaction, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PaymentTransaction), args.Error(1)
}

func (m *MockPaymentService) GetTransaction(ctx context.Context, id string) (*types.PaymentTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PaymentTransaction), args.Error(1)
}

func (m *MockPaymentService) GetTransactionByBooking(ctx context.Context, bookingID string) (*types.PaymentTransaction, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PaymentTransaction), args.Error(1)
}

func (m *MockPaymentService) PayUpfront(ctx context.Context, id string, amount int64, customer types.CustomerInfo) (*types.PaymentTransaction, error) {
	args := m.Called(ctx, id, amount, customer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PaymentTransaction), args.Error(1)
}

func (m *MockPaymentService) PayBalance(ctx context.Context, id string, amount int64, customer types.CustomerInfo) (*types.PaymentTransaction, error) {
	args := m.Called(ctx, id, amount, customer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PaymentTransaction), args.Error(1)
}

func (m *MockPaymentService) Policy() paymentSvc.SplitPolicy {
	return paymentSvc.DefaultSplitPolicy
}

type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) GetWallet(ctx context.Context, driverID string) (*types.DriverWallet, error) {
	args := m.Called(ctx, driverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.DriverWallet), args.Error(1)
}

func (m *MockWalletService) ListTransactions(ctx context.Context, driverID string, filter walletSvc.TransactionFilter) ([]types.WalletTransaction, error) {
	args := m.Called(ctx, driverID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.WalletTransaction), args.Error(1)
}

type MockPayoutService struct {
	mock.Mock
}

func (m *MockPayoutService) RunManualPayout(ctx context.Context, driverIDs []string, triggeredBy string) (payoutSvc.RunResult, error) {
	args := m.Called(ctx, driverIDs, triggeredBy)
	return args.Get(0).(payoutSvc.RunResult), args.Error(1)
}

func (m *MockPayoutService) GetBatch(ctx context.Context, id string) (*types.PayoutBatch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PayoutBatch), args.Error(1)
}

func (m *MockPayoutService) ListBatches(ctx context.Context, limit, offset int) ([]*types.PayoutBatch, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.PayoutBatch), args.Error(1)
}

func (m *MockPayoutService) ExportStatement(ctx context.Context, batchID string) (*excelize.File, string, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*excelize.File), args.String(1), args.Error(2)
}

func (m *MockPayoutService) StatementURL(ctx context.Context, batchID string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, batchID, ttl)
	return args.String(0), args.Error(1)
}

type MockBudgetService struct {
	mock.Mock
}

func (m *MockBudgetService) ConfigureBudget(ctx context.Context, in budgetSvc.BudgetConfigInput) (*types.BudgetLimit, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.BudgetLimit), args.Error(1)
}

func (m *MockBudgetService) GetBudget(ctx context.Context, childID string) (*types.BudgetLimit, error) {
	args := m.Called(ctx, childID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.BudgetLimit), args.Error(1)
}

func (m *MockBudgetService) RecordExpense(ctx context.Context, in budgetSvc.RecordExpenseInput) (*budgetSvc.ExpenseResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*budgetSvc.ExpenseResult), args.Error(1)
}

func (m *MockBudgetService) GetMonthlyExpense(ctx context.Context, childID, month string) (*types.MonthlyExpense, error) {
	args := m.Called(ctx, childID, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.MonthlyExpense), args.Error(1)
}
