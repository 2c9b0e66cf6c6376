package services

import (
	"context"
	"testing"
	"time"

	"github.com/KidRide/kidride-backend/config"
	"github.com/KidRide/kidride-backend/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEmailSender struct {
	mock.Mock
}

func (m *mockEmailSender) SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resend.SendEmailResponse), args.Error(1)
}

func newTestEmailService(t *testing.T, cfg *config.EmailConfig) (*EmailService, *mockEmailSender) {
	t.Helper()
	svc := NewEmailServiceWithRegistry(cfg, "INR", prometheus.NewRegistry())
	sender := &mockEmailSender{}
	svc.sender = sender
	return svc, sender
}

func failedBatch() *types.PayoutBatch {
	return &types.PayoutBatch{
		ID:          "batch-1",
		Status:      types.PayoutBatchFailed,
		Trigger:     types.PayoutTriggerScheduled,
		TotalAmount: 5000,
		CreatedAt:   time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		Transactions: []types.PayoutTransaction{
			{DriverID: "driver-1", Amount: 5000, Status: types.PayoutTxCompleted},
			{DriverID: "driver-2", Amount: 1250, Status: types.PayoutTxFailed, ErrorMessage: "bank account rejected transfer"},
		},
	}
}

func TestSendPayoutFailureAlert(t *testing.T) {
	cfg := &config.EmailConfig{
		FromName:     "KidRide Payouts",
		FromAddress:  "payouts@kidride.app",
		AdminAddress: "finance@kidride.app",
		ResendAPIKey: "re_test",
	}

	t.Run("sends table of failed transfers", func(t *testing.T) {
		svc, sender := newTestEmailService(t, cfg)
		sender.On("SendWithContext", mock.Anything, mock.MatchedBy(func(req *resend.SendEmailRequest) bool {
			return req.To[0] == "finance@kidride.app" &&
				assert.Contains(t, req.Html, "driver-2") &&
				assert.Contains(t, req.Html, "INR 12.50") &&
				assert.NotContains(t, req.Html, "<td>driver-1</td>") &&
				assert.Contains(t, req.Subject, "1 transfer(s) failed")
		})).Return(&resend.SendEmailResponse{Id: "email-1"}, nil)

		require.NoError(t, svc.SendPayoutFailureAlert(context.Background(), failedBatch()))
		sender.AssertExpectations(t)
	})

	t.Run("send error is returned", func(t *testing.T) {
		svc, sender := newTestEmailService(t, cfg)
		sender.On("SendWithContext", mock.Anything, mock.Anything).Return(nil, assert.AnError)

		err := svc.SendPayoutFailureAlert(context.Background(), failedBatch())
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("no failures sends nothing", func(t *testing.T) {
		svc, sender := newTestEmailService(t, cfg)
		batch := failedBatch()
		batch.Transactions = batch.Transactions[:1]

		require.NoError(t, svc.SendPayoutFailureAlert(context.Background(), batch))
		sender.AssertNotCalled(t, "SendWithContext", mock.Anything, mock.Anything)
	})

	t.Run("no admin address", func(t *testing.T) {
		noAdmin := *cfg
		noAdmin.AdminAddress = ""
		svc, sender := newTestEmailService(t, &noAdmin)

		require.NoError(t, svc.SendPayoutFailureAlert(context.Background(), failedBatch()))
		sender.AssertNotCalled(t, "SendWithContext", mock.Anything, mock.Anything)
	})
}
