package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/KidRide/kidride-backend/logger"
	"github.com/KidRide/kidride-backend/types"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func TestRedisPublisher_Publish(t *testing.T) {
	resetMetricsForTesting()
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	event := types.PaymentEvent{
		ID:            "evt-1",
		Type:          types.EventUpfrontPaid,
		TransactionID: "pay-1",
		BookingID:     "booking-1",
		Amount:        2500,
		Status:        string(types.PaymentStatusUpfrontPaid),
		Timestamp:     ts,
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	t.Run("booking channel", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectPublish("payments:booking:booking-1", data).SetVal(1)

		require.NoError(t, NewRedisPublisher(rdb).Publish(ctx, event))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fills timestamp", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		p := NewRedisPublisher(rdb)
		p.nowFn = func() time.Time { return ts }

		batchEvent := types.PaymentEvent{ID: "evt-2", Type: types.EventPayoutBatchDone, BatchID: "batch-1"}
		stamped := batchEvent
		stamped.Timestamp = ts
		want, err := json.Marshal(stamped)
		require.NoError(t, err)
		mock.ExpectPublish("payments:payouts", want).SetVal(0)

		require.NoError(t, p.Publish(ctx, batchEvent))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis error", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectPublish("payments:booking:booking-1", data).SetErr(errors.New("connection refused"))

		err := NewRedisPublisher(rdb).Publish(ctx, event)
		assert.ErrorContains(t, err, "redis publish")
	})

	t.Run("missing type", func(t *testing.T) {
		rdb, _ := redismock.NewClientMock()
		err := NewRedisPublisher(rdb).Publish(ctx, types.PaymentEvent{BookingID: "b"})
		assert.Error(t, err)
	})
}

func TestChannelFor(t *testing.T) {
	assert.Equal(t, "payments:booking:b1", ChannelFor(types.PaymentEvent{BookingID: "b1"}))
	assert.Equal(t, "payments:payouts", ChannelFor(types.PaymentEvent{BatchID: "x"}))
}
