package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitService_CheckLimit(t *testing.T) {
	ctx := context.Background()
	window := time.Minute

	t.Run("under limit", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		svc := NewRateLimitService(rdb)

		mock.ExpectTxPipeline()
		mock.ExpectIncr("rate_limit:pay:parent-1").SetVal(3)
		mock.ExpectExpireNX("rate_limit:pay:parent-1", window).SetVal(false)
		mock.ExpectTxPipelineExec()

		allowed, retry, err := svc.CheckLimit(ctx, "pay:parent-1", 5, window)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Zero(t, retry)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("over limit returns ttl", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		svc := NewRateLimitService(rdb)

		mock.ExpectTxPipeline()
		mock.ExpectIncr("rate_limit:pay:parent-1").SetVal(6)
		mock.ExpectExpireNX("rate_limit:pay:parent-1", window).SetVal(false)
		mock.ExpectTxPipelineExec()
		mock.ExpectTTL("rate_limit:pay:parent-1").SetVal(42 * time.Second)

		allowed, retry, err := svc.CheckLimit(ctx, "pay:parent-1", 5, window)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, 42*time.Second, retry)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis error", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		svc := NewRateLimitService(rdb)

		mock.ExpectTxPipeline()
		mock.ExpectIncr("rate_limit:pay:parent-1").SetErr(assert.AnError)

		_, _, err := svc.CheckLimit(ctx, "pay:parent-1", 5, window)
		assert.Error(t, err)
	})
}
