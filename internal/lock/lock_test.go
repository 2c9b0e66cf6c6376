package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("acquire and release", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.Regexp().ExpectSetNX("lock:sweep:reminders", `.+`, time.Minute).SetVal(true)

		lease, err := NewRedisLocker(rdb).Acquire(ctx, "sweep:reminders", time.Minute)
		require.NoError(t, err)

		token := lease.(*redisLease).token
		mock.ExpectEval(releaseScript, []string{"lock:sweep:reminders"}, token).SetVal(int64(1))
		require.NoError(t, lease.Release(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("held elsewhere", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.Regexp().ExpectSetNX("lock:payout:driver:d1", `.+`, time.Minute).SetVal(false)

		_, err := NewRedisLocker(rdb).Acquire(ctx, "payout:driver:d1", time.Minute)
		assert.ErrorIs(t, err, ErrNotAcquired)
	})

	t.Run("redis down", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.Regexp().ExpectSetNX("lock:sweep:payouts", `.+`, time.Minute).SetErr(errors.New("connection refused"))

		_, err := NewRedisLocker(rdb).Acquire(ctx, "sweep:payouts", time.Minute)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotAcquired)
	})
}

func TestMemoryLocker(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLocker()
	l.nowFn = func() time.Time { return now }

	first, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	// expired leases can be taken over, and the stale holder cannot release the new one
	now = now.Add(2 * time.Minute)
	second, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.NoError(t, first.Release(ctx))
	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, second.Release(ctx))
	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.NoError(t, err)
}
