package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KidRide/kidride-backend/config"
	"github.com/KidRide/kidride-backend/internal/notification"
	"github.com/KidRide/kidride-backend/logger"
	"github.com/KidRide/kidride-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func TestWorkerPool_SubmitAndExecute(t *testing.T) {
	resetWorkerPoolMetricsForTesting()
	pool := NewWorkerPool(config.WorkerPoolConfig{MaxWorkers: 2, QueueSize: 10})
	pool.Start()
	defer pool.Shutdown(context.Background())

	done := make(chan struct{})
	require.True(t, pool.Submit(Job{
		Name:    "test-job",
		Execute: func(ctx context.Context) error { close(done); return nil },
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not execute")
	}
}

func TestWorkerPool_ShutdownDrainsQueue(t *testing.T) {
	resetWorkerPoolMetricsForTesting()
	pool := NewWorkerPool(config.WorkerPoolConfig{MaxWorkers: 1, QueueSize: 10})
	pool.Start()

	var executed int32
	for i := 0; i < 5; i++ {
		require.True(t, pool.Submit(Job{Name: "drain", Execute: func(ctx context.Context) error {
			atomic.AddInt32(&executed, 1)
			return nil
		}}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))
	assert.Equal(t, int32(5), atomic.LoadInt32(&executed))
	assert.False(t, pool.IsRunning())

	// submitting after shutdown must not panic
	assert.False(t, pool.Submit(Job{Name: "late", Execute: func(context.Context) error { return nil }}))
	assert.NoError(t, pool.Shutdown(context.Background()))
}

func TestWorkerPool_QueueFull(t *testing.T) {
	resetWorkerPoolMetricsForTesting()
	pool := NewWorkerPool(config.WorkerPoolConfig{MaxWorkers: 1, QueueSize: 1})

	// not started: the single slot fills and the next job is dropped
	assert.True(t, pool.Submit(Job{Name: "a", Execute: func(context.Context) error { return nil }}))
	assert.False(t, pool.Submit(Job{Name: "b", Execute: func(context.Context) error { return nil }}))
	assert.Equal(t, 1, pool.QueueDepth())
}

func TestWorkerPool_SurvivesPanicsAndErrors(t *testing.T) {
	resetWorkerPoolMetricsForTesting()
	pool := NewWorkerPool(config.WorkerPoolConfig{MaxWorkers: 1, QueueSize: 10})
	pool.Start()

	var wg sync.WaitGroup
	wg.Add(3)
	pool.Submit(Job{Name: "panics", Execute: func(context.Context) error { defer wg.Done(); panic("boom") }})
	pool.Submit(Job{Name: "fails", Execute: func(context.Context) error { defer wg.Done(); return errors.New("nope") }})
	pool.Submit(Job{Name: "ok", Execute: func(context.Context) error { defer wg.Done(); return nil }})
	wg.Wait()

	require.NoError(t, pool.Shutdown(context.Background()))
}

type recordingNotifier struct {
	mu    sync.Mutex
	kinds []types.NotificationKind
	done  chan struct{}
}

func (r *recordingNotifier) Notify(_ context.Context, _ string, kind types.NotificationKind, _ map[string]interface{}) error {
	r.mu.Lock()
	r.kinds = append(r.kinds, kind)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func TestAsyncNotifier(t *testing.T) {
	resetWorkerPoolMetricsForTesting()
	pool := NewWorkerPool(config.WorkerPoolConfig{MaxWorkers: 1, QueueSize: 4})
	pool.Start()

	rec := &recordingNotifier{done: make(chan struct{}, 1)}
	n := NewAsyncNotifier(pool, rec)
	require.NoError(t, n.Notify(context.Background(), "parent-1", types.NotifyBudgetWarning, nil))

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
	assert.Equal(t, []types.NotificationKind{types.NotifyBudgetWarning}, rec.kinds)

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.Error(t, n.Notify(context.Background(), "parent-1", types.NotifyBudgetWarning, nil))
}

func TestNewNotifier(t *testing.T) {
	_, isLog := NewNotifier(&config.NotificationConfig{Enabled: false}).(notification.LogNotifier)
	assert.True(t, isLog)

	_, isClient := NewNotifier(&config.NotificationConfig{Enabled: true, APIUrl: "http://n", APIKey: "k"}).(*notification.Client)
	assert.True(t, isClient)
}
