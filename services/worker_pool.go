// Package services holds cross-cutting services shared by the payment
// components: notification dispatch, admin e-mail, rate limiting and health.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KidRide/kidride-backend/config"
	"github.com/KidRide/kidride-backend/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const defaultJobTimeout = 30 * time.Second

// Job represents a unit of work for the worker pool.
type Job struct {
	// Name is a descriptive name for logging purposes
	Name    string
	Execute func(ctx context.Context) error
}

// WorkerPool runs jobs on a bounded set of workers. Used for side effects
// that must not hold up a committed ledger write.
type WorkerPool struct {
	jobQueue chan Job
	wg       sync.WaitGroup
	logger   *zap.SugaredLogger
	metrics  *workerPoolMetrics
	config   config.WorkerPoolConfig
	mu       sync.RWMutex
	running  bool
	closed   bool
}

type workerPoolMetrics struct {
	queueDepth    prometheus.Gauge
	activeWorkers prometheus.Gauge
	completedJobs prometheus.Counter
	droppedJobs   prometheus.Counter
	errorCount    prometheus.Counter
	jobDuration   prometheus.Histogram
}

var (
	wpMetricsInstance *workerPoolMetrics
	wpMetricsOnce     sync.Once
	wpDefaultRegistry = prometheus.DefaultRegisterer
)

func newWorkerPoolMetrics() *workerPoolMetrics {
	wpMetricsOnce.Do(func() {
		wpMetricsInstance = &workerPoolMetrics{
			queueDepth: promauto.With(wpDefaultRegistry).NewGauge(prometheus.GaugeOpts{
				Name: "dispatch_worker_pool_queue_depth",
				Help: "Jobs waiting in the dispatch queue",
			}),
			activeWorkers: promauto.With(wpDefaultRegistry).NewGauge(prometheus.GaugeOpts{
				Name: "dispatch_worker_pool_active_workers",
				Help: "Workers currently executing a job",
			}),
			completedJobs: promauto.With(wpDefaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "dispatch_worker_pool_completed_jobs_total",
				Help: "Jobs executed, successful or not",
			}),
			droppedJobs: promauto.With(wpDefaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "dispatch_worker_pool_dropped_jobs_total",
				Help: "Jobs dropped because the queue was full or the pool stopped",
			}),
			errorCount: promauto.With(wpDefaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "dispatch_worker_pool_errors_total",
				Help: "Jobs that returned an error or panicked",
			}),
			jobDuration: promauto.With(wpDefaultRegistry).NewHistogram(prometheus.HistogramOpts{
				Name:    "dispatch_worker_pool_job_duration_seconds",
				Help:    "Time taken to execute jobs",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			}),
		}
	})
	return wpMetricsInstance
}

// resetWorkerPoolMetricsForTesting resets the metrics singleton for test isolation.
func resetWorkerPoolMetricsForTesting() {
	wpDefaultRegistry = prometheus.NewRegistry()
	wpMetricsInstance = nil
	wpMetricsOnce = sync.Once{}
}

// NewWorkerPool creates a pool. Call Start before submitting.
func NewWorkerPool(cfg config.WorkerPoolConfig) *WorkerPool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	return &WorkerPool{
		jobQueue: make(chan Job, cfg.QueueSize),
		logger:   logger.GetLogger().Named("worker-pool"),
		metrics:  newWorkerPoolMetrics(),
		config:   cfg,
	}
}

// Start launches the workers. Calling it again is a no-op.
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.running || wp.closed {
		return
	}
	wp.running = true

	wp.logger.Infow("Starting worker pool",
		"maxWorkers", wp.config.MaxWorkers,
		"queueSize", wp.config.QueueSize)

	for i := 0; i < wp.config.MaxWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	// Drain whatever is queued, then exit when the queue closes.
	for job := range wp.jobQueue {
		wp.executeJob(id, job)
	}
}

func (wp *WorkerPool) executeJob(workerID int, job Job) {
	wp.metrics.activeWorkers.Inc()
	wp.metrics.queueDepth.Dec()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			wp.logger.Errorw("Job panicked", "job", job.Name, "workerId", workerID, "panic", r)
			wp.metrics.errorCount.Inc()
		}
		wp.metrics.jobDuration.Observe(time.Since(start).Seconds())
		wp.metrics.completedJobs.Inc()
		wp.metrics.activeWorkers.Dec()
	}()

	jobCtx, cancel := context.WithTimeout(context.Background(), defaultJobTimeout)
	defer cancel()

	if err := job.Execute(jobCtx); err != nil {
		wp.logger.Errorw("Job execution failed",
			"job", job.Name,
			"workerId", workerID,
			"error", err,
			"duration", time.Since(start))
		wp.metrics.errorCount.Inc()
		return
	}
	wp.logger.Debugw("Job completed", "job", job.Name, "workerId", workerID, "duration", time.Since(start))
}

// Submit queues a job without blocking. It returns false when the queue is
// full or the pool has been shut down.
func (wp *WorkerPool) Submit(job Job) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		wp.metrics.droppedJobs.Inc()
		wp.logger.Warnw("Job dropped - pool stopped", "job", job.Name)
		return false
	}

	select {
	case wp.jobQueue <- job:
		wp.metrics.queueDepth.Inc()
		return true
	default:
		wp.metrics.droppedJobs.Inc()
		wp.logger.Warnw("Job dropped - queue full", "job", job.Name, "queueSize", wp.config.QueueSize)
		return false
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish.
// Returns ctx.Err() if ctx expires first.
func (wp *WorkerPool) Shutdown(ctx context.Context) error {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return nil
	}
	wp.closed = true
	wasRunning := wp.running
	wp.running = false
	close(wp.jobQueue)
	wp.mu.Unlock()

	if !wasRunning {
		return nil
	}

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.logger.Info("Worker pool shutdown complete")
		return nil
	case <-ctx.Done():
		wp.logger.Warn("Worker pool shutdown timed out - some jobs may still be running")
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}

// QueueDepth returns the number of jobs waiting in the queue.
func (wp *WorkerPool) QueueDepth() int {
	return len(wp.jobQueue)
}

func (wp *WorkerPool) IsRunning() bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return wp.running
}
