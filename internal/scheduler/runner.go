// Package scheduler runs the periodic sweeps inside the API process. Every
// tick is an independent run of an idempotent sweep; nothing is carried
// between ticks, so a restart loses no work.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/KidRide/kidride-backend/logger"
	"go.uber.org/zap"
)

// Task is one periodic sweep.
type Task struct {
	Name     string
	Interval time.Duration
	// RunOnStart runs the task once immediately instead of waiting a full interval.
	RunOnStart bool
	Run        func(ctx context.Context) error
}

type Runner struct {
	tasks []Task
	log   *zap.SugaredLogger
	wg    sync.WaitGroup
}

func NewRunner(tasks ...Task) *Runner {
	return &Runner{
		tasks: tasks,
		log:   logger.GetLogger().Named("scheduler"),
	}
}

// Start launches one goroutine per task. They stop when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	for _, task := range r.tasks {
		if task.Interval <= 0 || task.Run == nil {
			r.log.Warnw("Skipping scheduled task with no interval or body", "task", task.Name)
			continue
		}
		r.wg.Add(1)
		go r.loop(ctx, task)
	}
	r.log.Infow("Scheduler started", "tasks", len(r.tasks))
}

// Wait blocks until every task loop has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, task Task) {
	defer r.wg.Done()

	if task.RunOnStart {
		r.runOnce(ctx, task)
	}

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Infow("Scheduled task stopped", "task", task.Name)
			return
		case <-ticker.C:
			r.runOnce(ctx, task)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, task Task) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.log.Errorw("Scheduled task panicked", "task", task.Name, "panic", p)
		}
	}()

	if err := task.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.log.Errorw("Scheduled task failed", "task", task.Name, "error", err, "duration", time.Since(start))
		return
	}
	r.log.Debugw("Scheduled task finished", "task", task.Name, "duration", time.Since(start))
}
