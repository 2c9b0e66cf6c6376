package services

import (
	"context"
	"fmt"
	"time"

	"github.com/KidRide/kidride-backend/config"
	"github.com/KidRide/kidride-backend/internal/notification"
	"github.com/KidRide/kidride-backend/logger"
	"github.com/KidRide/kidride-backend/types"
)

// NewNotifier returns the facade client when notifications are enabled and
// a log-only notifier otherwise.
func NewNotifier(cfg *config.NotificationConfig) notification.Notifier {
	log := logger.GetLogger()
	if !cfg.Enabled {
		log.Info("Notification facade disabled, notifications will be logged only")
		return notification.LogNotifier{}
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return notification.NewClient(cfg.APIUrl, cfg.APIKey, notification.WithTimeout(timeout))
}

// AsyncNotifier hands notifications to the worker pool and returns at once.
// Used for budget alerts, which are sent after the expense has committed.
type AsyncNotifier struct {
	pool     *WorkerPool
	notifier notification.Notifier
}

var _ notification.Notifier = (*AsyncNotifier)(nil)

func NewAsyncNotifier(pool *WorkerPool, notifier notification.Notifier) *AsyncNotifier {
	return &AsyncNotifier{pool: pool, notifier: notifier}
}

// Notify returns an error only if the job could not be queued.
func (a *AsyncNotifier) Notify(_ context.Context, recipientID string, kind types.NotificationKind, payload map[string]interface{}) error {
	ok := a.pool.Submit(Job{
		Name: fmt.Sprintf("notify:%s:%s", kind, recipientID),
		Execute: func(ctx context.Context) error {
			return a.notifier.Notify(ctx, recipientID, kind, payload)
		},
	})
	if !ok {
		return fmt.Errorf("notification %s for %s dropped: dispatch queue unavailable", kind, recipientID)
	}
	return nil
}
