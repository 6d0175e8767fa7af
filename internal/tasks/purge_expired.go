package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// ExpiredPurger deletes documents whose TTL has elapsed.
type ExpiredPurger interface {
	DeleteExpired(now time.Time) (int64, error)
}

// PurgeExpiredTask removes flight and forex documents past their expiry time.
type PurgeExpiredTask struct{}

// Config returns the queue configuration for purge tasks.
func (t PurgeExpiredTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "purge_expired",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PurgeExpiredProcessor creates a processor function for PurgeExpiredTask.
func PurgeExpiredProcessor(purger ExpiredPurger) backlite.QueueProcessor[PurgeExpiredTask] {
	return func(ctx context.Context, task PurgeExpiredTask) error {
		if purger == nil {
			return fmt.Errorf("expired purger not configured")
		}

		deleted, err := purger.DeleteExpired(time.Now())
		if err != nil {
			return fmt.Errorf("purge expired documents: %w", err)
		}

		log.Printf("[TASK] Purged %d expired documents", deleted)
		return nil
	}
}

// NewPurgeExpiredQueue creates a backlite queue for purge tasks.
func NewPurgeExpiredQueue(purger ExpiredPurger) backlite.Queue {
	return backlite.NewQueue(PurgeExpiredProcessor(purger))
}
