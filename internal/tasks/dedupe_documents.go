package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/luisvinatea/ChasquiFX-sub002/internal/dedupe"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/entities"
)

// DocumentReconciler collapses duplicate documents within a collection.
type DocumentReconciler interface {
	Reconcile(collection string, spec dedupe.KeySpec, dryRun bool) (dedupe.Result, []dedupe.Group, error)
}

// DedupeDocumentsTask reconciles duplicates in one collection, or in every
// known collection when Collection is empty.
type DedupeDocumentsTask struct {
	Collection string `json:"collection"`
}

// Config returns the queue configuration for dedupe tasks.
func (t DedupeDocumentsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "dedupe_documents",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     10 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// DedupeDocumentsProcessor creates a processor function for DedupeDocumentsTask.
func DedupeDocumentsProcessor(rec DocumentReconciler) backlite.QueueProcessor[DedupeDocumentsTask] {
	return func(ctx context.Context, task DedupeDocumentsTask) error {
		if rec == nil {
			return fmt.Errorf("document reconciler not configured")
		}

		collections := []string{task.Collection}
		if task.Collection == "" {
			collections = collections[:0]
			for _, d := range entities.AllDatasets {
				collections = append(collections, string(d))
			}
		}

		for _, collection := range collections {
			result, _, err := rec.Reconcile(collection, dedupe.DefaultKeySpec(collection), false)
			if err != nil {
				return fmt.Errorf("dedupe %s: %w", collection, err)
			}
			log.Printf("[TASK] Deduped %s: %d groups, %d duplicates removed",
				collection, result.Groups, result.Removed)
		}
		return nil
	}
}

// NewDedupeDocumentsQueue creates a backlite queue for dedupe tasks.
func NewDedupeDocumentsQueue(rec DocumentReconciler) backlite.Queue {
	return backlite.NewQueue(DedupeDocumentsProcessor(rec))
}
