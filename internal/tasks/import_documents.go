package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/luisvinatea/ChasquiFX-sub002/internal/entities"
)

// DocumentImporter runs a full import sweep over the data directory.
type DocumentImporter interface {
	ImportAll() (*entities.ImportStats, error)
}

// ImportDocumentsTask ingests every snapshot under the data directory.
type ImportDocumentsTask struct{}

// Config returns the queue configuration for import tasks. A single attempt:
// the importer already isolates per-file failures, and the next scheduled run
// picks up anything left behind.
func (t ImportDocumentsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import_documents",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ImportDocumentsProcessor creates a processor function for ImportDocumentsTask.
func ImportDocumentsProcessor(imp DocumentImporter) backlite.QueueProcessor[ImportDocumentsTask] {
	return func(ctx context.Context, task ImportDocumentsTask) error {
		if imp == nil {
			return fmt.Errorf("document importer not configured")
		}

		stats, err := imp.ImportAll()
		if err != nil {
			return fmt.Errorf("import documents: %w", err)
		}

		log.Printf("[TASK] Import finished: flights %d/%d, forex %d/%d, geo %d/%d (errors: %d)",
			stats.Flights.Success, stats.Flights.Total,
			stats.Forex.Success, stats.Forex.Total,
			stats.Geo.Success, stats.Geo.Total,
			stats.TotalErrors())
		return nil
	}
}

// NewImportDocumentsQueue creates a backlite queue for import tasks.
func NewImportDocumentsQueue(imp DocumentImporter) backlite.Queue {
	return backlite.NewQueue(ImportDocumentsProcessor(imp))
}
