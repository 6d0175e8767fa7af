package entities

import (
	"time"

	"gorm.io/datatypes"
)

type ImportRunStatus string

const (
	ImportRunStatusRunning   ImportRunStatus = "running"
	ImportRunStatusCompleted ImportRunStatus = "completed"
	ImportRunStatusFailed    ImportRunStatus = "failed"
)

// ImportRun is the audit record of one import invocation. Stats holds the
// per-dataset counters as JSON once the run finishes.
type ImportRun struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	RunID      string          `gorm:"uniqueIndex;size:36" json:"run_id"`
	Status     ImportRunStatus `gorm:"size:20" json:"status"`
	DataDir    string          `gorm:"size:1024" json:"data_dir"`
	Stats      datatypes.JSON  `gorm:"type:text" json:"stats,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

func (ImportRun) TableName() string {
	return "import_runs"
}
