package entities

import (
	"time"

	"gorm.io/datatypes"
)

// Dataset identifies one of the snapshot corpora handled by the pipeline.
// The value doubles as the subdirectory name under the data directory and
// as the store collection name.
type Dataset string

const (
	DatasetFlights Dataset = "flights"
	DatasetForex   Dataset = "forex"
	DatasetGeo     Dataset = "geo"
)

// AllDatasets lists datasets in import order.
var AllDatasets = []Dataset{DatasetFlights, DatasetForex, DatasetGeo}

// ParseMethod records how a snapshot was decoded.
type ParseMethod string

const (
	ParseMethodFull     ParseMethod = "full"
	ParseMethodFallback ParseMethod = "fallback"
)

// Document is one stored snapshot record. The canonical identity lives in
// Collection+Key; the normalized payload lives in Body as JSON. Columns
// mirror the body fields the pipeline looks up or sweeps on.
type Document struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Collection   string         `gorm:"index:idx_documents_collection_key;size:64" json:"collection"`
	Key          string         `gorm:"index:idx_documents_collection_key;size:256" json:"key"`
	Source       string         `gorm:"size:512" json:"source"` // originating snapshot filename
	ParseMethod  ParseMethod    `gorm:"size:16" json:"parse_method"`
	Body         datatypes.JSON `gorm:"type:text" json:"body"`
	DateImported time.Time      `gorm:"index" json:"date_imported"`
	ExpiresAt    *time.Time     `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (Document) TableName() string {
	return "documents"
}
