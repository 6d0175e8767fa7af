package config

import "time"

// Default paths
const (
	// DefaultDatabasePath is the default path for the document store database
	DefaultDatabasePath = "./chasquifx.db"

	// DefaultDataDir is the default root of the raw snapshot directory tree
	// (flights/, forex/, geo/ subdirectories)
	DefaultDataDir = "./data"
)

// Cache horizons per dataset. Flight results go stale fast; forex quotes a
// bit slower; geo reference data never expires.
const (
	FlightTTL = 24 * time.Hour
	ForexTTL  = 12 * time.Hour
)
