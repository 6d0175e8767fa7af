package entities

// DatasetStats counts outcomes for a single dataset within one import run.
// Total = Success + Skipped + Errors once a run finishes.
type DatasetStats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// ImportStats aggregates per-dataset counters for one run.
type ImportStats struct {
	Flights DatasetStats `json:"flights"`
	Forex   DatasetStats `json:"forex"`
	Geo     DatasetStats `json:"geo"`
}

// Dataset returns the mutable counter block for the given dataset.
func (s *ImportStats) Dataset(d Dataset) *DatasetStats {
	switch d {
	case DatasetFlights:
		return &s.Flights
	case DatasetForex:
		return &s.Forex
	case DatasetGeo:
		return &s.Geo
	default:
		return &DatasetStats{}
	}
}

// TotalErrors sums error counts across all datasets.
func (s *ImportStats) TotalErrors() int {
	return s.Flights.Errors + s.Forex.Errors + s.Geo.Errors
}
