// Package recency centralizes the "keep newest" policy: one comparator with
// an ordered list of timestamp sources, shared by the duplicate reconciler
// and the schema migration driver.
package recency

import "time"

// DefaultSources is the priority order of document body fields consulted for
// a document's effective age.
var DefaultSources = []string{"created_at", "date_imported", "processed_at"}

// Timestamp layouts observed across providers and our own stamps.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Comparator resolves a document's best-available timestamp from prioritized
// body fields. Documents with no readable timestamp sort as epoch 0, i.e.
// older than everything.
type Comparator struct {
	Sources []string
}

func NewComparator(sources ...string) Comparator {
	if len(sources) == 0 {
		sources = DefaultSources
	}
	return Comparator{Sources: sources}
}

// BestTimestamp returns the first parseable timestamp among the comparator's
// sources, else the Unix epoch.
func (c Comparator) BestTimestamp(body map[string]any) time.Time {
	for _, field := range c.Sources {
		raw, ok := body[field].(string)
		if !ok || raw == "" {
			continue
		}
		if t, ok := parseTimestamp(raw); ok {
			return t
		}
	}
	return time.Unix(0, 0).UTC()
}

// Newer reports whether a is strictly newer than b.
func (c Comparator) Newer(a, b map[string]any) bool {
	return c.BestTimestamp(a).After(c.BestTimestamp(b))
}

func parseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
