// Package classify derives canonical identity keys from snapshot filenames.
// Identity never comes from payload content: under fallback parsing the
// payload may be absent, but the filename is always there.
package classify

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ForexQuotaFile is the reserved provider quota-status snapshot that lives
// alongside forex quotes but is not a quote itself.
const ForexQuotaFile = "quota_status.json"

// ClassificationError means a filename does not match the expected naming
// pattern for its dataset. The record is skipped and counted; never fatal to
// a batch.
type ClassificationError struct {
	Filename string
	Reason   string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("cannot classify %q: %s", e.Filename, e.Reason)
}

// RouteInfo is the flight identity decomposed from the filename.
type RouteInfo struct {
	DepartureAirport string `json:"departure_airport"`
	ArrivalAirport   string `json:"arrival_airport"`
	OutboundDate     string `json:"outbound_date"`
	ReturnDate       string `json:"return_date"`
}

// Matches: AUD-EUR_2025-05-12_18-59-00.json
var forexNamePattern = regexp.MustCompile(`^([A-Z]{3}-[A-Z]{3})_(.+)$`)

// FlightKey classifies a flight snapshot filename of the form
// DEP_ARR_OUTDATE_RETDATE. The full base name is the canonical route key.
func FlightKey(filename string) (string, RouteInfo, error) {
	base := baseName(filename)
	parts := strings.Split(base, "_")
	if len(parts) != 4 {
		return "", RouteInfo{}, &ClassificationError{
			Filename: filename,
			Reason:   fmt.Sprintf("expected 4 underscore-separated segments, got %d", len(parts)),
		}
	}
	info := RouteInfo{
		DepartureAirport: parts[0],
		ArrivalAirport:   parts[1],
		OutboundDate:     parts[2],
		ReturnDate:       parts[3],
	}
	return base, info, nil
}

// ForexKey classifies a forex snapshot filename of the form
// PAIR_<capture-timestamp>. The currency pair is the canonical key; the
// remainder seeds a creation-timestamp hint used for later tie-breaking,
// or nil when it cannot be read as a timestamp.
func ForexKey(filename string) (string, *time.Time, error) {
	base := baseName(filename)
	m := forexNamePattern.FindStringSubmatch(base)
	if m == nil {
		return "", nil, &ClassificationError{
			Filename: filename,
			Reason:   "expected PAIR_timestamp with a three-letter currency pair",
		}
	}
	return m[1], timestampHint(m[2]), nil
}

// identityFieldAlternates lists the alternate body field names providers
// use for the geo identity fields. Shared with duplicate grouping so both
// resolve the same identity.
var identityFieldAlternates = map[string][]string{
	"iata":    {"iata_code", "code"},
	"country": {"country_code"},
}

// FieldAlternates returns the alternate body field names carrying the same
// identity value as the given field, or nil when there are none.
func FieldAlternates(field string) []string {
	return identityFieldAlternates[field]
}

// GeoKey builds the composite identity (name, country, identifier) for one
// airport entry. Entries lacking the identifying field are excluded.
func GeoKey(entry map[string]any) (string, error) {
	iata := identityField(entry, "iata")
	if iata == "" {
		return "", &ClassificationError{
			Filename: stringField(entry, "name"),
			Reason:   "entry has no identifying IATA field",
		}
	}
	name := stringField(entry, "name")
	country := identityField(entry, "country")
	return name + "|" + country + "|" + iata, nil
}

func baseName(filename string) string {
	return strings.TrimSuffix(filepath.Base(filename), ".json")
}

// timestampHint normalizes the filename remainder ("2025-05-12_18-59-00")
// into a parseable timestamp.
func timestampHint(remainder string) *time.Time {
	s := strings.ReplaceAll(remainder, "_", " ")
	if len(s) > 11 {
		// Time portion uses dashes in filenames; restore colons
		s = s[:11] + strings.ReplaceAll(s[11:], "-", ":")
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// identityField resolves a field through its alternates, first non-empty
// value winning.
func identityField(m map[string]any, field string) string {
	if s := stringField(m, field); s != "" {
		return s
	}
	for _, alt := range identityFieldAlternates[field] {
		if s := stringField(m, alt); s != "" {
			return s
		}
	}
	return ""
}
