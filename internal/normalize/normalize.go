// Package normalize maps classified snapshots into canonical document
// shapes. By contract it never fails: every derived attribute degrades
// independently to nil/0/empty when the payload is missing pieces, so a
// fallback-parsed record still yields a well-formed document.
package normalize

import (
	"time"

	"github.com/luisvinatea/ChasquiFX-sub002/internal/classify"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/decoder"
)

// Flight builds the enhanced flight document. Route identity comes from the
// canonical key, never from the payload, so it survives fallback parsing.
func Flight(dec decoder.Result, route string, info classify.RouteInfo, source string, now time.Time) map[string]any {
	payload := dec.Object()

	bestFlights := sliceField(payload, "best_flights")
	summaries := make([]any, 0, len(bestFlights))
	for _, entry := range bestFlights {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		summaries = append(summaries, flightSummary(m))
	}

	doc := map[string]any{
		"route": route,
		"route_info": map[string]any{
			"departure_airport": info.DepartureAirport,
			"arrival_airport":   info.ArrivalAirport,
			"outbound_date":     info.OutboundDate,
			"return_date":       info.ReturnDate,
		},
		"best_flights":         bestFlights,
		"best_flights_summary": summaries,
		"price_range":          priceRange(bestFlights),
		"other_flights_count":  len(sliceField(payload, "other_flights")),
		"_source":              source,
		"parse_method":         string(dec.Method),
		"date_imported":        now.UTC().Format(time.RFC3339),
	}

	copyMetadata(doc, payload, dec.Fields)
	return doc
}

// LegacyFlight builds the pre-enhanced flight shape: raw best_flights with
// no summary projection. The migration driver upgrades these in place.
func LegacyFlight(dec decoder.Result, route, source string, now time.Time) map[string]any {
	payload := dec.Object()
	doc := map[string]any{
		"route":         route,
		"best_flights":  sliceField(payload, "best_flights"),
		"_source":       source,
		"parse_method":  string(dec.Method),
		"date_imported": now.UTC().Format(time.RFC3339),
	}
	copyMetadata(doc, payload, dec.Fields)
	return doc
}

// Forex builds the forex quote document. Price is nullable: taken from the
// payload when parsed, from the fallback extraction otherwise.
func Forex(dec decoder.Result, pair string, hint *time.Time, source string, now time.Time) map[string]any {
	payload := dec.Object()

	doc := map[string]any{
		"currency_pair": pair,
		"price":         numOrNil(payload, "price"),
		"_source":       source,
		"parse_method":  string(dec.Method),
		"date_imported": now.UTC().Format(time.RFC3339),
	}
	if doc["price"] == nil && dec.Fields != nil {
		if p, ok := dec.Fields["first_price"].(float64); ok {
			doc["price"] = p
		}
	}

	if created := createdAt(payload, dec.Fields); created != "" {
		doc["created_at"] = created
	} else if hint != nil {
		doc["created_at"] = hint.UTC().Format(time.RFC3339)
	}
	return doc
}

// Geo passes an airport entry through untouched, tagged with its source
// snapshot.
func Geo(entry map[string]any, source string, now time.Time) map[string]any {
	doc := make(map[string]any, len(entry)+2)
	for k, v := range entry {
		doc[k] = v
	}
	doc["_source"] = source
	doc["date_imported"] = now.UTC().Format(time.RFC3339)
	return doc
}

// flightSummary projects one best_flights entry. Every field degrades to
// nil (or 0 for the layover count) on its own.
func flightSummary(entry map[string]any) map[string]any {
	s := map[string]any{
		"price":                     numOrNil(entry, "price"),
		"type":                      strOrNil(entry, "type"),
		"duration":                  numOrNil(entry, "total_duration"),
		"airline":                   nil,
		"carbon_difference_percent": nil,
		"layovers":                  len(sliceField(entry, "layovers")),
		"departure_time":            nil,
		"arrival_time":              nil,
	}

	if ce, ok := entry["carbon_emissions"].(map[string]any); ok {
		s["carbon_difference_percent"] = numOrNil(ce, "difference_percent")
	}

	flights := sliceField(entry, "flights")
	if len(flights) > 0 {
		if first, ok := flights[0].(map[string]any); ok {
			s["airline"] = strOrNil(first, "airline")
			if dep, ok := first["departure_airport"].(map[string]any); ok {
				s["departure_time"] = strOrNil(dep, "time")
			}
		}
		if last, ok := flights[len(flights)-1].(map[string]any); ok {
			if arr, ok := last["arrival_airport"].(map[string]any); ok {
				s["arrival_time"] = strOrNil(arr, "time")
			}
		}
	}
	return s
}

// priceRange computes {min,max} over the numeric prices present, or nil when
// no entry carries one.
func priceRange(bestFlights []any) any {
	var min, max float64
	found := false
	for _, entry := range bestFlights {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		price, ok := m["price"].(float64)
		if !ok {
			continue
		}
		if !found || price < min {
			min = price
		}
		if !found || price > max {
			max = price
		}
		found = true
	}
	if !found {
		return nil
	}
	return map[string]any{"min": min, "max": max}
}

// copyMetadata carries search_metadata/search_parameters and the best
// available created_at into the document, from the payload when fully
// parsed or from the fallback fields otherwise. Fallback-only signals
// (best_flights presence, price occurrence count, first price seen) ride
// along too: for an unparseable snapshot they are the only evidence of
// what it contained.
func copyMetadata(doc, payload, fields map[string]any) {
	for _, key := range []string{"search_metadata", "search_parameters"} {
		if v, ok := payload[key]; ok {
			doc[key] = v
		} else if v, ok := fields[key]; ok {
			doc[key] = v
		}
	}
	for _, key := range []string{"has_best_flights", "price_count", "first_price"} {
		if v, ok := fields[key]; ok {
			doc[key] = v
		}
	}
	if created := createdAt(payload, fields); created != "" {
		doc["created_at"] = created
	}
}

func createdAt(payload, fields map[string]any) string {
	if meta, ok := payload["search_metadata"].(map[string]any); ok {
		if s, ok := meta["created_at"].(string); ok && s != "" {
			return s
		}
	}
	if s, ok := payload["created_at"].(string); ok && s != "" {
		return s
	}
	if s, ok := fields["created_at"].(string); ok && s != "" {
		return s
	}
	return ""
}

func sliceField(m map[string]any, key string) []any {
	if m == nil {
		return []any{}
	}
	if s, ok := m[key].([]any); ok {
		return s
	}
	return []any{}
}

func numOrNil(m map[string]any, key string) any {
	if m == nil {
		return nil
	}
	if f, ok := m[key].(float64); ok {
		return f
	}
	return nil
}

func strOrNil(m map[string]any, key string) any {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return nil
}
