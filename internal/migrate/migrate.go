// Package migrate upgrades legacy-shape flight documents to the enhanced
// schema in place. The original snapshot file is re-read for the richest
// payload; when it is gone the stored body itself feeds the projection, so
// migration never blocks on missing files and never loses data.
package migrate

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/luisvinatea/ChasquiFX-sub002/internal/classify"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/decoder"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/entities"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/normalize"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/recency"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/store"
)

type Result struct {
	Migrated int
	Skipped  int
	Errors   int
}

type Driver struct {
	store   *store.Store
	dataDir string
	cmp     recency.Comparator
	now     func() time.Time
}

func New(s *store.Store, dataDir string) *Driver {
	return &Driver{
		store:   s,
		dataDir: dataDir,
		cmp:     recency.NewComparator(),
		now:     time.Now,
	}
}

// Run migrates every legacy flight document. Documents already carrying a
// summary are skipped; per-document failures are counted and never abort the
// sweep. In dry-run mode intended changes are logged and nothing is written.
func (d *Driver) Run(dryRun bool) (Result, error) {
	docs, err := d.store.All(string(entities.DatasetFlights))
	if err != nil {
		return Result{}, fmt.Errorf("load flight documents: %w", err)
	}

	var res Result
	for _, doc := range docs {
		body := docBody(doc)
		if _, ok := body["best_flights_summary"]; ok {
			res.Skipped++
			continue
		}

		route := doc.Key
		if route == "" {
			route, _ = body["route"].(string)
		}
		info := routeInfo(doc.Source, route)

		dec, fromFile := d.sourcePayload(doc, body)
		enhanced := normalize.Flight(dec, route, info, doc.Source, d.now())
		merged := mergeShapes(body, enhanced, d.cmp)

		if dryRun {
			log.Printf("[dry-run] would migrate flight %s (id=%d, source file %s)",
				route, doc.ID, presence(fromFile))
			res.Migrated++
			continue
		}

		encoded, err := json.Marshal(merged)
		if err != nil {
			res.Errors++
			log.Printf("Failed to encode migrated document %d: %v", doc.ID, err)
			continue
		}
		doc.Body = encoded
		if fromFile {
			doc.ParseMethod = dec.Method
		}
		if err := d.store.Update(&doc); err != nil {
			res.Errors++
			log.Printf("Failed to update document %d: %v", doc.ID, err)
			continue
		}
		res.Migrated++
	}

	log.Printf("Schema migration: %d migrated, %d skipped, %d errors",
		res.Migrated, res.Skipped, res.Errors)
	return res, nil
}

// sourcePayload re-reads the original snapshot when it is still on disk.
// Otherwise the stored body stands in, so stored best_flights data still
// feeds the summary projection instead of producing an empty shell.
func (d *Driver) sourcePayload(doc entities.Document, body map[string]any) (decoder.Result, bool) {
	if d.dataDir != "" && doc.Source != "" {
		path := filepath.Join(d.dataDir, string(entities.DatasetFlights), doc.Source)
		if raw, err := os.ReadFile(path); err == nil {
			if dec, err := decoder.Decode(raw); err == nil {
				return dec, true
			}
		}
	}
	return decoder.Result{Method: doc.ParseMethod, Value: body}, false
}

// mergeShapes overlays the enhanced shape onto the existing body. Fields the
// new shape does not map survive untouched. The document's import date never
// changes, and created_at keeps whichever provenance timestamp is newer.
func mergeShapes(body, enhanced map[string]any, cmp recency.Comparator) map[string]any {
	merged := make(map[string]any, len(body)+len(enhanced))
	for k, v := range body {
		merged[k] = v
	}
	for k, v := range enhanced {
		switch k {
		case "date_imported":
			if _, ok := body[k]; ok {
				continue
			}
		case "created_at":
			if _, ok := body[k]; ok && !cmp.Newer(enhanced, body) {
				continue
			}
		}
		merged[k] = v
	}
	return merged
}

func routeInfo(source, route string) classify.RouteInfo {
	if _, info, err := classify.FlightKey(source); err == nil {
		return info
	}
	if _, info, err := classify.FlightKey(route); err == nil {
		return info
	}
	return classify.RouteInfo{}
}

func docBody(doc entities.Document) map[string]any {
	var body map[string]any
	if err := json.Unmarshal(doc.Body, &body); err != nil || body == nil {
		return map[string]any{}
	}
	return body
}

func presence(fromFile bool) string {
	if fromFile {
		return "present"
	}
	return "absent"
}
