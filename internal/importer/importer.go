// Package importer walks the raw snapshot directory tree and performs
// idempotent, insert-only imports into the document store. A file's decode
// or classification failure is counted and logged, never fatal to the batch;
// only store-level failures abort a run.
package importer

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/luisvinatea/ChasquiFX-sub002/internal/classify"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/config"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/decoder"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/entities"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/normalize"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/store"
)

type Options struct {
	DryRun         bool
	Verbose        bool
	EnhancedSchema bool
	Datasets       []entities.Dataset // empty means all
}

// Coordinator runs one import over a data directory. Files are processed
// sequentially in sorted order so skip/insert/error bookkeeping is
// deterministic; no worker pool.
type Coordinator struct {
	store   *store.Store
	dataDir string
	opts    Options
	now     func() time.Time
}

func New(s *store.Store, dataDir string, opts Options) *Coordinator {
	if len(opts.Datasets) == 0 {
		opts.Datasets = entities.AllDatasets
	}
	return &Coordinator{
		store:   s,
		dataDir: dataDir,
		opts:    opts,
		now:     time.Now,
	}
}

// ImportAll imports every selected dataset and returns per-dataset counters.
// Non-dry runs are recorded as ImportRun audit rows.
func (c *Coordinator) ImportAll() (*entities.ImportStats, error) {
	stats := &entities.ImportStats{}

	var run *entities.ImportRun
	if !c.opts.DryRun {
		run = &entities.ImportRun{
			RunID:     uuid.NewString(),
			Status:    entities.ImportRunStatusRunning,
			DataDir:   c.dataDir,
			StartedAt: c.now(),
		}
		if err := c.store.CreateImportRun(run); err != nil {
			return nil, fmt.Errorf("failed to record import run: %w", err)
		}
	}

	var runErr error
	for _, dataset := range c.opts.Datasets {
		var err error
		switch dataset {
		case entities.DatasetFlights:
			err = c.importFlights(stats.Dataset(dataset))
		case entities.DatasetForex:
			err = c.importForex(stats.Dataset(dataset))
		case entities.DatasetGeo:
			err = c.importGeo(stats.Dataset(dataset))
		}
		if err != nil {
			runErr = err
			break
		}
	}

	if run != nil {
		c.finishRun(run, stats, runErr)
	}
	if runErr != nil {
		return stats, runErr
	}
	return stats, nil
}

func (c *Coordinator) importFlights(ds *entities.DatasetStats) error {
	dir := filepath.Join(c.dataDir, string(entities.DatasetFlights))
	files, err := listJSONFiles(dir)
	if err != nil {
		return err
	}

	for _, name := range files {
		ds.Total++

		dec, ok := c.decodeFile(filepath.Join(dir, name), ds)
		if !ok {
			continue
		}

		route, info, err := classify.FlightKey(name)
		if err != nil {
			ds.Errors++
			log.Printf("Skipping %s: %v", name, err)
			continue
		}

		existing, err := c.store.FindOneByKey(string(entities.DatasetFlights), route)
		if err != nil {
			return fmt.Errorf("lookup flight %s: %w", route, err)
		}
		if existing != nil {
			ds.Skipped++
			c.logv("  -> %s already imported, skipping", route)
			continue
		}

		now := c.now()
		var body map[string]any
		if c.opts.EnhancedSchema {
			body = normalize.Flight(dec, route, info, name, now)
		} else {
			body = normalize.LegacyFlight(dec, route, name, now)
		}

		if c.opts.DryRun {
			ds.Success++
			log.Printf("[dry-run] would insert flight %s", route)
			continue
		}

		expires := now.Add(config.FlightTTL)
		doc := &entities.Document{
			Collection:   string(entities.DatasetFlights),
			Key:          route,
			Source:       name,
			ParseMethod:  dec.Method,
			Body:         marshalBody(body),
			DateImported: now,
			ExpiresAt:    &expires,
		}
		if err := c.store.Insert(doc); err != nil {
			return fmt.Errorf("insert flight %s: %w", route, err)
		}
		ds.Success++
		c.logv("  -> imported flight %s (%s parse)", route, dec.Method)
	}
	return nil
}

func (c *Coordinator) importForex(ds *entities.DatasetStats) error {
	dir := filepath.Join(c.dataDir, string(entities.DatasetForex))
	files, err := listJSONFiles(dir)
	if err != nil {
		return err
	}

	for _, name := range files {
		if name == classify.ForexQuotaFile {
			continue
		}
		ds.Total++

		dec, ok := c.decodeFile(filepath.Join(dir, name), ds)
		if !ok {
			continue
		}

		pair, hint, err := classify.ForexKey(name)
		if err != nil {
			ds.Errors++
			log.Printf("Skipping %s: %v", name, err)
			continue
		}

		existing, err := c.store.FindOneByKey(string(entities.DatasetForex), pair)
		if err != nil {
			return fmt.Errorf("lookup forex %s: %w", pair, err)
		}
		if existing != nil {
			ds.Skipped++
			c.logv("  -> %s already imported, skipping", pair)
			continue
		}

		now := c.now()
		body := normalize.Forex(dec, pair, hint, name, now)

		if c.opts.DryRun {
			ds.Success++
			log.Printf("[dry-run] would insert forex %s", pair)
			continue
		}

		expires := now.Add(config.ForexTTL)
		doc := &entities.Document{
			Collection:   string(entities.DatasetForex),
			Key:          pair,
			Source:       name,
			ParseMethod:  dec.Method,
			Body:         marshalBody(body),
			DateImported: now,
			ExpiresAt:    &expires,
		}
		if err := c.store.Insert(doc); err != nil {
			return fmt.Errorf("insert forex %s: %w", pair, err)
		}
		ds.Success++
		c.logv("  -> imported forex %s (%s parse)", pair, dec.Method)
	}
	return nil
}

// importGeo imports airport arrays. Counters are per airport entry, not per
// file; a file that cannot be read as an array counts as a single error.
func (c *Coordinator) importGeo(ds *entities.DatasetStats) error {
	dir := filepath.Join(c.dataDir, string(entities.DatasetGeo))
	files, err := listJSONFiles(dir)
	if err != nil {
		return err
	}

	for _, name := range files {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			ds.Total++
			ds.Errors++
			log.Printf("Failed to read %s: %v", name, err)
			continue
		}

		dec, err := decoder.Decode(raw)
		if err != nil || dec.Array() == nil {
			ds.Total++
			ds.Errors++
			log.Printf("Skipping %s: not a readable airport array", name)
			continue
		}

		for _, raw := range dec.Array() {
			ds.Total++

			entry, ok := raw.(map[string]any)
			if !ok {
				ds.Errors++
				continue
			}

			key, err := classify.GeoKey(entry)
			if err != nil {
				ds.Errors++
				c.logv("  -> excluding geo entry: %v", err)
				continue
			}

			existing, err := c.store.FindOneByKey(string(entities.DatasetGeo), key)
			if err != nil {
				return fmt.Errorf("lookup geo %s: %w", key, err)
			}
			if existing != nil {
				ds.Skipped++
				continue
			}

			now := c.now()
			body := normalize.Geo(entry, name, now)

			if c.opts.DryRun {
				ds.Success++
				log.Printf("[dry-run] would insert geo %s", key)
				continue
			}

			doc := &entities.Document{
				Collection:   string(entities.DatasetGeo),
				Key:          key,
				Source:       name,
				ParseMethod:  dec.Method,
				Body:         marshalBody(body),
				DateImported: now,
				// Reference data never expires
			}
			if err := c.store.Insert(doc); err != nil {
				return fmt.Errorf("insert geo %s: %w", key, err)
			}
			ds.Success++
		}
	}
	return nil
}

// decodeFile reads and decodes one snapshot, counting failures against the
// dataset. The bool reports whether a usable result came back.
func (c *Coordinator) decodeFile(path string, ds *entities.DatasetStats) (decoder.Result, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		ds.Errors++
		log.Printf("Failed to read %s: %v", filepath.Base(path), err)
		return decoder.Result{}, false
	}

	dec, err := decoder.Decode(raw)
	if err != nil {
		ds.Errors++
		log.Printf("Failed to decode %s: %v", filepath.Base(path), err)
		return decoder.Result{}, false
	}
	return dec, true
}

func (c *Coordinator) finishRun(run *entities.ImportRun, stats *entities.ImportStats, runErr error) {
	finished := c.now()
	run.FinishedAt = &finished
	run.Status = entities.ImportRunStatusCompleted
	if runErr != nil {
		run.Status = entities.ImportRunStatusFailed
	}
	if encoded, err := json.Marshal(stats); err == nil {
		run.Stats = datatypes.JSON(encoded)
	}
	if err := c.store.UpdateImportRun(run); err != nil {
		log.Printf("Failed to finalize import run %s: %v", run.RunID, err)
	}
}

func (c *Coordinator) logv(format string, args ...any) {
	if c.opts.Verbose {
		log.Printf(format, args...)
	}
}

// listJSONFiles returns the .json files in a directory, explicitly sorted so
// run audit order does not depend on filesystem listing order. A missing
// dataset directory is not an error; it just has nothing to import.
func listJSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		log.Printf("Data directory %s not present, skipping", dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

func marshalBody(body map[string]any) datatypes.JSON {
	encoded, err := json.Marshal(body)
	if err != nil {
		// Bodies are built from decoded JSON and plain values; this cannot
		// fail in practice, but an empty object beats a panic.
		return datatypes.JSON(`{}`)
	}
	return datatypes.JSON(encoded)
}
