// Package dedupe is the batch reconciler that removes duplicate documents
// from a collection, keeping the newest member of every duplicate group.
package dedupe

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/luisvinatea/ChasquiFX-sub002/internal/classify"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/entities"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/recency"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/store"
)

// KeySpec is the ordered list of body fields whose values form the grouping
// key. A single natural key or a composite identity.
type KeySpec []string

// DefaultKeySpec returns the grouping key used for each built-in collection.
func DefaultKeySpec(collection string) KeySpec {
	switch entities.Dataset(collection) {
	case entities.DatasetFlights:
		return KeySpec{"route"}
	case entities.DatasetForex:
		return KeySpec{"currency_pair"}
	case entities.DatasetGeo:
		return KeySpec{"name", "country", "iata"}
	default:
		return nil
	}
}

// Group is one set of documents sharing a key, computed per run. Members are
// ordered newest first; the first member is retained.
type Group struct {
	Key      string
	Members  []entities.Document
	Retained entities.Document
}

type Result struct {
	Groups     int
	Duplicates int
	Removed    int
}

type Reconciler struct {
	store *store.Store
	cmp   recency.Comparator
}

func New(s *store.Store) *Reconciler {
	return &Reconciler{store: s, cmp: recency.NewComparator()}
}

// Reconcile groups every document in the collection by the key spec and, for
// groups with more than one member, deletes all but the newest. Re-running
// over the surviving set removes nothing: the operation converges.
func (r *Reconciler) Reconcile(collection string, spec KeySpec, dryRun bool) (Result, []Group, error) {
	if len(spec) == 0 {
		return Result{}, nil, fmt.Errorf("empty key spec for collection %s", collection)
	}

	docs, err := r.store.All(collection)
	if err != nil {
		return Result{}, nil, fmt.Errorf("load collection %s: %w", collection, err)
	}

	type member struct {
		doc  entities.Document
		when time.Time
	}
	byKey := make(map[string][]member)
	var keyOrder []string

	for _, doc := range docs {
		body := docBody(doc)
		key, ok := groupKey(body, spec)
		if !ok {
			// No identity to group on
			continue
		}
		if _, seen := byKey[key]; !seen {
			keyOrder = append(keyOrder, key)
		}
		byKey[key] = append(byKey[key], member{doc: doc, when: r.cmp.BestTimestamp(body)})
	}

	var result Result
	var groups []Group

	for _, key := range keyOrder {
		members := byKey[key]
		if len(members) < 2 {
			continue
		}

		// Newest first; ties resolved by store ID, newest insert winning
		sort.Slice(members, func(i, j int) bool {
			if !members[i].when.Equal(members[j].when) {
				return members[i].when.After(members[j].when)
			}
			return members[i].doc.ID > members[j].doc.ID
		})

		group := Group{Key: key}
		for _, m := range members {
			group.Members = append(group.Members, m.doc)
		}
		group.Retained = group.Members[0]
		groups = append(groups, group)

		result.Groups++
		result.Duplicates += len(members) - 1

		for _, m := range members[1:] {
			if dryRun {
				log.Printf("[dry-run] would delete %s document id=%d key=%s", collection, m.doc.ID, key)
				continue
			}
			if err := r.store.Delete(m.doc.ID); err != nil {
				return result, groups, fmt.Errorf("delete document %d: %w", m.doc.ID, err)
			}
			result.Removed++
		}
	}

	log.Printf("Reconciled %s: %d duplicate groups, %d duplicates, %d removed",
		collection, result.Groups, result.Duplicates, result.Removed)
	return result, groups, nil
}

func docBody(doc entities.Document) map[string]any {
	var body map[string]any
	if err := json.Unmarshal(doc.Body, &body); err != nil || body == nil {
		return map[string]any{}
	}
	return body
}

// groupKey joins the key spec's field values, resolving each field through
// the same alternate names classification accepts so grouping identity
// matches the canonical key. The first (primary) field must be present;
// later fields degrade to empty segments.
func groupKey(body map[string]any, spec KeySpec) (string, bool) {
	parts := make([]string, 0, len(spec))
	for i, field := range spec {
		value := stringify(body[field])
		if value == "" {
			for _, alt := range classify.FieldAlternates(field) {
				if value = stringify(body[alt]); value != "" {
					break
				}
			}
		}
		if i == 0 && value == "" {
			return "", false
		}
		parts = append(parts, value)
	}
	key := parts[0]
	for _, p := range parts[1:] {
		key += "|" + p
	}
	return key, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
