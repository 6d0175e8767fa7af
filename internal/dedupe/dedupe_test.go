package dedupe

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/luisvinatea/ChasquiFX-sub002/internal/entities"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/store"
)

func setupTestStore(t *testing.T) (*store.Store, func()) {
	dbPath := "./test_dedupe_" + t.Name() + ".db"

	s, err := store.Open(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		s.Close()
		os.Remove(dbPath)
	}

	return s, cleanup
}

func insertDoc(t *testing.T, s *store.Store, collection, key, body string) uint {
	t.Helper()
	doc := &entities.Document{
		Collection:   collection,
		Key:          key,
		Body:         datatypes.JSON(body),
		DateImported: time.Now(),
	}
	require.NoError(t, s.Insert(doc))
	return doc.ID
}

func TestReconcile_KeepsNewest(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	insertDoc(t, s, "forex", "AUD-EUR", `{"currency_pair":"AUD-EUR","date_imported":"2025-05-01"}`)
	newest := insertDoc(t, s, "forex", "AUD-EUR", `{"currency_pair":"AUD-EUR","date_imported":"2025-05-03"}`)
	insertDoc(t, s, "forex", "AUD-EUR", `{"currency_pair":"AUD-EUR","date_imported":"2025-05-02"}`)

	r := New(s)
	result, groups, err := r.Reconcile("forex", DefaultKeySpec("forex"), false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Groups)
	assert.Equal(t, 2, result.Duplicates)
	assert.Equal(t, 2, result.Removed)
	require.Len(t, groups, 1)
	assert.Equal(t, newest, groups[0].Retained.ID)

	docs, err := s.All("forex")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, newest, docs[0].ID)
}

func TestReconcile_SecondRunRemovesNothing(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	insertDoc(t, s, "forex", "AUD-EUR", `{"currency_pair":"AUD-EUR","date_imported":"2025-05-01"}`)
	insertDoc(t, s, "forex", "AUD-EUR", `{"currency_pair":"AUD-EUR","date_imported":"2025-05-03"}`)

	r := New(s)
	first, _, err := r.Reconcile("forex", DefaultKeySpec("forex"), false)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Removed)

	second, _, err := r.Reconcile("forex", DefaultKeySpec("forex"), false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Groups)
	assert.Equal(t, 0, second.Removed)
}

func TestReconcile_CreatedAtBeatsDateImported(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	// Older import carrying a newer provider timestamp wins
	older := insertDoc(t, s, "flights", "JFK_AMM_2025-08-10_2025-08-17",
		`{"route":"JFK_AMM_2025-08-10_2025-08-17","created_at":"2025-08-05T10:00:00Z","date_imported":"2025-08-01T00:00:00Z"}`)
	insertDoc(t, s, "flights", "JFK_AMM_2025-08-10_2025-08-17",
		`{"route":"JFK_AMM_2025-08-10_2025-08-17","created_at":"2025-08-02T10:00:00Z","date_imported":"2025-08-03T00:00:00Z"}`)

	r := New(s)
	_, groups, err := r.Reconcile("flights", DefaultKeySpec("flights"), false)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, older, groups[0].Retained.ID)
}

func TestReconcile_TimestampTieBrokenByID(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	insertDoc(t, s, "forex", "USD-BRL", `{"currency_pair":"USD-BRL","date_imported":"2025-05-01"}`)
	later := insertDoc(t, s, "forex", "USD-BRL", `{"currency_pair":"USD-BRL","date_imported":"2025-05-01"}`)

	r := New(s)
	_, groups, err := r.Reconcile("forex", DefaultKeySpec("forex"), false)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, later, groups[0].Retained.ID)
}

func TestReconcile_CompositeKey(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	insertDoc(t, s, "geo", "x", `{"name":"Queen Alia","country":"Jordan","iata":"AMM","date_imported":"2025-05-01"}`)
	insertDoc(t, s, "geo", "y", `{"name":"Queen Alia","country":"Jordan","iata":"AMM","date_imported":"2025-05-02"}`)
	// Same name, different country: a different identity
	insertDoc(t, s, "geo", "z", `{"name":"Queen Alia","country":"Elsewhere","iata":"QAX","date_imported":"2025-05-01"}`)

	r := New(s)
	result, groups, err := r.Reconcile("geo", DefaultKeySpec("geo"), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Groups)
	assert.Equal(t, 1, result.Removed)
	require.Len(t, groups, 1)
	assert.Equal(t, "Queen Alia|Jordan|AMM", groups[0].Key)

	count, err := s.CountDocuments("geo")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestReconcile_GeoAlternateIdentifierFields(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	// Same name and country but distinct identifiers under the alternate
	// field name: different airports, neither may be deleted.
	insertDoc(t, s, "geo", "a", `{"name":"Regional Airport","country":"US","iata_code":"AAA","date_imported":"2025-05-01"}`)
	insertDoc(t, s, "geo", "b", `{"name":"Regional Airport","country":"US","iata_code":"BBB","date_imported":"2025-05-02"}`)
	// Same airport recorded once under iata and once under iata_code with a
	// country_code variant: one identity, one duplicate.
	insertDoc(t, s, "geo", "c", `{"name":"Jorge Chavez","country":"Peru","iata":"LIM","date_imported":"2025-05-01"}`)
	newest := insertDoc(t, s, "geo", "d", `{"name":"Jorge Chavez","country_code":"Peru","iata_code":"LIM","date_imported":"2025-05-02"}`)

	r := New(s)
	result, groups, err := r.Reconcile("geo", DefaultKeySpec("geo"), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Groups)
	assert.Equal(t, 1, result.Removed)
	require.Len(t, groups, 1)
	assert.Equal(t, "Jorge Chavez|Peru|LIM", groups[0].Key)
	assert.Equal(t, newest, groups[0].Retained.ID)

	count, err := s.CountDocuments("geo")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestReconcile_DryRunDeletesNothing(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	insertDoc(t, s, "forex", "AUD-EUR", `{"currency_pair":"AUD-EUR","date_imported":"2025-05-01"}`)
	insertDoc(t, s, "forex", "AUD-EUR", `{"currency_pair":"AUD-EUR","date_imported":"2025-05-03"}`)

	r := New(s)
	result, _, err := r.Reconcile("forex", DefaultKeySpec("forex"), true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 0, result.Removed)

	count, err := s.CountDocuments("forex")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestReconcile_SkipsDocumentsWithoutIdentity(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	insertDoc(t, s, "forex", "a", `{"price":0.5}`)
	insertDoc(t, s, "forex", "b", `{"price":0.6}`)

	r := New(s)
	result, _, err := r.Reconcile("forex", DefaultKeySpec("forex"), false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Groups)
	assert.Equal(t, 0, result.Removed)
}

func TestReconcile_EmptyKeySpec(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	r := New(s)
	_, _, err := r.Reconcile("unknown", DefaultKeySpec("unknown"), false)
	assert.Error(t, err)
}
