package store

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/luisvinatea/ChasquiFX-sub002/internal/entities"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	dbPath := "./test_store_" + t.Name() + ".db"

	s, err := Open(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		s.Close()
		os.Remove(dbPath)
	}

	return s, cleanup
}

func TestStore_FindOneByKey_NotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	doc, err := s.FindOneByKey("flights", "JFK_AMM_2025-08-10_2025-08-17")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestStore_InsertAndFind(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	doc := &entities.Document{
		Collection:   "flights",
		Key:          "JFK_AMM_2025-08-10_2025-08-17",
		Source:       "JFK_AMM_2025-08-10_2025-08-17.json",
		ParseMethod:  entities.ParseMethodFull,
		Body:         datatypes.JSON(`{"route":"JFK_AMM_2025-08-10_2025-08-17"}`),
		DateImported: time.Now(),
	}
	require.NoError(t, s.Insert(doc))
	assert.NotZero(t, doc.ID)

	found, err := s.FindOneByKey("flights", "JFK_AMM_2025-08-10_2025-08-17")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, doc.ID, found.ID)

	// Same key in a different collection is a different document
	other, err := s.FindOneByKey("forex", "JFK_AMM_2025-08-10_2025-08-17")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestStore_Collections(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	docs := []entities.Document{
		{Collection: "flights", Key: "a", Body: datatypes.JSON(`{}`), DateImported: time.Now()},
		{Collection: "forex", Key: "b", Body: datatypes.JSON(`{}`), DateImported: time.Now()},
		{Collection: "forex", Key: "c", Body: datatypes.JSON(`{}`), DateImported: time.Now()},
	}
	require.NoError(t, s.InsertMany(docs))

	names, err := s.Collections()
	require.NoError(t, err)
	assert.Equal(t, []string{"flights", "forex"}, names)

	count, err := s.CountDocuments("forex")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestStore_DeleteExpired(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	docs := []entities.Document{
		{Collection: "flights", Key: "stale", Body: datatypes.JSON(`{}`), DateImported: past, ExpiresAt: &past},
		{Collection: "flights", Key: "fresh", Body: datatypes.JSON(`{}`), DateImported: now, ExpiresAt: &future},
		{Collection: "geo", Key: "forever", Body: datatypes.JSON(`{}`), DateImported: past},
	}
	require.NoError(t, s.InsertMany(docs))

	removed, err := s.DeleteExpired(now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	doc, err := s.FindOneByKey("flights", "stale")
	require.NoError(t, err)
	assert.Nil(t, doc)

	doc, err = s.FindOneByKey("geo", "forever")
	require.NoError(t, err)
	assert.NotNil(t, doc)
}

func TestStore_ImportRuns(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	run := &entities.ImportRun{
		RunID:     "9f4c3a62-0000-0000-0000-000000000000",
		Status:    entities.ImportRunStatusRunning,
		DataDir:   "./data",
		StartedAt: time.Now(),
	}
	require.NoError(t, s.CreateImportRun(run))

	finished := time.Now()
	run.Status = entities.ImportRunStatusCompleted
	run.FinishedAt = &finished
	require.NoError(t, s.UpdateImportRun(run))

	got, err := s.GetImportRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportRunStatusCompleted, got.Status)
	assert.NotNil(t, got.FinishedAt)
}
