package store

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/luisvinatea/ChasquiFX-sub002/internal/entities"
)

// Store is the document store used by the pipeline. Documents carry their
// normalized payload as a JSON body; lookup identity is (collection, key).
type Store struct {
	DB *gorm.DB
}

// Open connects to the SQLite-backed store and migrates the schema.
// The returned Store must be closed by the caller; the pipeline opens one
// handle per run and releases it on every exit path.
func Open(dbPath string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}

	if err := db.AutoMigrate(
		&entities.Document{},
		&entities.ImportRun{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate store schema: %w", err)
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FindOneByKey returns the document identified by (collection, key), or nil
// when no such document exists.
func (s *Store) FindOneByKey(collection, key string) (*entities.Document, error) {
	var doc entities.Document
	err := s.DB.Where("collection = ? AND key = ?", collection, key).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Store) Insert(doc *entities.Document) error {
	return s.DB.Create(doc).Error
}

func (s *Store) InsertMany(docs []entities.Document) error {
	if len(docs) == 0 {
		return nil
	}
	return s.DB.CreateInBatches(docs, 100).Error
}

func (s *Store) Update(doc *entities.Document) error {
	return s.DB.Save(doc).Error
}

func (s *Store) Delete(id uint) error {
	return s.DB.Delete(&entities.Document{}, id).Error
}

// All returns every document in a collection in insertion order. This is the
// grouping input for the duplicate reconciler.
func (s *Store) All(collection string) ([]entities.Document, error) {
	var docs []entities.Document
	err := s.DB.Where("collection = ?", collection).Order("id ASC").Find(&docs).Error
	return docs, err
}

// Collections lists the distinct collection names currently stored.
func (s *Store) Collections() ([]string, error) {
	var names []string
	err := s.DB.Model(&entities.Document{}).Distinct("collection").Order("collection ASC").Pluck("collection", &names).Error
	return names, err
}

func (s *Store) CountDocuments(collection string) (int64, error) {
	var count int64
	err := s.DB.Model(&entities.Document{}).Where("collection = ?", collection).Count(&count).Error
	return count, err
}

// DeleteExpired removes documents whose expires_at horizon has passed.
// Documents without an expiry are never touched.
func (s *Store) DeleteExpired(now time.Time) (int64, error) {
	result := s.DB.Where("expires_at IS NOT NULL AND expires_at < ?", now).Delete(&entities.Document{})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Purged %d expired documents", result.RowsAffected)
	}
	return result.RowsAffected, nil
}

func (s *Store) CreateImportRun(run *entities.ImportRun) error {
	return s.DB.Create(run).Error
}

func (s *Store) UpdateImportRun(run *entities.ImportRun) error {
	return s.DB.Save(run).Error
}

func (s *Store) GetImportRun(runID string) (*entities.ImportRun, error) {
	var run entities.ImportRun
	err := s.DB.Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}
