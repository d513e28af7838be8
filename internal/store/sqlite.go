package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Record is one stored row.
type Record struct {
	Key       string `gorm:"column:record_key;primaryKey;size:512"`
	Value     []byte
	UpdatedAt time.Time
}

// TableName pins the table name.
func (Record) TableName() string { return "byok_records" }

// SQLiteStore is a Store backed by a sqlite file through gorm.
type SQLiteStore struct {
	db  *gorm.DB
	log zerolog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and migrates
// the schema. ":memory:" opens a private in-memory database.
func OpenSQLite(path string, log zerolog.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	// sqlite serializes writers; a single connection also keeps ":memory:"
	// databases shared across calls.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Debug().Str("path", path).Msg("store opened")
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("record_key = ?", key).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec.Value, nil
}

// Set upserts the row for key.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	rec := Record{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("record_key = ?", key).Delete(&Record{}).Error
}

func (s *SQLiteStore) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	var recs []Record
	// substr instead of LIKE: keys contain '_', which LIKE treats as a wildcard.
	err := s.db.WithContext(ctx).
		Where("substr(record_key, 1, ?) = ?", len(prefix), prefix).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(recs))
	for _, r := range recs {
		out[r.Key] = r.Value
	}
	return out, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	return sqlDB.Close()
}
