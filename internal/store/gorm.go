package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/seawatch/seawatch/internal/database"
)

// GormStore serves the record store from a local database. Used in
// self-hosted deployments and throughout the test suite.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ListUnprocessed(ctx context.Context, since time.Time, limit, offset int) ([]database.RawRecord, error) {
	return database.ListUnprocessed(s.db.WithContext(ctx), since, limit, offset)
}

func (s *GormStore) Get(ctx context.Context, id string) (*database.RawRecord, error) {
	record, err := database.GetRawRecord(s.db.WithContext(ctx), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return record, err
}

func (s *GormStore) Patch(ctx context.Context, id string, fields map[string]interface{}) error {
	return database.PatchRawRecord(s.db.WithContext(ctx), id, fields)
}
