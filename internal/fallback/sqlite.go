package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/j-veylop/newapi-usage-tui/internal/apperr"
	"github.com/j-veylop/newapi-usage-tui/internal/db"
	"github.com/j-veylop/newapi-usage-tui/internal/models"
)

// SQLiteStore keeps snapshots in the fallback_snapshots table.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore wraps an open database. The store owns it from here on.
func NewSQLiteStore(database *db.DB) *SQLiteStore {
	return &SQLiteStore{db: database}
}

// Get returns the snapshot for key or a FallbackUnavailable error.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*models.FallbackSnapshot, error) {
	snap, err := s.db.GetSnapshot(ctx, key)
	if errors.Is(err, db.ErrNotFound) {
		return nil, unavailable(key)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to load snapshot")
	}
	return snap, nil
}

// Put upserts the snapshot for key.
func (s *SQLiteStore) Put(ctx context.Context, key string, raw json.RawMessage, capturedAt time.Time) error {
	compacted, err := compact(key, raw)
	if err != nil {
		return err
	}
	if err := s.db.UpsertSnapshot(ctx, key, compacted, capturedAt); err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to store snapshot")
	}
	return nil
}

// List returns metadata for every stored snapshot.
func (s *SQLiteStore) List(ctx context.Context) ([]db.SnapshotInfo, error) {
	return s.db.ListSnapshots(ctx)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
