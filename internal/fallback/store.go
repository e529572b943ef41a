// Package fallback keeps the last successful upstream payload per endpoint.
package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/j-veylop/newapi-usage-tui/internal/apperr"
	"github.com/j-veylop/newapi-usage-tui/internal/config"
	"github.com/j-veylop/newapi-usage-tui/internal/db"
	"github.com/j-veylop/newapi-usage-tui/internal/models"
)

// Store persists one snapshot per endpoint key. Put replaces the prior
// snapshot atomically; Get never observes a partial write.
type Store interface {
	Get(ctx context.Context, key string) (*models.FallbackSnapshot, error)
	Put(ctx context.Context, key string, raw json.RawMessage, capturedAt time.Time) error
	Close() error
}

// Lister is implemented by stores that can enumerate their snapshots.
type Lister interface {
	List(ctx context.Context) ([]db.SnapshotInfo, error)
}

// Open creates the store selected by cfg.FallbackBackend.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.FallbackBackend {
	case config.BackendSQLite:
		database, err := db.New(cfg.DatabasePath)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to open snapshot database")
		}
		return NewSQLiteStore(database), nil
	case config.BackendJSON, "":
		return NewFileStore(cfg.FallbackPath), nil
	default:
		return nil, apperr.New(apperr.CodeInvalidConfig, "unknown fallback backend "+cfg.FallbackBackend)
	}
}

func unavailable(key string) error {
	return apperr.New(apperr.CodeFallbackUnavailable, "no fallback snapshot for "+key)
}

// compact validates raw and strips insignificant whitespace so both backends
// return the same bytes for the same payload.
func compact(key string, raw json.RawMessage) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "refusing to store invalid JSON for "+key)
	}
	return buf.Bytes(), nil
}
