package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/newapi-usage-tui/internal/models"
)

// ErrNotFound is returned when no snapshot exists for a key.
var ErrNotFound = errors.New("snapshot not found")

const timeLayout = time.RFC3339Nano

// UpsertSnapshot stores raw as the snapshot for key, replacing any prior row
// in a single statement.
func (db *DB) UpsertSnapshot(ctx context.Context, key string, raw []byte, capturedAt time.Time) error {
	query := `
		INSERT INTO fallback_snapshots (endpoint_key, captured_at, raw_payload, payload_bytes)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(endpoint_key) DO UPDATE SET
			captured_at = excluded.captured_at,
			raw_payload = excluded.raw_payload,
			payload_bytes = excluded.payload_bytes
	`

	_, err := db.ExecContext(ctx, query,
		key,
		capturedAt.UTC().Format(timeLayout),
		raw,
		len(raw),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot %q: %w", key, err)
	}
	return nil
}

// GetSnapshot returns the snapshot stored for key or ErrNotFound.
func (db *DB) GetSnapshot(ctx context.Context, key string) (*models.FallbackSnapshot, error) {
	query := `
		SELECT captured_at, raw_payload
		FROM fallback_snapshots
		WHERE endpoint_key = ?
	`

	var capturedAt string
	var raw []byte
	err := db.QueryRowContext(ctx, query, key).Scan(&capturedAt, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot %q: %w", key, err)
	}

	ts, err := time.Parse(timeLayout, capturedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse captured_at %q: %w", capturedAt, err)
	}

	return &models.FallbackSnapshot{
		EndpointKey: key,
		CapturedAt:  ts,
		RawPayload:  raw,
	}, nil
}

// SnapshotInfo describes a stored snapshot without its payload.
type SnapshotInfo struct {
	CapturedAt   time.Time
	EndpointKey  string
	PayloadBytes int
}

// ListSnapshots returns metadata for every stored snapshot ordered by key.
func (db *DB) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	query := `
		SELECT endpoint_key, captured_at, payload_bytes
		FROM fallback_snapshots
		ORDER BY endpoint_key
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var capturedAt string
		if err := rows.Scan(&info.EndpointKey, &capturedAt, &info.PayloadBytes); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if ts, err := time.Parse(timeLayout, capturedAt); err == nil {
			info.CapturedAt = ts
		}
		infos = append(infos, info)
	}

	return infos, rows.Err()
}

