package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/j-veylop/newapi-usage-tui/internal/apperr"
	"github.com/j-veylop/newapi-usage-tui/internal/db"
	"github.com/j-veylop/newapi-usage-tui/internal/logger"
	"github.com/j-veylop/newapi-usage-tui/internal/models"
)

// FileStore keeps all snapshots in one JSON document keyed by endpoint.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the JSON document at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the snapshot for key or a FallbackUnavailable error.
func (s *FileStore) Get(_ context.Context, key string) (*models.FallbackSnapshot, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}

	snap, ok := doc[key]
	if !ok || len(snap.RawPayload) == 0 {
		return nil, unavailable(key)
	}
	snap.EndpointKey = key
	return snap, nil
}

// Put replaces the snapshot for key. Other keys are preserved.
func (s *FileStore) Put(_ context.Context, key string, raw json.RawMessage, capturedAt time.Time) error {
	compacted, err := compact(key, raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		// Start over from a corrupt document.
		logger.Warn("discarding unreadable fallback document", "path", s.path, "error", err)
		doc = map[string]*models.FallbackSnapshot{}
	}

	doc[key] = &models.FallbackSnapshot{
		CapturedAt: capturedAt.UTC(),
		RawPayload: compacted,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to encode fallback document")
	}

	return s.writeAtomic(data)
}

// List returns metadata for every stored snapshot, ordered by key.
func (s *FileStore) List(_ context.Context) ([]db.SnapshotInfo, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}

	infos := make([]db.SnapshotInfo, 0, len(doc))
	for key, snap := range doc {
		infos = append(infos, db.SnapshotInfo{
			EndpointKey:  key,
			CapturedAt:   snap.CapturedAt,
			PayloadBytes: len(snap.RawPayload),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].EndpointKey < infos[j].EndpointKey })
	return infos, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read() (map[string]*models.FallbackSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]*models.FallbackSnapshot{}, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to read fallback document")
	}
	if len(data) == 0 {
		return map[string]*models.FallbackSnapshot{}, nil
	}

	doc := map[string]*models.FallbackSnapshot{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to parse fallback document")
	}
	return doc, nil
}

func (s *FileStore) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to create fallback directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to create temp file")
	}
	tmpName := tmp.Name()

	cleanup := func() {
		if removeErr := os.Remove(tmpName); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return apperr.Wrap(err, apperr.CodeStorage, "failed to write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return apperr.Wrap(err, apperr.CodeStorage, "failed to sync temp file")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return apperr.Wrap(err, apperr.CodeStorage, "failed to close temp file")
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		cleanup()
		return apperr.Wrap(err, apperr.CodeStorage, "failed to set permissions")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return apperr.Wrap(fmt.Errorf("rename %s: %w", tmpName, err), apperr.CodeStorage, "failed to replace fallback document")
	}
	return nil
}
