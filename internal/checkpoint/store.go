package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"CycleScan/internal/model"
)

// ErrNotFound means no checkpoint exists for the session.
var ErrNotFound = errors.New("checkpoint not found")

// Store persists scan progress durably. Saves are atomic: a partially
// written checkpoint is never observable.
type Store interface {
	Load(sessionID string) (*model.ScanCheckpoint, error)
	Save(cp *model.ScanCheckpoint) error
	Clear(sessionID string) error
}

// FileStore keeps one JSON checkpoint file per session id under a
// directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the checkpoint directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

// Load reads a session checkpoint. A schema version other than the current
// one fails closed rather than silently misreading old state.
func (s *FileStore) Load(sessionID string) (*model.ScanCheckpoint, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp model.ScanCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	if cp.Version != model.CheckpointSchemaVersion {
		return nil, fmt.Errorf("checkpoint schema version %d not supported (want %d); clear progress before re-running",
			cp.Version, model.CheckpointSchemaVersion)
	}
	cp.RebuildIndex()
	return &cp, nil
}

// Save writes the checkpoint to a temporary file then renames it into
// place.
func (s *FileStore) Save(cp *model.ScanCheckpoint) error {
	cp.LastSavedAt = time.Now().UTC()
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	path := s.path(cp.SessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// Clear removes a session's checkpoint. Clearing a missing checkpoint is
// not an error.
func (s *FileStore) Clear(sessionID string) error {
	if err := os.Remove(s.path(sessionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}
