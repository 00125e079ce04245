package engine

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// spillStore stages one serialized window artifact per (date, hour) on
// local disk when every retry against the archive backend is exhausted
// for an attempt. The retry sweep's next attempt for that slot loads the
// staged bytes instead of re-issuing the windowed record-store query,
// skipping straight to compress/upload. Adapted from the local-buffer
// failover idea in internal/outputs/azure_blob/local_buffer.go, reshaped
// from an append-only stream buffer into a keyed one-shot spill file
// since each slot produces exactly one artifact per attempt.
type spillStore struct {
	dir string
}

func newSpillStore(dir string) *spillStore {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "logbatcher-spill")
	}
	return &spillStore{dir: dir}
}

func (s *spillStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".spill")
}

// Save stages data under key, overwriting any prior spill for the slot.
func (s *spillStore) Save(key string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("spill: mkdir: %w", err)
	}
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("spill: write: %w", err)
	}
	return nil
}

// Load returns the staged bytes for key, ok=false when nothing is staged.
func (s *spillStore) Load(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("spill: read: %w", err)
	}
	return data, true, nil
}

// Delete clears any staged spill for key; a no-op if none exists.
func (s *spillStore) Delete(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("spill: remove: %w", err)
	}
	return nil
}
