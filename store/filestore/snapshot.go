// Package filestore keeps each record set in memory and persists it as a
// single JSON document. Every write replaces the document atomically.
package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// snapshot reads and writes one JSON array file. It is not safe for
// concurrent use; callers hold their own lock.
type snapshot[T any] struct {
	path string
}

// load returns the records on disk. A missing file yields (nil, false, nil)
// so the caller can initialise it; any other failure is returned as is.
func (s snapshot[T]) load() ([]T, bool, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", s.path, err)
	}

	var records []T
	if len(raw) == 0 {
		return records, true, nil
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, true, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return records, true, nil
}

// save writes records to a temp file in the same directory, syncs it and
// renames it over the target so readers see either the old or the new set.
func (s snapshot[T]) save(records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
