package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists properties as a single JSON object on disk.
// Writes are atomic: the document is written to a temporary file next to
// the target and renamed over it, so a crash mid-write never leaves a
// truncated state file behind.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store backed by the JSON file at path.
// The file and its parent directory are created on first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns the conventional location of the state file,
// $XDG_CACHE_HOME/threadkeeper/state.json or the platform equivalent.
func DefaultPath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine cache directory: %w", err)
	}
	return filepath.Join(cacheDir, "threadkeeper", "state.json"), nil
}

// Path returns the location of the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the value stored under key. A missing file reads as an
// empty property set, not an error.
func (s *FileStore) Get(key string) (string, bool, error) {
	props, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := props[key]
	return v, ok, nil
}

// Set stores value under key, preserving all other properties.
func (s *FileStore) Set(key, value string) error {
	props, err := s.load()
	if err != nil {
		return err
	}
	props[key] = value

	data, err := json.MarshalIndent(props, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	return atomicWriteFile(s.path, data, 0600)
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	props := map[string]string{}
	if len(data) == 0 {
		return props, nil
	}
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	return props, nil
}

// atomicWriteFile writes data to a temporary file and renames it over path.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
