package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// fileKVStore keeps one file per key under dir. Values are written to a
// temporary file and renamed into place while holding an flock, so readers
// never see a partial value.
type fileKVStore struct {
	dir string
}

// NewFileKVStore creates a KVStore backed by files under dir. The directory
// is created on the first Set.
func NewFileKVStore(dir string) KVStore {
	return &fileKVStore{dir: dir}
}

func (s *fileKVStore) keyPath(key string) string {
	return filepath.Join(s.dir, key+".yaml")
}

func (s *fileKVStore) lockPath() string {
	return filepath.Join(s.dir, ".lock")
}

// Get returns the stored value, or ErrKeyNotFound.
func (s *fileKVStore) Get(key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Set replaces the value stored under key.
func (s *fileKVStore) Set(key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	unlock, err := lockFile(s.lockPath())
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	defer func() { _ = unlock() }()

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing %s: creating temp file: %w", key, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, s.keyPath(key)); err != nil {
		return fmt.Errorf("writing %s: replacing file: %w", key, err)
	}
	return nil
}

// Close is a no-op; files are not held open between calls.
func (s *fileKVStore) Close() error { return nil }
