// Package storage persists named participant lists behind a small key-value
// interface with file, SQLite and in-memory backends.
package storage

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/valter-silva-au/task-wheel/pkg/models"
)

// ErrKeyNotFound is returned by KVStore.Get for a key that was never set.
var ErrKeyNotFound = errors.New("key not found")

// validKey restricts keys to names that are safe as file names.
var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// KVStore stores opaque values by string key.
type KVStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Close() error
}

// OpenKVStore opens the backend named by backend at path. For the yaml
// backend path is a directory; for sqlite it is the database file.
func OpenKVStore(backend, path string) (KVStore, error) {
	switch backend {
	case models.StoreBackendYAML, "":
		return NewFileKVStore(path), nil
	case models.StoreBackendSQLite:
		return NewSQLiteKVStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}
