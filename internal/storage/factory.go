package storage

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MemoryKind = "memory"
	SQLiteKind = "sqlite"
)

var ErrUnsupportedStore = errors.New("unsupported store backend")

// NewStore builds the backend named by kind. The sqlite backend needs the
// sqlite build tag; path is ignored by the memory backend.
func NewStore(kind, path string) (Store, error) {
	switch strings.TrimSpace(strings.ToLower(kind)) {
	case "", MemoryKind:
		return NewMemoryStore(), nil
	case SQLiteKind:
		return newSQLiteStore(path)
	default:
		return nil, fmt.Errorf("%w: %s (options: %s, %s)", ErrUnsupportedStore, kind, MemoryKind, SQLiteKind)
	}
}

// CloseIfSupported closes backends that hold resources.
func CloseIfSupported(store Store) error {
	if closer, ok := store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
