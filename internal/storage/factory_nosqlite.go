//go:build !sqlite

package storage

import "fmt"

// DefaultStoreKind is the backend used when none is configured.
func DefaultStoreKind() string {
	return MemoryKind
}

func newSQLiteStore(_ string) (Store, error) {
	return nil, fmt.Errorf("sqlite backend unavailable in this build; rebuild with -tags sqlite")
}
