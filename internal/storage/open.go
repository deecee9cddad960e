package storage

import (
	"fmt"
	"strings"
)

// Open returns the store for the configured backend ("sqlite" or "file").
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "sqlite":
		return NewSQLiteStore(path)
	case "file":
		return NewFileStore(path)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", backend)
	}
}
