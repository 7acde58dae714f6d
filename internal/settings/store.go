// Package settings persists the handful of client preferences, most
// importantly the server base address.
package settings

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrNoStore is returned when a value is written to a Config without a Store.
var ErrNoStore = errors.New("no settings store configured")

// KeyServerURL holds the REST server base address.
const KeyServerURL = "serverUrl"

// Store is a small persistent key-value store.
type Store interface {
	// Get returns the value and whether it was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Close() error
}

const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Open opens the store for backend under dir.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStore(filepath.Join(dir, "settings.json")), nil
	case BackendBadger:
		return NewBadgerStore(filepath.Join(dir, "settings.badger"))
	default:
		return nil, fmt.Errorf("unknown settings backend %q (want %s or %s)", backend, BackendFile, BackendBadger)
	}
}
