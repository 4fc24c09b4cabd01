// Package store persists the overlay's aggregate state as a single blob under
// a fixed key. Every state transition rewrites the whole blob; there is no
// diffing and no schema versioning of the blob itself.
//
// Two blob backends exist: FileBlob (one JSON file per key, replaced
// atomically) and SQLiteBlob (a key/value table). One Persister is created
// per run in cmd/spellbook/wiring.go and owned by the event loop.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/bestiary"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/config"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/dynamis"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/spellbook"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/tome"
)

// ErrNotFound is returned by Blob.Get when nothing is stored under the key.
var ErrNotFound = errors.New("store: not found")

// Blob is an opaque key/value store.
type Blob interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// State is the aggregate of every independent state container.
type State struct {
	Version   string                    `json:"version"`
	Spellbook spellbook.State           `json:"spellbook"`
	Tome      map[string]tome.Action    `json:"tome"`
	Bestiary  map[string]bestiary.Entry `json:"bestiary"`
	Dynamis   dynamis.State             `json:"dynamis"`
}

// Open returns the blob backend selected by cfg.Storage.Backend, rooted at
// the config's state directory.
func Open(cfg *config.Config) (Blob, error) {
	dir := cfg.StateDir()
	switch cfg.Storage.Backend {
	case config.BackendFile:
		return NewFileBlob(dir)
	case config.BackendSQLite:
		return NewSQLiteBlob(dir)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Storage.Backend)
	}
}
