package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by Lock when another process holds the state dir.
var ErrLocked = errors.New("store: state directory is locked by another spellbook")

// LockFileName is the lock file inside the state directory.
const LockFileName = "spellbook.lock"

// Lock takes an exclusive, non-blocking lock on dir so only one overlay
// writes its state. The returned func releases it.
func Lock(dir string) (func() error, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir %q: %w", dir, err)
	}
	lock := flock.New(filepath.Join(dir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("store: lock %s: %w", lock.Path(), err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return lock.Unlock, nil
}
