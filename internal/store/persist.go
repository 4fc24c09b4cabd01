package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Persister reads and writes the aggregate State under one fixed key.
type Persister struct {
	blob Blob
	key  string
}

// NewPersister creates a Persister writing to blob under key.
func NewPersister(blob Blob, key string) *Persister {
	return &Persister{blob: blob, key: key}
}

// Key returns the persistence key.
func (p *Persister) Key() string { return p.key }

// Save serializes s and overwrites the stored blob.
func (p *Persister) Save(ctx context.Context, s State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("store: marshal state: %w", err)
	}
	return p.blob.Put(ctx, p.key, data)
}

// Load returns the stored state. found is false when nothing was stored yet.
func (p *Persister) Load(ctx context.Context) (s State, found bool, err error) {
	data, err := p.blob.Get(ctx, p.key)
	if errors.Is(err, ErrNotFound) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, false, fmt.Errorf("store: parse state: %w", err)
	}
	return s, true, nil
}

// Reset deletes the stored state.
func (p *Persister) Reset(ctx context.Context) error {
	return p.blob.Delete(ctx, p.key)
}
