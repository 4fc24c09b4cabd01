package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// FileBlob stores each key as <dir>/<key>.json. Writes replace the file
// atomically, so readers never observe a partial blob.
type FileBlob struct {
	dir string
}

var _ Blob = (*FileBlob)(nil)

// NewFileBlob creates dir if needed and returns a FileBlob rooted there.
func NewFileBlob(dir string) (*FileBlob, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir %q: %w", dir, err)
	}
	return &FileBlob{dir: dir}, nil
}

func (f *FileBlob) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("store: invalid key %q", key)
	}
	return filepath.Join(f.dir, key+".json"), nil
}

// Get reads the blob stored under key.
func (f *FileBlob) Get(_ context.Context, key string) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	return data, nil
}

// Put replaces the blob stored under key.
func (f *FileBlob) Put(_ context.Context, key string, data []byte) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	return nil
}

// Delete removes the blob stored under key. Deleting a missing key is not an
// error.
func (f *FileBlob) Delete(_ context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("store: remove %s: %w", path, err)
	}
	return nil
}

// Close is a no-op.
func (f *FileBlob) Close() error { return nil }
