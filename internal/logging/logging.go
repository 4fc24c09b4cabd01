// Package logging builds the slog loggers used across the overlay.
//
// Components take a *slog.Logger and tag it with NewComponentLogger so every
// line carries component=<name>. NewNop serves tests and wiring that has no
// logger yet.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Field names shared by all components.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldAbility   = "ability_id"
	FieldEvent     = "event"
)

// Options describes logger construction parameters.
type Options struct {
	Level string
	// Path is the log file. Empty writes to Fallback (stderr when nil).
	Path     string
	Fallback io.Writer
}

// New constructs a text slog logger tagged with a fresh run id. The returned
// closer releases the log file and is never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	out := opts.Fallback
	if out == nil {
		out = os.Stderr
	}
	var closer io.Closer = nopCloser{}

	if path := strings.TrimSpace(opts.Path); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("logging: ensure log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: open %s: %w", path, err)
		}
		out, closer = f, f
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: ParseLevel(opts.Level)})
	logger := slog.New(handler).With(slog.String(FieldRunID, uuid.NewString()))
	return logger, closer, nil
}

// ParseLevel maps a config level name to a slog level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(noopHandler{})
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (noopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h noopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h noopHandler) WithGroup(string) slog.Handler           { return h }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Error returns an "error" attribute for err.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}
