// Package config parses spellbook.toml overlay configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by Load.
const FileName = "spellbook.toml"

// DefaultAccentColor is the default TUI accent color (indigo).
const DefaultAccentColor = "#7D56F4"

// Storage backends accepted by storage.backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// hexColorRe matches a 6-digit hex color string like "#7D56F4".
var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Config is the top-level spellbook.toml configuration.
type Config struct {
	Overlay OverlayConfig `toml:"overlay"`
	Tracker TrackerConfig `toml:"tracker"`
	Tome    TomeConfig    `toml:"tome"`
	Storage StorageConfig `toml:"storage"`
	TUI     TUIConfig     `toml:"tui"`
	Log     LogConfig     `toml:"log"`

	// Dir is the directory holding the loaded file. Relative storage paths
	// resolve against it.
	Dir string `toml:"-"`
}

// OverlayConfig controls the OverlayPlugin websocket connection.
type OverlayConfig struct {
	URL                     string `toml:"url"`
	HandshakeTimeoutSeconds int    `toml:"handshake_timeout_seconds"`
}

// TrackerConfig controls the cooldown tracker.
type TrackerConfig struct {
	ThresholdSeconds      float64 `toml:"threshold_seconds"`
	TickMillis            int     `toml:"tick_millis"`
	FallbackRecastSeconds float64 `toml:"fallback_recast_seconds"`
}

// TomeConfig controls ability metadata resolution.
type TomeConfig struct {
	BaseURL           string `toml:"base_url"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	RetryAfterSeconds int    `toml:"retry_after_seconds"`
}

// StorageConfig controls where the aggregate state is persisted.
type StorageConfig struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`
	Key     string `toml:"key"`
}

// TUIConfig controls the terminal strip.
type TUIConfig struct {
	Enabled     bool   `toml:"enabled"`
	AccentColor string `toml:"accent_color"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"` // relative to storage.dir; empty = stderr
}

// Threshold returns the display threshold as a duration.
func (t TrackerConfig) Threshold() time.Duration {
	return seconds(t.ThresholdSeconds)
}

// Tick returns the recompute tick interval.
func (t TrackerConfig) Tick() time.Duration {
	return time.Duration(t.TickMillis) * time.Millisecond
}

// FallbackRecast returns the duration used while metadata is unresolved.
func (t TrackerConfig) FallbackRecast() time.Duration {
	return seconds(t.FallbackRecastSeconds)
}

// Timeout returns the per-request metadata timeout.
func (t TomeConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// RetryAfter returns the quiet period after a failed metadata fetch.
func (t TomeConfig) RetryAfter() time.Duration {
	return time.Duration(t.RetryAfterSeconds) * time.Second
}

// HandshakeTimeout returns the websocket dial timeout.
func (o OverlayConfig) HandshakeTimeout() time.Duration {
	return time.Duration(o.HandshakeTimeoutSeconds) * time.Second
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// StateDir returns storage.dir resolved against the config file directory.
func (c *Config) StateDir() string {
	if filepath.IsAbs(c.Storage.Dir) || c.Dir == "" {
		return c.Storage.Dir
	}
	return filepath.Join(c.Dir, c.Storage.Dir)
}

// LogPath returns the log file path, or "" when logging goes to stderr.
func (c *Config) LogPath() string {
	if c.Log.File == "" {
		return ""
	}
	if filepath.IsAbs(c.Log.File) {
		return c.Log.File
	}
	return filepath.Join(c.StateDir(), c.Log.File)
}

// Validate checks the configuration for issues that would cause confusing
// runtime failures. It returns all found issues joined together.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.Overlay.URL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		errs = append(errs, fmt.Errorf("overlay.url must be a ws:// or wss:// URL"))
	}
	if c.Overlay.HandshakeTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("overlay.handshake_timeout_seconds must be > 0"))
	}

	if c.Tracker.ThresholdSeconds < 0 {
		errs = append(errs, fmt.Errorf("tracker.threshold_seconds must be >= 0"))
	}
	if c.Tracker.TickMillis <= 0 {
		errs = append(errs, fmt.Errorf("tracker.tick_millis must be > 0"))
	}
	if c.Tracker.FallbackRecastSeconds <= 0 {
		errs = append(errs, fmt.Errorf("tracker.fallback_recast_seconds must be > 0"))
	}

	if u, err := url.ParseRequestURI(c.Tome.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("tome.base_url must be a valid http or https URL"))
	}
	if c.Tome.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("tome.timeout_seconds must be > 0"))
	}
	if c.Tome.RetryAfterSeconds < 0 {
		errs = append(errs, fmt.Errorf("tome.retry_after_seconds must be >= 0"))
	}

	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be %q or %q", BackendFile, BackendSQLite))
	}
	if strings.TrimSpace(c.Storage.Dir) == "" {
		errs = append(errs, fmt.Errorf("storage.dir must not be empty"))
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		errs = append(errs, fmt.Errorf("storage.key must not be empty"))
	}

	if c.TUI.AccentColor != "" && !hexColorRe.MatchString(c.TUI.AccentColor) {
		errs = append(errs, fmt.Errorf("tui.accent_color must be a hex color (e.g. \"#7D56F4\")"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error"))
	}

	return errors.Join(errs...)
}

// Defaults returns a Config with the stock overlay settings.
func Defaults() Config {
	return Config{
		Overlay: OverlayConfig{
			URL:                     "ws://127.0.0.1:10501/ws",
			HandshakeTimeoutSeconds: 10,
		},
		Tracker: TrackerConfig{
			ThresholdSeconds:      3,
			TickMillis:            250,
			FallbackRecastSeconds: 60,
		},
		Tome: TomeConfig{
			BaseURL:           "https://xivapi.com",
			TimeoutSeconds:    10,
			RetryAfterSeconds: 30,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Dir:     ".spellbook",
			Key:     "redux",
		},
		TUI: TUIConfig{
			Enabled:     true,
			AccentColor: DefaultAccentColor,
		},
		Log: LogConfig{
			Level: "info",
			File:  "spellbook.log",
		},
	}
}

// Load reads spellbook.toml from the given path. If path is empty, it walks
// up from the current working directory looking for spellbook.toml. Returns
// an error if the file contains unknown keys (likely typos) or fails Validate.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := findConfig()
		if err != nil {
			return nil, err
		}
		path = found
	}

	cfg := Defaults()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: unknown keys in %s: %s (possible typos?)", path, strings.Join(keys, ", "))
	}

	if abs, absErr := filepath.Abs(path); absErr == nil {
		path = abs
	}
	cfg.Dir = filepath.Dir(path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// findConfig walks up from the current directory looking for spellbook.toml.
func findConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("config: get working directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("config: %s not found (searched up from %s)", FileName, dir)
		}
		dir = parent
	}
}
