package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const template = `# spellbook.toml — cooldown overlay configuration

[overlay]
url = "ws://127.0.0.1:10501/ws"  # OverlayPlugin websocket endpoint
handshake_timeout_seconds = 10

[tracker]
threshold_seconds = 3.0        # abilities this close to ready are hidden
tick_millis = 250
fallback_recast_seconds = 60.0 # used until an ability's metadata resolves

[tome]
base_url = "https://xivapi.com"
timeout_seconds = 10
retry_after_seconds = 30       # quiet period after a failed lookup

[storage]
backend = "file"               # "file" or "sqlite"
dir = ".spellbook"
key = "redux"

[tui]
enabled = true
accent_color = "#7D56F4"

[log]
level = "info"
file = "spellbook.log"         # inside storage.dir; empty = stderr
`

// InitFile writes a default spellbook.toml template to the given directory.
func InitFile(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config: %s already exists at %s", FileName, path)
	}

	if err := os.WriteFile(path, []byte(template), 0644); err != nil {
		return "", fmt.Errorf("config: write %s: %w", path, err)
	}
	return path, nil
}
