package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/config"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/loop"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/overlay"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/spellbook"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/store"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/tui"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return path, cfg
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(origDir) })
	require.NoError(t, os.Chdir(dir))

	out, err := execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created")
	assert.FileExists(t, filepath.Join(dir, config.FileName))

	_, err = execute(t, "init")
	assert.Error(t, err, "second init must not overwrite")
}

func TestStatusAndReset(t *testing.T) {
	path, cfg := writeConfig(t, "[log]\nfile = \"\"\n")

	out, err := execute(t, "status", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No persisted state")

	blob, err := store.Open(cfg)
	require.NoError(t, err)
	state := store.State{
		Version: "1.0.0",
		Spellbook: spellbook.State{
			You:   "Alice",
			Party: spellbook.Roster{"Alice": {ID: "10A1B2C3", Job: 28}},
			Resting: []spellbook.TrackedAbility{
				{ID: "A6", Name: "Aetherflow", StartedAt: time.Now(), Duration: 60 * time.Second, Resolved: true},
				{ID: "1D6B", StartedAt: time.Now(), Duration: 60 * time.Second, Seq: 1},
			},
		},
	}
	require.NoError(t, store.NewPersister(blob, cfg.Storage.Key).Save(context.Background(), state))
	require.NoError(t, blob.Close())

	out, err = execute(t, "status", "--config", path)
	require.NoError(t, err)
	for _, want := range []string{"Alice", "10A1B2C3", "Aetherflow", "#1D6B (pending)", "1.0.0"} {
		assert.Contains(t, out, want)
	}

	out, err = execute(t, "reset", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted state")

	out, err = execute(t, "status", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No persisted state")
}

func TestResetRefusesWhileRunning(t *testing.T) {
	_, cfg := writeConfig(t, "[log]\nfile = \"\"\n")

	unlock, err := store.Lock(cfg.StateDir())
	require.NoError(t, err)
	defer unlock()

	err = resetState(context.Background(), cfg, &bytes.Buffer{})
	assert.True(t, errors.Is(err, store.ErrLocked), "got %v", err)
}

func TestReplay(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ID":185,"Name":"Adloquium","Icon":"/i/002000/002801.png","Recast100ms":25}`))
	}))
	defer api.Close()

	path, _ := writeConfig(t, "[tome]\nbase_url = \""+api.URL+"\"\n\n[log]\nfile = \"\"\n")

	var capture bytes.Buffer
	for _, ev := range []overlay.Event{
		overlay.PrimaryPlayerEvent("1", "Alice"),
		overlay.LogLineEvent(overlay.Fields{"21", "ts", "10A1B2C3", "Alice", "A6", "Aetherflow", "E0000000", "", "0"}, ""),
		overlay.LogLineEvent(overlay.Fields{"21", "ts", "10B2C3D4", "Bob", "B9", "Adloquium", "E0000000", "", "0"}, ""),
	} {
		require.NoError(t, writeEvent(&capture, ev))
	}
	capturePath := filepath.Join(t.TempDir(), "capture.jsonl")
	require.NoError(t, os.WriteFile(capturePath, capture.Bytes(), 0o644))

	out, err := execute(t, "replay", capturePath, "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "A6", "Alice's ability should be resting")
	assert.NotContains(t, out, "B9", "another player's ability is ignored")
}

// slowWriter stalls on every write, like a terminal that cannot keep up.
type slowWriter struct {
	buf bytes.Buffer
}

func (w *slowWriter) Write(p []byte) (int, error) {
	time.Sleep(200 * time.Microsecond)
	return w.buf.Write(p)
}

// writeCapture encodes evs as a capture file and returns its path.
func writeCapture(t *testing.T, evs ...overlay.Event) string {
	t.Helper()
	var capture bytes.Buffer
	for _, ev := range evs {
		require.NoError(t, writeEvent(&capture, ev))
	}
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	require.NoError(t, os.WriteFile(path, capture.Bytes(), 0o644))
	return path
}

func stamped(ev overlay.Event, at time.Time) overlay.Event {
	ev.Timestamp = at
	return ev
}

func abilityLine(source, id string) overlay.Event {
	return overlay.LogLineEvent(overlay.Fields{"21", "ts", "10A1B2C3", source, id, "", "E0000000", "", "0"}, "")
}

// notFoundConfig writes a config whose metadata lookups all fail, so every
// ability keeps its fallback recast.
func notFoundConfig(t *testing.T) (string, *config.Config) {
	t.Helper()
	api := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(api.Close)
	return writeConfig(t, "[tome]\nbase_url = \""+api.URL+"\"\n\n[log]\nfile = \"\"\n")
}

func stripLines(out, who string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "[") && strings.Contains(line, who+"  │  ") {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestReplayPrintsEveryStripChange(t *testing.T) {
	const n = 200
	base := time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)
	evs := []overlay.Event{stamped(overlay.PrimaryPlayerEvent("1", "Alice"), base)}
	for i := 0; i < n; i++ {
		evs = append(evs, stamped(abilityLine("Alice", fmt.Sprintf("%X", 0x1000+i)), base))
	}
	capturePath := writeCapture(t, evs...)
	_, cfg := notFoundConfig(t)

	out := &slowWriter{}
	require.NoError(t, executeReplay(context.Background(), cfg, capturePath, out))

	lines := stripLines(out.buf.String(), "Alice")
	require.Len(t, lines, n+1, "identity plus one line per new resting ability")
	assert.Contains(t, lines[0], "nothing resting")
	assert.Contains(t, lines[n], "#10C7 60s")
}

func TestReplayFollowsCaptureTime(t *testing.T) {
	base := time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)
	capturePath := writeCapture(t,
		stamped(overlay.PrimaryPlayerEvent("1", "Alice"), base),
		stamped(abilityLine("Alice", "A6"), base),
		stamped(overlay.ZoneChangedEvent(132, "New Gridania"), base.Add(70*time.Second)),
	)

	path, _ := notFoundConfig(t)
	out, err := execute(t, "replay", capturePath, "--config", path)
	require.NoError(t, err)

	lines := stripLines(out, "Alice")
	require.Len(t, lines, 3)
	assert.Equal(t, "[20:00:00]  Alice  │  #A6 60s", lines[1])
	assert.Equal(t, "[20:01:10]  Alice  │  nothing resting", lines[2])

	table := out[strings.LastIndex(out, lines[2])+len(lines[2]):]
	assert.NotContains(t, table, "A6", "an expired ability is pruned before the final table")
}

func TestTeeRecordsReplayableCapture(t *testing.T) {
	in := make(chan overlay.Event, 3)
	in <- overlay.PrimaryPlayerEvent("1", "Alice")
	in <- overlay.ZoneChangedEvent(132, "New Gridania")
	in <- overlay.PartyChangedEvent([]overlay.Member{{ID: "1", Name: "Alice", Job: 24, InParty: true}})
	close(in)

	var buf bytes.Buffer
	var forwarded []overlay.EventType
	for ev := range tee(in, &buf, nil) {
		forwarded = append(forwarded, ev.Type)
	}

	var replayed []overlay.EventType
	for ev := range overlay.ParseStream(&buf) {
		replayed = append(replayed, ev.Type)
	}

	want := []overlay.EventType{overlay.EventPrimaryPlayer, overlay.EventZoneChanged, overlay.EventPartyChanged}
	assert.Equal(t, want, forwarded)
	assert.Equal(t, want, replayed)
}

func TestFormatFrame(t *testing.T) {
	tests := []struct {
		name  string
		frame loop.Frame
		want  string
	}{
		{"unknown player", loop.Frame{}, tui.Placeholder + "  │  nothing resting"},
		{"hidden", loop.Frame{You: "Alice", Resting: 2}, "Alice  │  nothing resting"},
		{
			"visible",
			loop.Frame{
				You:     "Alice",
				Visible: true,
				Abilities: []spellbook.Resting{
					{ID: "B9", Name: "Adloquium", Remaining: 4200 * time.Millisecond},
					{ID: "1D6B", Remaining: 50 * time.Second},
				},
			},
			"Alice  │  Adloquium 5s, #1D6B 50s",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatFrame(tt.frame))
		})
	}
}

func TestWantTUI(t *testing.T) {
	cfg := config.Defaults()
	assert.False(t, wantTUI(&cfg, true), "--no-tui wins")

	cfg.TUI.Enabled = false
	assert.False(t, wantTUI(&cfg, false), "disabled in config")
}

func TestRenderRestingPending(t *testing.T) {
	now := time.Now()
	out := renderResting([]spellbook.TrackedAbility{
		{ID: "40", StartedAt: now.Add(-10 * time.Second), Duration: 60 * time.Second},
	}, now)
	assert.Contains(t, out, "#40 (pending)")
	assert.Contains(t, out, "50s")
	assert.Contains(t, out, "60s")
}
