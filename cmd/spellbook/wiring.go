package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/bestiary"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/config"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/dynamis"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/logging"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/loop"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/overlay"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/spellbook"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/store"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/tome"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/tui"
)

type runOptions struct {
	tui     bool
	capture string
}

// wantTUI reports whether the strip should be drawn with bubbletea: enabled
// in config, not disabled by flag, and stdout is a terminal.
func wantTUI(cfg *config.Config, noTUI bool) bool {
	if noTUI || !cfg.TUI.Enabled {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// newLogger builds the process logger. With the TUI on, stderr belongs to the
// terminal UI, so an empty log path discards instead.
func newLogger(cfg *config.Config, useTUI bool) (*slog.Logger, io.Closer, error) {
	var fallback io.Writer = os.Stderr
	if useTUI {
		fallback = io.Discard
	}
	return logging.New(logging.Options{
		Level:    cfg.Log.Level,
		Path:     cfg.LogPath(),
		Fallback: fallback,
	})
}

// newTome builds the metadata cache backed by XIVAPI.
func newTome(cfg *config.Config, logger *slog.Logger) (*tome.Cache, error) {
	resolver, err := tome.NewXIVAPI(cfg.Tome.BaseURL)
	if err != nil {
		return nil, err
	}
	return tome.NewCache(resolver,
		tome.WithTimeout(cfg.Tome.Timeout()),
		tome.WithRetryAfter(cfg.Tome.RetryAfter()),
		tome.WithLogger(logger),
	), nil
}

// newLoop assembles the state containers around events. A nil now means the
// wall clock.
func newLoop(cfg *config.Config, events <-chan overlay.Event, cache *tome.Cache, now func() time.Time, logger *slog.Logger) *loop.Loop {
	opts := []spellbook.TrackerOption{
		spellbook.WithThreshold(cfg.Tracker.Threshold()),
		spellbook.WithFallbackRecast(cfg.Tracker.FallbackRecast()),
	}
	if now != nil {
		opts = append(opts, spellbook.WithClock(now))
	}
	return &loop.Loop{
		Events:   events,
		Tome:     cache,
		Book:     spellbook.NewBook(spellbook.NewTracker(opts...)),
		Bestiary: bestiary.New(now),
		World:    dynamis.New(now),
		Version:  version,
		Tick:     cfg.Tracker.Tick(),
		Logger:   logger,
	}
}

// executeRun locks the state directory, restores persisted state, connects
// to OverlayPlugin and runs until the socket closes, the user quits, or ctx
// is cancelled.
func executeRun(ctx context.Context, cfg *config.Config, opts runOptions) error {
	registerQuitHandler()

	logger, logCloser, err := newLogger(cfg, opts.tui)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	unlock, err := store.Lock(cfg.StateDir())
	if err != nil {
		return err
	}
	defer unlock()

	blob, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer blob.Close()
	persister := store.NewPersister(blob, cfg.Storage.Key)

	cache, err := newTome(cfg, logger)
	if err != nil {
		return err
	}

	client, err := overlay.Dial(ctx, cfg.Overlay.URL,
		overlay.WithHandshakeTimeout(cfg.Overlay.HandshakeTimeout()),
		overlay.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	events := client.Events()
	if opts.capture != "" {
		f, err := os.Create(opts.capture)
		if err != nil {
			return fmt.Errorf("create capture: %w", err)
		}
		defer f.Close()
		events = tee(events, f, logger)
	}

	lp := newLoop(cfg, events, cache, nil, logger)
	lp.Store = persister

	saved, found, err := persister.Load(ctx)
	switch {
	case err != nil:
		logger.Warn("persisted state unreadable, starting fresh", logging.Error(err))
	case found:
		lp.Restore(saved)
	}

	logger.Info("spellbook started",
		slog.String("version", version),
		slog.String("overlay", cfg.Overlay.URL),
		slog.String("state_dir", cfg.StateDir()))

	if opts.tui {
		err = runWithTUI(ctx, lp, cfg.TUI.AccentColor)
	} else {
		err = runPlain(ctx, lp, os.Stdout)
	}
	if err != nil {
		return err
	}

	if cerr := client.Err(); cerr != nil && !errors.Is(cerr, overlay.ErrClosed) {
		return cerr
	}
	return nil
}

// executeReplay feeds a capture file through a fresh loop and prints the
// strip as it changes, then the final resting set. Time follows the
// timestamps recorded in the capture. Nothing is persisted.
func executeReplay(ctx context.Context, cfg *config.Config, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	logger, logCloser, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	cache, err := newTome(cfg, logger)
	if err != nil {
		return err
	}

	clock := loop.NewEventClock(time.Time{})
	lp := newLoop(cfg, overlay.ParseStream(f), cache, clock.Now, logger)
	lp.Clock = clock
	lp.Settle = true
	lp.OnFrame = (&stripPrinter{out: out}).print

	if err := lp.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	snap := lp.Snapshot()
	fmt.Fprintln(out, renderResting(snap.Spellbook.Resting, lp.Book.Tracker().Now()))
	return nil
}

// stripPrinter writes a timestamped line whenever the rendered strip
// changes.
type stripPrinter struct {
	out  io.Writer
	last string
}

func (p *stripPrinter) print(f loop.Frame) {
	line := formatFrame(f)
	if line == p.last {
		return
	}
	p.last = line
	fmt.Fprintf(p.out, "[%s]  %s\n", f.At.Format("15:04:05"), line)
}

// runPlain runs the loop and prints strip changes from its own goroutine.
func runPlain(ctx context.Context, lp *loop.Loop, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan loop.Frame, 64)
	lp.Frames = frames

	printDone := make(chan struct{})
	go func() {
		defer close(printDone)
		p := &stripPrinter{out: out}
		for f := range frames {
			p.print(f)
		}
	}()

	err := lp.Run(ctx)
	close(frames)
	<-printDone

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runWithTUI runs the loop behind the bubbletea strip. Quitting the TUI stops
// the loop; the loop ending closes the TUI.
func runWithTUI(ctx context.Context, lp *loop.Loop, accentColor string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan loop.Frame, 64)
	lp.Frames = frames

	errCh := make(chan error, 1)
	go func() {
		defer close(frames)
		errCh <- lp.Run(ctx)
	}()

	program := tea.NewProgram(tui.New(frames, accentColor), tea.WithAltScreen(), tea.WithContext(ctx))
	_, tuiErr := program.Run()
	cancel()
	loopErr := <-errCh

	if tuiErr != nil && !errors.Is(tuiErr, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", tuiErr)
	}
	if loopErr != nil && !errors.Is(loopErr, context.Canceled) {
		return loopErr
	}
	return nil
}

// tee copies every event to w as one JSON line while forwarding it.
func tee(in <-chan overlay.Event, w io.Writer, logger *slog.Logger) <-chan overlay.Event {
	logger = logging.NewComponentLogger(logger, "capture")
	out := make(chan overlay.Event, cap(in))
	go func() {
		defer close(out)
		failed := false
		for ev := range in {
			if !failed {
				if err := writeEvent(w, ev); err != nil {
					logger.Warn("capture write failed, capture stopped", logging.Error(err))
					failed = true
				}
			}
			out <- ev
		}
	}()
	return out
}

func writeEvent(w io.Writer, ev overlay.Event) error {
	data, err := overlay.Encode(ev)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// formatFrame renders a frame as a single plain-text line.
func formatFrame(f loop.Frame) string {
	you := tui.OrPlaceholder(f.You)
	if !f.Visible {
		return you + "  │  nothing resting"
	}
	cells := make([]string, 0, len(f.Abilities))
	for _, r := range f.Abilities {
		cells = append(cells, fmt.Sprintf("%s %s", r.DisplayName(), formatSeconds(r.Remaining)))
	}
	return you + "  │  " + strings.Join(cells, ", ")
}
