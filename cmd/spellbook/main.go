// Package main is the entry point for the Spellbook CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/config"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/store"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "spellbook",
		Short:        "Spellbook — cooldown strip for OverlayPlugin",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "path to spellbook.toml (default: search upward from cwd)")

	root.AddCommand(
		runCmd(),
		replayCmd(),
		statusCmd(),
		resetCmd(),
		initCmd(),
	)

	return root
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to OverlayPlugin and track cooldowns",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			noTUI, _ := cmd.Flags().GetBool("no-tui")
			capture, _ := cmd.Flags().GetString("capture")
			return executeRun(signalContext(), cfg, runOptions{
				tui:     wantTUI(cfg, noTUI),
				capture: capture,
			})
		},
	}
	cmd.Flags().Bool("no-tui", false, "print strip changes as plain lines instead of the TUI")
	cmd.Flags().String("capture", "", "also record received events to this JSONL file")
	return cmd
}

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <capture.jsonl>",
		Short: "Feed a captured event stream through the tracker without persisting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return executeReplay(signalContext(), cfg, args[0], cmd.OutOrStdout())
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the persisted overlay state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return showStatus(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the persisted overlay state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return resetState(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create spellbook.toml in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			path, err := config.InitFile(dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// resetState deletes the persisted blob. It refuses while an overlay holds
// the state directory.
func resetState(ctx context.Context, cfg *config.Config, out io.Writer) error {
	unlock, err := store.Lock(cfg.StateDir())
	if errors.Is(err, store.ErrLocked) {
		return fmt.Errorf("reset: stop the running overlay first: %w", err)
	}
	if err != nil {
		return err
	}
	defer unlock()

	blob, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer blob.Close()

	if err := store.NewPersister(blob, cfg.Storage.Key).Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted state %q from %s\n", cfg.Storage.Key, cfg.StateDir())
	return nil
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()
	return ctx
}
