package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/posecoach/internal/config"
	"github.com/ayusman/posecoach/internal/store"
)

// Version is the application version.
const Version = "0.1.0"

// noStore marks commands that do not touch the history database.
const noStore = "no-store"

var (
	// cfg is loaded before every command runs.
	cfg *config.Config
	// history is the shared history store, nil for noStore commands.
	history *store.Store

	configPath string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:           "posecoach",
	Short:         "Rate exercise recordings against a reference motion",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
		} else {
			cfg = config.Default()
		}
		if dbPath != "" {
			cfg.History.Path = dbPath
		}

		if cmd.Annotations[noStore] != "" {
			return nil
		}

		if dir := filepath.Dir(cfg.History.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		history, err = store.New(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if history != nil {
			history.Close()
			history = nil
		}
	},
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "history database path (overrides history.path)")
}
