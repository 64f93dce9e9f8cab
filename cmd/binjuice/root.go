// Package main provides the CLI entrypoint for binjuice.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/binjuice/internal/audio"
	"github.com/jmylchreest/binjuice/internal/config"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var (
	globalOpts struct {
		verbose    bool
		configPath string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "binjuice",
	Short: "Sound effects for binary analysis events",
	Long: `binjuice plays a sound when something happens in your analysis session.

Every event the host raises (functions added, symbols renamed, types defined,
undo and redo, ...) can be mapped to a sound file in the config. Events without
a sound are never subscribed to, so they cost nothing.

Run "binjuice run" to start the service the host shim talks to.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger(slog.LevelWarn)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/binjuice/binjuice.toml)")
}

// setupLogger configures the global slog logger. --verbose always wins.
func setupLogger(level slog.Level) {
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// loadSounds loads the config and every sound it names.
func loadSounds() (*config.Config, *audio.Table, error) {
	cfg, err := config.LoadConfig(globalOpts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	paths, err := cfg.SoundPaths()
	if err != nil {
		return nil, nil, err
	}

	table, err := audio.Load(paths)
	if err != nil {
		return nil, nil, err
	}
	return cfg, table, nil
}
