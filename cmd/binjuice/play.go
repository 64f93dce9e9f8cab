package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/binjuice/internal/app"
	"github.com/jmylchreest/binjuice/internal/audio"
	"github.com/jmylchreest/binjuice/internal/event"
)

var playOpts struct {
	timeout time.Duration
}

var playCmd = &cobra.Command{
	Use:   "play <event>",
	Short: "Play the sound configured for an event",
	Long: `Play the sound configured for one event and wait for it to finish.

The event may be given by its config name (function_added) or by its host
callback name (functionAdded).`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().DurationVar(&playOpts.timeout, "timeout", 30*time.Second,
		"Give up waiting for the sound after this long")
}

func runPlay(cmd *cobra.Command, args []string) error {
	kind, err := event.ParseKind(args[0])
	if err != nil {
		return err
	}

	cfg, table, err := loadSounds()
	if err != nil {
		return err
	}
	res, ok := table.Get(kind)
	if !ok {
		return fmt.Errorf("no sound configured for %s", kind)
	}

	out, err := app.OpenSpeaker(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, playOpts.timeout)
	defer cancel()

	player := audio.NewPlayer(out, float64(cfg.Audio.Volume)/100, nil, logger)
	return player.PlayAndWait(ctx, res)
}
