package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/binjuice/internal/config"
)

var errCheckFailed = errors.New("check failed")

var checkOpts struct {
	watch bool
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and every configured sound",
	Long: `Load the config exactly as "binjuice run" would, decode every configured
sound and print what will be subscribed.

With --watch the check is repeated every time the config file is written.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVarP(&checkOpts.watch, "watch", "w", false,
		"Re-check whenever the config file changes")
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ok := checkOnce(out)

	if !checkOpts.watch {
		if !ok {
			return errCheckFailed
		}
		return nil
	}

	path := globalOpts.configPath
	if path == "" {
		path = config.ConfigPath()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var mu sync.Mutex
	watcher, err := config.NewWatcher(path, func(string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(out)
		checkOnce(out)
	}, logger)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer func() { _ = watcher.Stop() }()

	<-ctx.Done()
	return nil
}

// checkOnce prints one report and reports whether everything is usable.
func checkOnce(out io.Writer) bool {
	_, table, err := loadSounds()
	if err != nil {
		fmt.Fprintln(out, errStyle.Render(err.Error()))
		return false
	}

	rows := probeSounds(table)
	fmt.Fprint(out, renderSounds(rows, table.Mask()))

	for _, r := range rows {
		if r.Err != nil {
			return false
		}
	}
	return true
}
