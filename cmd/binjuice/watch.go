package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/binjuice/internal/dbus"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print subscription changes of a running service",
	Long: `Follow the Subscribed and Unsubscribed signals of a running binjuice
service and print one line per change, until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	c, err := dbus.Dial(logger)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	err = c.Watch(ctx, func(change dbus.SubscriptionChange) {
		fmt.Fprintln(out, formatChange(time.Now(), change))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func formatChange(at time.Time, change dbus.SubscriptionChange) string {
	stamp := labelStyle.Render(at.Format(time.TimeOnly))
	if !change.Subscribed {
		return fmt.Sprintf("%s %s %s", stamp, errStyle.Render("unsubscribed"), change.Doc)
	}
	return fmt.Sprintf("%s %s %s %s", stamp, okStyle.Render("subscribed"), change.Doc,
		strings.Join(change.Events, ","))
}
