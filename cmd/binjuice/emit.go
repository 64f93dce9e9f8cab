package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/binjuice/internal/dbus"
	"github.com/jmylchreest/binjuice/internal/event"
	"github.com/jmylchreest/binjuice/internal/registry"
)

var emitOpts struct {
	timeout time.Duration
}

var emitCmd = &cobra.Command{
	Use:   "emit",
	Short: "Send host events to a running binjuice service",
	Long: `Talk to a running "binjuice run" the way the host shim does. Useful for
trying out a sound setup without the analysis host.

Document handles may be decimal or 0x-prefixed.`,
}

var emitAttachCmd = &cobra.Command{
	Use:   "attach <handle>",
	Short: "Announce that a document finished its initial analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := parseHandle(args[0])
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *dbus.Client) error {
			return c.AnalysisComplete(ctx, doc)
		})
	},
}

var emitSubscriptionCmd = &cobra.Command{
	Use:   "subscription <handle>",
	Short: "Print the callbacks the service wants forwarded for a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := parseHandle(args[0])
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *dbus.Client) error {
			names, err := c.Subscription(ctx, doc)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
			return err
		})
	},
}

var emitNotifyCmd = &cobra.Command{
	Use:   "notify <handle> <event> [args...]",
	Short: "Relay one host callback",
	Long: `Relay one host callback with its arguments. Run "binjuice events" to see
the arguments each callback takes.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := parseHandle(args[0])
		if err != nil {
			return err
		}
		kind, raw, err := parseNotification(args[1], args[2:])
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *dbus.Client) error {
			_, err := c.Notify(ctx, doc, kind.WireName(), raw...)
			return err
		})
	},
}

// parseNotification resolves a callback name and its textual arguments.
// Lifecycle kinds have no callback and are rejected.
func parseNotification(name string, text []string) (event.Kind, []any, error) {
	kind, err := event.ParseKind(name)
	if err != nil {
		return 0, nil, err
	}
	if !kind.Subscribable() {
		return 0, nil, fmt.Errorf("%s is a lifecycle event, use attach or close instead", kind)
	}
	raw, err := event.ParseText(kind, text)
	if err != nil {
		return 0, nil, err
	}
	return kind, raw, nil
}

var emitCloseCmd = &cobra.Command{
	Use:   "close <handle>",
	Short: "Announce that a document was closed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := parseHandle(args[0])
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *dbus.Client) error {
			return c.DocumentClosed(ctx, doc)
		})
	},
}

func init() {
	rootCmd.AddCommand(emitCmd)
	emitCmd.AddCommand(emitAttachCmd, emitSubscriptionCmd, emitNotifyCmd, emitCloseCmd)

	emitCmd.PersistentFlags().DurationVar(&emitOpts.timeout, "timeout", 5*time.Second,
		"D-Bus call timeout")
}

func parseHandle(s string) (registry.DocumentID, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid document handle %q: %w", s, err)
	}
	return registry.DocumentID(n), nil
}

func withClient(fn func(ctx context.Context, c *dbus.Client) error) error {
	c, err := dbus.Dial(logger)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), emitOpts.timeout)
	defer cancel()
	return fn(ctx, c)
}
