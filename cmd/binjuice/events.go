package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/binjuice/internal/event"
)

var eventsOpts struct {
	hostOnly bool
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List every event a sound can be attached to",
	Long: `List the event catalog: the name used in the [sounds] table, the host
callback it corresponds to and the arguments the host passes with it.

Lifecycle events are raised by binjuice itself when it starts and stops and
when a document is attached or closed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds := event.All()
		if eventsOpts.hostOnly {
			kinds = kinds[:0]
			for _, k := range event.All() {
				if k.Subscribable() {
					kinds = append(kinds, k)
				}
			}
		}
		_, err := fmt.Fprint(cmd.OutOrStdout(), renderCatalog(kinds))
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().BoolVar(&eventsOpts.hostOnly, "host-only", false,
		"Only list events raised by the host")
}
