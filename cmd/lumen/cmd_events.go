package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lumen/pkg/telemetry"
)

// eventsConfig holds configuration for the events command.
type eventsConfig struct {
	kind  string
	limit int
	since time.Duration
}

// newEventsCmd creates the "lumen events" subcommand.
func newEventsCmd() *cobra.Command {
	var cfg eventsConfig

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Query the controller telemetry log",
		Long:  "Displays recorded controller activity: connection transitions,\nbeat and tempo pushes, fader moves, and errors.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}

			reader, err := telemetry.NewReader(paths.EventsDBPath)
			if err != nil {
				return err
			}
			defer reader.Close()

			opts := telemetry.QueryOpts{Kind: cfg.kind, Limit: cfg.limit}
			if cfg.since > 0 {
				after := time.Now().Add(-cfg.since)
				opts.After = &after
			}

			events, err := reader.Query(cmd.Context(), opts)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(w, "no events found")
				return nil
			}
			for _, e := range events {
				fmt.Fprintf(w, "%s | %-16s | %s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Kind, e.Detail)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.kind, "kind", "", "filter by event kind (e.g. beat_on, fader_change, error)")
	cmd.Flags().IntVar(&cfg.limit, "limit", 50, "number of most recent events to show (0 = all)")
	cmd.Flags().DurationVar(&cfg.since, "since", 0, "only events newer than this age (e.g. 1h)")
	return cmd
}
