package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lumen/pkg/store"
)

// newPresetsCmd creates the "lumen presets" subcommand.
func newPresetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List saved presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}
			storage := store.NewStorage(paths.PresetsPath, paths.ConfigPath, nil)

			presets, migratedFrom, err := storage.LoadPresets()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if migratedFrom != nil {
				fmt.Fprintf(w, "(migrated presets document from v%d)\n", *migratedFrom)
			}
			if len(presets) == 0 {
				fmt.Fprintln(w, "no presets")
				return nil
			}
			for _, p := range presets {
				fmt.Fprintf(w, "%s", p.Name)
				if p.Description != "" {
					fmt.Fprintf(w, " (%s)", p.Description)
				}
				fmt.Fprintln(w)
				for _, tr := range p.Triggers {
					fmt.Fprintf(w, "  when %s\n", tr)
				}
				for _, a := range p.Actions {
					fmt.Fprintf(w, "  do   %s\n", a)
				}
			}
			return nil
		},
	}

	return cmd
}
