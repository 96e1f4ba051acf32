package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newButtonsCmd creates the "lumen buttons" subcommand.
func newButtonsCmd() *cobra.Command {
	var flags connectFlags

	cmd := &cobra.Command{
		Use:   "buttons",
		Short: "List the controller's current button catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := dialController(cmd.Context(), &flags)
			if err != nil {
				return err
			}
			defer s.Close()

			buttons, err := s.Buttons(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch catalog: %w", err)
			}

			w := cmd.OutOrStdout()
			if len(buttons) == 0 {
				fmt.Fprintln(w, "no buttons")
				return nil
			}
			for _, b := range buttons {
				fmt.Fprintf(w, "%4d  %s\n", b.Index, b.Name)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
