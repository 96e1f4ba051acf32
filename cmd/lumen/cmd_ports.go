package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lumen/pkg/midi"
)

// newPortsCmd creates the "lumen ports" subcommand.
func newPortsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List available MIDI input ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := midi.NewInput(nil)
			if err != nil {
				return err
			}
			defer in.Close()

			ports, err := in.Ports()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(ports) == 0 {
				fmt.Fprintln(w, "no midi inputs")
				return nil
			}
			for _, name := range ports {
				fmt.Fprintln(w, name)
			}
			return nil
		},
	}

	return cmd
}
