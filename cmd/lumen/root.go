package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lumen/internal/version"
)

// newRootCmd creates the root lumen command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lumen",
		Short:         "MIDI to lighting-controller bridge",
		Long:          "lumen maps MIDI events to actions on a remote lighting controller.\nPresets pair MIDI triggers with named controller buttons.",
		Version:       fmt.Sprintf("lumen %s", version.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newRunCmd(),
		newButtonsCmd(),
		newSendCmd(),
		newPresetsCmd(),
		newPortsCmd(),
		newEventsCmd(),
	)

	return cmd
}
