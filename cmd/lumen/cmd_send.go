package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lumen/pkg/preset"
	"lumen/pkg/store"
)

// newSendCmd creates the "lumen send" subcommand: one action, dispatched
// immediately, bypassing presets and delays.
func newSendCmd() *cobra.Command {
	var flags connectFlags
	var kind string

	cmd := &cobra.Command{
		Use:   "send <button-name>",
		Short: "Press, release, or toggle one controller button",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			actionKind, err := resolveKind(kind)
			if err != nil {
				return err
			}

			s, err := dialController(cmd.Context(), &flags)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			switch actionKind {
			case preset.Press:
				err = s.Press(ctx, name)
			case preset.Release:
				err = s.Release(ctx, name)
			case preset.Toggle:
				err = s.Toggle(ctx, name)
			}
			if err != nil {
				return fmt.Errorf("%s %q: %w", actionKind, name, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %q: ok\n", actionKind, name)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "action kind: press, release, or toggle (default: last used)")
	return cmd
}

// resolveKind parses the --kind flag, falling back to the saved default.
func resolveKind(flag string) (preset.ActionKind, error) {
	if flag != "" {
		k := preset.ActionKind(flag)
		if !k.Valid() {
			return "", fmt.Errorf("unknown action kind %q (want press, release, or toggle)", flag)
		}
		return k, nil
	}

	paths, err := ResolvePaths()
	if err != nil {
		return "", fmt.Errorf("resolve paths: %w", err)
	}
	storage := store.NewStorage(paths.PresetsPath, paths.ConfigPath, nil)
	cfg, _, err := storage.LoadConfig()
	if err != nil {
		return "", err
	}
	if cfg.LastActionKind != nil && cfg.LastActionKind.Valid() {
		return *cfg.LastActionKind, nil
	}
	return preset.Toggle, nil
}
