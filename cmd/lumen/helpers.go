package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lumen/pkg/session"
	"lumen/pkg/store"
)

// newLogger builds the process logger. Debug switches to the development
// encoder with debug level enabled.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// connectFlags are the controller-address options shared by the one-shot
// commands (buttons, send) and run.
type connectFlags struct {
	address  string
	password string
}

func (f *connectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.address, "address", "a", "", "controller address (default: last used)")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "controller password (default: last used, or prompt)")
}

// resolve fills unset flags from the saved config, prompting for the
// password on a terminal as a last resort.
func (f *connectFlags) resolve(cfg store.AppConfig) (addr, credential string, err error) {
	addr = f.address
	if addr == "" && cfg.LastControllerAddress != nil {
		addr = *cfg.LastControllerAddress
	}
	if addr == "" {
		return "", "", fmt.Errorf("no controller address: pass --address or connect once with run")
	}

	credential = f.password
	if credential == "" && cfg.LastControllerCredential != nil {
		credential = *cfg.LastControllerCredential
	}
	if credential == "" && isatty.IsTerminal(os.Stdin.Fd()) {
		credential, err = promptCredential(addr)
		if err != nil {
			return "", "", err
		}
	}
	return addr, credential, nil
}

func promptCredential(addr string) (string, error) {
	fmt.Fprintf(os.Stderr, "password for %s (empty for none): ", addr)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// dialController opens a handshaken session using the saved config and
// runtime settings.
func dialController(ctx context.Context, flags *connectFlags) (*session.Session, error) {
	paths, err := ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}
	settings, err := LoadSettings(paths.LumenHome)
	if err != nil {
		return nil, err
	}
	storage := store.NewStorage(paths.PresetsPath, paths.ConfigPath, nil)
	cfg, _, err := storage.LoadConfig()
	if err != nil {
		return nil, err
	}

	addr, credential, err := flags.resolve(cfg)
	if err != nil {
		return nil, err
	}
	return session.Dial(ctx, addr, credential, settings.SessionConfig())
}
