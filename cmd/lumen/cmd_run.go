package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lumen/pkg/executor"
	"lumen/pkg/midi"
	"lumen/pkg/preset"
	"lumen/pkg/session"
	"lumen/pkg/store"
	"lumen/pkg/telemetry"
)

// runConfig holds configuration for the run command.
type runConfig struct {
	connect connectFlags
	port    string
}

// newRunCmd creates the "lumen run" subcommand: connect to the controller,
// listen on a MIDI port, and execute matching presets until interrupted.
func newRunCmd() *cobra.Command {
	var cfg runConfig

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Bridge a MIDI port to the controller",
		Long:  "Connects to the controller, listens on a MIDI input port, and executes\nevery preset whose triggers match an incoming event. Runs until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBridge(ctx, &cfg)
		},
	}

	cfg.connect.register(cmd)
	cmd.Flags().StringVar(&cfg.port, "port", "", "MIDI input port name (default: last used)")
	return cmd
}

func runBridge(ctx context.Context, cfg *runConfig) error {
	paths, err := ResolvePaths()
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}
	settings, err := LoadSettings(paths.LumenHome)
	if err != nil {
		return err
	}
	log, err := newLogger(settings.Debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	storage := store.NewStorage(paths.PresetsPath, paths.ConfigPath, log)

	appCfg, _, err := storage.LoadConfig()
	if err != nil {
		// Defaults still let the bridge run; the document stays untouched.
		log.Warn("config unreadable, using defaults", zap.Error(err))
	}
	presets, _, err := storage.LoadPresets()
	if err != nil {
		log.Warn("presets unreadable, starting with none", zap.Error(err))
	}
	log.Info("presets loaded", zap.Int("count", len(presets)))

	addr, credential, err := cfg.connect.resolve(appCfg)
	if err != nil {
		return err
	}
	portName := cfg.port
	if portName == "" && appCfg.LastMIDIPort != nil {
		portName = *appCfg.LastMIDIPort
	}
	if portName == "" {
		return fmt.Errorf("no MIDI port: pass --port (see lumen ports)")
	}

	// Remember the choices for the next launch.
	appCfg.LastControllerAddress = &addr
	appCfg.LastControllerCredential = &credential
	appCfg.LastMIDIPort = &portName
	if err := storage.SaveConfig(appCfg); err != nil {
		log.Warn("config save failed", zap.Error(err))
	}

	recorder, err := telemetry.OpenRecorder(paths.EventsDBPath, log)
	if err != nil {
		log.Warn("telemetry log unavailable", zap.Error(err))
		recorder = nil
	} else {
		defer recorder.Close()
	}

	sessCfg := settings.SessionConfig()
	sessCfg.Logger = log
	if recorder != nil {
		sessCfg.Telemetry = recorder
	}

	exec := executor.New(executor.Config{
		Dial: func(ctx context.Context, addr, credential string) (executor.Client, error) {
			return session.Dial(ctx, addr, credential, sessCfg)
		},
		RefreshInterval: settings.RefreshInterval(),
		Logger:          log,
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		exec.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		drainEvents(ctx, exec, recorder, log)
	}()

	matcher := &presetMatcher{exec: exec, log: log}
	matcher.replace(presets)

	wg.Add(1)
	go func() {
		defer wg.Done()
		watchPresets(ctx, storage, matcher, log)
	}()

	input, err := midi.NewInput(log)
	if err != nil {
		return fmt.Errorf("midi: %w", err)
	}
	defer input.Close()
	if err := input.Listen(portName, matcher.handle); err != nil {
		return err
	}

	exec.Connect(addr, credential)

	<-ctx.Done()
	log.Info("shutting down")
	wg.Wait()
	return nil
}

// presetMatcher feeds MIDI events through the trigger matcher and enqueues
// every matching preset. The preset set swaps atomically on reload.
type presetMatcher struct {
	exec *executor.Executor
	log  *zap.Logger

	mu      sync.RWMutex
	presets []preset.Preset
}

func (m *presetMatcher) replace(presets []preset.Preset) {
	m.mu.Lock()
	m.presets = presets
	m.mu.Unlock()
}

func (m *presetMatcher) handle(ev midi.Event) {
	m.mu.RLock()
	presets := m.presets
	m.mu.RUnlock()

	matched := preset.Match(ev, presets)
	if len(matched) == 0 {
		m.log.Debug("no preset for event", zap.String("event", ev.String()))
		return
	}
	for _, p := range matched {
		m.log.Info("preset triggered",
			zap.String("event", ev.String()), zap.String("preset", p.Name))
		m.exec.ExecutePreset(p)
	}
}

// watchPresets hot-reloads the preset set when the document changes on
// disk. An unreadable rewrite keeps the previous set.
func watchPresets(ctx context.Context, storage *store.Storage, matcher *presetMatcher, log *zap.Logger) {
	err := store.Watch(ctx, storage.PresetsPath(), log, func() {
		presets, _, err := storage.LoadPresets()
		if err != nil {
			log.Warn("preset reload failed, keeping previous set", zap.Error(err))
			return
		}
		matcher.replace(presets)
		log.Info("presets reloaded", zap.Int("count", len(presets)))
	})
	if err != nil && ctx.Err() == nil {
		log.Warn("preset watcher stopped", zap.Error(err))
	}
}

// drainEvents consumes the executor's status queue, logging transitions and
// recording connection health.
func drainEvents(ctx context.Context, exec *executor.Executor, recorder *telemetry.Recorder, log *zap.Logger) {
	for {
		ev, ok := exec.NextEvent(ctx)
		if !ok {
			return
		}
		switch ev.Kind {
		case executor.EventStateChanged:
			log.Info("connection state", zap.String("state", string(ev.State)))
			if recorder != nil {
				switch ev.State {
				case executor.Connected:
					recorder.Record(telemetry.KindConnected, "")
				case executor.Disconnected:
					recorder.Record(telemetry.KindDisconnected, "")
				}
			}
		case executor.EventButtonsUpdated:
			log.Debug("catalog updated", zap.Int("buttons", len(ev.Buttons)))
		case executor.EventConnectionError:
			log.Warn("connection error", zap.Error(ev.Err))
		case executor.EventExecutionError:
			log.Warn("execution error", zap.Error(ev.Err))
		}
	}
}
