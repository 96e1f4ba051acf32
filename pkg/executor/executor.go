// Package executor serializes all controller traffic behind one command
// queue. It is the sole owner of the live session: connect, disconnect, and
// preset execution are commands on the same ordered queue, so two presets
// can never race on the wire and a disconnect cannot interleave mid-preset.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lumen/pkg/preset"
	"lumen/pkg/protocol"
	"lumen/pkg/session"
)

// State is the executor's connection lifecycle position.
type State string

const (
	Disconnected State = "disconnected"
	Connecting   State = "connecting"
	Connected    State = "connected"
)

// EventKind tags a status event published to the UI collaborator.
type EventKind string

const (
	EventStateChanged    EventKind = "state_changed"
	EventButtonsUpdated  EventKind = "buttons_updated"
	EventConnectionError EventKind = "connection_error"
	EventExecutionError  EventKind = "execution_error"
)

// Event is one entry of the outbound status queue.
type Event struct {
	Kind    EventKind
	State   State             // EventStateChanged
	Buttons []protocol.Button // EventButtonsUpdated
	Err     error             // EventConnectionError, EventExecutionError
}

// Client is the session surface the executor drives. *session.Session
// satisfies it; tests substitute fakes.
type Client interface {
	Buttons(ctx context.Context) ([]protocol.Button, error)
	Press(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error
	Toggle(ctx context.Context, name string) error
	Close() error
}

// DialFunc opens a handshaken client.
type DialFunc func(ctx context.Context, addr, credential string) (Client, error)

// Config carries executor tuning. Zero values take defaults.
type Config struct {
	Dial DialFunc

	// RefreshInterval spaces the background catalog re-fetches.
	RefreshInterval time.Duration

	Logger *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.RefreshInterval == 0 {
		c.RefreshInterval = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

type commandKind int

const (
	cmdConnect commandKind = iota
	cmdDisconnect
	cmdExecutePreset
	cmdExecuteSingle
	cmdConnectionLost
)

type command struct {
	kind       commandKind
	addr       string
	credential string
	preset     preset.Preset
	action     preset.Action
	client     Client // cmdConnectionLost: the connection that died
	err        error
}

// ErrNotConnected is returned as an execution error when a preset or action
// is dispatched with no live connection.
var ErrNotConnected = errors.New("not connected to a controller")

// Executor runs the command loop. Construct with New, feed it via the
// enqueue methods from any goroutine, and drive it with Run on exactly one.
type Executor struct {
	cfg Config
	log *zap.Logger

	cmds   *queue[command]
	events *queue[Event]

	// Loop-owned; only Run's goroutine touches these.
	state         State
	client        Client
	cancelRefresh context.CancelFunc
}

// New creates an idle executor in the Disconnected state.
func New(cfg Config) *Executor {
	cfg = cfg.withDefaults()
	return &Executor{
		cfg:    cfg,
		log:    cfg.Logger,
		cmds:   newQueue[command](),
		events: newQueue[Event](),
		state:  Disconnected,
	}
}

// Connect enqueues a connection attempt. A live connection is replaced.
func (e *Executor) Connect(addr, credential string) {
	e.cmds.Push(command{kind: cmdConnect, addr: addr, credential: credential})
}

// Disconnect enqueues an orderly teardown.
func (e *Executor) Disconnect() {
	e.cmds.Push(command{kind: cmdDisconnect})
}

// ExecutePreset enqueues a full preset run: the preset's own delay, then
// each action in order behind its own delay.
func (e *Executor) ExecutePreset(p preset.Preset) {
	e.cmds.Push(command{kind: cmdExecutePreset, preset: p.Clone()})
}

// ExecuteSingle enqueues one action for immediate dispatch, skipping delays.
func (e *Executor) ExecuteSingle(a preset.Action) {
	e.cmds.Push(command{kind: cmdExecuteSingle, action: a})
}

// NextEvent blocks until a status event is available or ctx is done.
func (e *Executor) NextEvent(ctx context.Context) (Event, bool) {
	return e.events.Pop(ctx)
}

// Run processes commands until ctx is cancelled, then tears down any live
// connection. Commands execute strictly in enqueue order.
func (e *Executor) Run(ctx context.Context) {
	for {
		cmd, ok := e.cmds.Pop(ctx)
		if !ok {
			e.dropConnection()
			return
		}
		switch cmd.kind {
		case cmdConnect:
			e.handleConnect(ctx, cmd.addr, cmd.credential)
		case cmdDisconnect:
			e.dropConnection()
			e.setState(Disconnected)
		case cmdExecutePreset:
			e.handleExecutePreset(ctx, cmd.preset)
		case cmdExecuteSingle:
			e.handleExecuteSingle(ctx, cmd.action)
		case cmdConnectionLost:
			// A refresh loop outlives its connection by one queue hop; a
			// loss report for anything but the live client is stale.
			if e.state != Connected || e.client != cmd.client {
				continue
			}
			e.log.Warn("connection lost", zap.Error(cmd.err))
			e.dropConnection()
			e.setState(Disconnected)
		}
	}
}

func (e *Executor) setState(s State) {
	if e.state == s {
		return
	}
	e.state = s
	e.events.Push(Event{Kind: EventStateChanged, State: s})
}

func (e *Executor) handleConnect(ctx context.Context, addr, credential string) {
	e.dropConnection()
	e.setState(Connecting)

	client, err := e.cfg.Dial(ctx, addr, credential)
	if err != nil {
		e.events.Push(Event{Kind: EventConnectionError, Err: err})
		e.setState(Disconnected)
		return
	}
	e.client = client
	e.setState(Connected)

	// First catalog fetch; failure here is a bad sign but not fatal, the
	// refresh task will retry.
	if buttons, err := client.Buttons(ctx); err != nil {
		e.events.Push(Event{Kind: EventConnectionError, Err: err})
	} else {
		e.events.Push(Event{Kind: EventButtonsUpdated, Buttons: buttons})
	}

	refreshCtx, cancel := context.WithCancel(ctx)
	e.cancelRefresh = cancel
	go e.refreshLoop(refreshCtx, client)
}

// refreshLoop re-fetches the catalog on a fixed interval so device-side
// button renames reach the UI without user action. It shares the session
// handle with the command loop; the session's own request lock keeps the
// two from interleaving an exchange.
func (e *Executor) refreshLoop(ctx context.Context, client Client) {
	ticker := time.NewTicker(e.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		buttons, err := client.Buttons(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.events.Push(Event{Kind: EventConnectionError, Err: err})
			if errors.Is(err, session.ErrClosed) {
				e.cmds.Push(command{kind: cmdConnectionLost, client: client, err: err})
				return
			}
			continue
		}
		e.events.Push(Event{Kind: EventButtonsUpdated, Buttons: buttons})
	}
}

func (e *Executor) dropConnection() {
	if e.cancelRefresh != nil {
		e.cancelRefresh()
		e.cancelRefresh = nil
	}
	if e.client != nil {
		_ = e.client.Close()
		e.client = nil
	}
}

func (e *Executor) handleExecutePreset(ctx context.Context, p preset.Preset) {
	if e.state != Connected {
		e.events.Push(Event{Kind: EventExecutionError,
			Err: fmt.Errorf("preset %q: %w", p.Name, ErrNotConnected)})
		return
	}

	e.log.Debug("executing preset",
		zap.String("preset", p.Name), zap.Int("actions", len(p.Actions)))
	e.wait(ctx, p.DelaySecs)

	for _, action := range p.Actions {
		e.wait(ctx, action.DelaySecs)
		if err := e.dispatch(ctx, action); err != nil {
			// First failure aborts the rest of the preset.
			e.events.Push(Event{Kind: EventExecutionError,
				Err: fmt.Errorf("preset %q, action %s: %w", p.Name, action, err)})
			e.failIfClosed(err)
			return
		}
	}
}

func (e *Executor) handleExecuteSingle(ctx context.Context, a preset.Action) {
	if e.state != Connected {
		e.events.Push(Event{Kind: EventExecutionError,
			Err: fmt.Errorf("action %s: %w", a, ErrNotConnected)})
		return
	}
	if err := e.dispatch(ctx, a); err != nil {
		e.events.Push(Event{Kind: EventExecutionError,
			Err: fmt.Errorf("action %s: %w", a, err)})
		e.failIfClosed(err)
	}
}

// dispatch maps the action kind to its wire command. Buttons are addressed
// by name; catalog indices are not stable across sessions.
func (e *Executor) dispatch(ctx context.Context, a preset.Action) error {
	switch a.Kind {
	case preset.Press:
		return e.client.Press(ctx, a.ButtonName)
	case preset.Release:
		return e.client.Release(ctx, a.ButtonName)
	case preset.Toggle:
		return e.client.Toggle(ctx, a.ButtonName)
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
}

// failIfClosed drops the connection when a dispatch error means the stream
// is gone. Remote ERROR frames and protocol surprises leave it up.
func (e *Executor) failIfClosed(err error) {
	if !errors.Is(err, session.ErrClosed) {
		return
	}
	e.dropConnection()
	e.setState(Disconnected)
}

func (e *Executor) wait(ctx context.Context, seconds float64) {
	if seconds <= 0 {
		return
	}
	timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
