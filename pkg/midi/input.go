package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"
)

// Input owns the rtmidi driver and at most one open listening port.
type Input struct {
	drv    *rtmididrv.Driver
	port   drivers.In
	stopFn func()
	log    *zap.Logger
}

// NewInput initialises the rtmidi driver. Call Close when done.
func NewInput(log *zap.Logger) (*Input, error) {
	if log == nil {
		log = zap.NewNop()
	}
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return &Input{drv: drv, log: log}, nil
}

// Ports lists the names of available MIDI input ports.
func (in *Input) Ports() ([]string, error) {
	ins, err := in.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list midi inputs: %w", err)
	}
	names := make([]string, 0, len(ins))
	for _, p := range ins {
		names = append(names, p.String())
	}
	return names, nil
}

// Listen opens the named port and invokes fn for every decoded event.
// It replaces any previously open port. Velocity-0 NoteOn arrives at fn as
// NoteOff; unsupported message kinds are dropped.
func (in *Input) Listen(portName string, fn func(Event)) error {
	ins, err := in.drv.Ins()
	if err != nil {
		return fmt.Errorf("list midi inputs: %w", err)
	}
	var found drivers.In
	for _, p := range ins {
		if p.String() == portName {
			found = p
			break
		}
	}
	if found == nil {
		return fmt.Errorf("midi input %q not found", portName)
	}
	if err := found.Open(); err != nil {
		return fmt.Errorf("open %q: %w", portName, err)
	}

	stop, err := gomidi.ListenTo(found, func(msg gomidi.Message, _ int32) {
		var ch, key, val uint8
		switch {
		case msg.GetNoteOn(&ch, &key, &val):
			typ := NoteOn
			if val == 0 {
				typ = NoteOff
			}
			fn(Event{Type: typ, Channel: ch, Note: key, Value: val})
		case msg.GetNoteOff(&ch, &key, &val):
			fn(Event{Type: NoteOff, Channel: ch, Note: key, Value: val})
		case msg.GetControlChange(&ch, &key, &val):
			fn(Event{Type: ControlChange, Channel: ch, Note: key, Value: val})
		default:
			in.log.Debug("unhandled midi message", zap.String("msg", msg.String()))
		}
	}, gomidi.HandleError(func(listenErr error) {
		in.log.Warn("midi listener error", zap.String("port", portName), zap.Error(listenErr))
	}))
	if err != nil {
		_ = found.Close()
		return fmt.Errorf("listen %q: %w", portName, err)
	}

	in.closePort()
	in.port = found
	in.stopFn = stop
	in.log.Info("midi input connected", zap.String("port", portName))
	return nil
}

// Close stops listening and shuts down the driver.
func (in *Input) Close() {
	in.closePort()
	_ = in.drv.Close()
}

func (in *Input) closePort() {
	if in.stopFn != nil {
		in.stopFn()
		in.stopFn = nil
	}
	if in.port != nil {
		_ = in.port.Close()
		in.port = nil
	}
}
