// Package session owns one live connection to the lighting controller. It
// performs the handshake, issues commands, and correlates responses against
// the controller's mixed stream of replies and unsolicited pushes.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"lumen/pkg/protocol"
)

// ErrClosed marks a session whose stream has closed. The session is dead;
// the caller must reconnect.
var ErrClosed = errors.New("session closed")

// Telemetry receives the device pushes a session observes. Implementations
// must not block.
type Telemetry interface {
	RecordMessage(msg protocol.Message)
}

// Config carries session tuning. Zero values take defaults.
type Config struct {
	// AppName is the identity sent in the handshake greeting.
	AppName string

	// DialTimeout bounds the TCP connect.
	DialTimeout time.Duration

	// HandshakeTimeout bounds the wait for the controller's greeting reply.
	HandshakeTimeout time.Duration

	// ReadTimeout is the per-read deadline. A timed-out read is retried,
	// not treated as failure.
	ReadTimeout time.Duration

	// RequestTimeout bounds one whole request/response exchange, so a
	// server that stays open but never acks cannot stall the caller.
	RequestTimeout time.Duration

	// WriteTimeout bounds each outbound frame.
	WriteTimeout time.Duration

	// ReplyBPM is the tempo sent in answer to the controller's heartbeat.
	ReplyBPM float64

	Logger    *zap.Logger
	Telemetry Telemetry
}

func (c Config) withDefaults() Config {
	if c.AppName == "" {
		c.AppName = "Lumen"
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.ReplyBPM == 0 {
		c.ReplyBPM = 120
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Session is one handshaken connection. All request methods serialize on an
// internal lock scoped to a single request/response exchange, so a catalog
// refresh and a button command cannot misattribute each other's replies.
type Session struct {
	cfg Config
	log *zap.Logger

	mu         sync.Mutex
	conn       net.Conn
	parser     *protocol.Parser
	readBuf    []byte
	closed     bool
	serverName string
}

// Dial connects to the controller at addr, sends the greeting with
// credential, and waits for the controller's acknowledgement. Frames other
// than the acknowledgement or an error are ignored during the handshake.
func Dial(ctx context.Context, addr, credential string, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()

	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}

	s := &Session{
		cfg:     cfg,
		log:     cfg.Logger,
		conn:    conn,
		parser:  protocol.NewParser(),
		readBuf: make([]byte, 4096),
	}

	if err := s.send(protocol.CmdHello, cfg.AppName, credential); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send greeting: %w", err)
	}

	deadline := time.Now().Add(cfg.HandshakeTimeout)
	for {
		if time.Now().After(deadline) {
			_ = conn.Close()
			return nil, fmt.Errorf("handshake with %s: timed out after %s", addr, cfg.HandshakeTimeout)
		}
		msg, err := s.readFrame(ctx, deadline)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("handshake with %s: %w", addr, err)
		}
		switch msg.Type {
		case protocol.MsgConnected:
			s.serverName = msg.Text
			s.log.Info("controller handshake complete",
				zap.String("addr", addr), zap.String("server", msg.Text))
			return s, nil
		case protocol.MsgError:
			_ = conn.Close()
			return nil, &protocol.RemoteError{Reason: msg.Text}
		default:
			s.log.Debug("ignoring frame during handshake", zap.String("type", string(msg.Type)))
		}
	}
}

// ServerName is the identity the controller announced in its handshake ack.
func (s *Session) ServerName() string { return s.serverName }

// Close tears the connection down. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

// Buttons requests the current catalog and returns it.
func (s *Session) Buttons(ctx context.Context) ([]protocol.Button, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.requestCtx(ctx)
	defer cancel()

	if err := s.send(protocol.CmdButtonList); err != nil {
		return nil, err
	}
	msg, err := s.awaitResponse(ctx, protocol.MsgButtonList)
	if err != nil {
		return nil, err
	}
	return msg.Buttons, nil
}

// Press pushes the named button down.
func (s *Session) Press(ctx context.Context, name string) error {
	return s.buttonCommand(ctx, protocol.CmdButtonPress, name)
}

// Release lets the named button up.
func (s *Session) Release(ctx context.Context, name string) error {
	return s.buttonCommand(ctx, protocol.CmdButtonRelease, name)
}

// Toggle flips the named button's state.
func (s *Session) Toggle(ctx context.Context, name string) error {
	return s.buttonCommand(ctx, protocol.CmdButtonToggle, name)
}

func (s *Session) buttonCommand(ctx context.Context, verb, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.requestCtx(ctx)
	defer cancel()

	if err := s.send(verb, name); err != nil {
		return err
	}
	_, err := s.awaitResponse(ctx, protocol.MsgOK)
	return err
}

// requestCtx bounds one exchange by RequestTimeout. Next is exempt: waiting
// for the next push is open-ended by design.
func (s *Session) requestCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.RequestTimeout)
}

// Next blocks until the controller pushes a frame, answering heartbeats
// along the way. It shares the request lock, so callers must not hold a
// request open concurrently.
func (s *Session) Next(ctx context.Context) (protocol.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.readFrame(ctx, time.Time{})
	if err != nil {
		return protocol.Message{}, err
	}
	s.observe(msg)
	return msg, nil
}

// awaitResponse loop-reads frames until one of type want or an error frame
// arrives. Unrelated pushes are handled (heartbeats answered, telemetry
// recorded) and discarded. Callers hold s.mu.
func (s *Session) awaitResponse(ctx context.Context, want protocol.MessageType) (protocol.Message, error) {
	for {
		msg, err := s.readFrame(ctx, time.Time{})
		if err != nil {
			return protocol.Message{}, err
		}
		s.observe(msg)
		switch msg.Type {
		case want:
			return msg, nil
		case protocol.MsgError:
			return protocol.Message{}, &protocol.RemoteError{Reason: msg.Text}
		default:
			s.log.Debug("discarding unrelated frame",
				zap.String("type", string(msg.Type)),
				zap.String("awaiting", string(want)))
		}
	}
}

// observe answers heartbeat pushes and forwards device pushes to telemetry.
func (s *Session) observe(msg protocol.Message) {
	if msg.Type == protocol.MsgBPM {
		if err := s.send(protocol.CmdBPM, strconv.FormatFloat(s.cfg.ReplyBPM, 'f', -1, 64)); err != nil {
			s.log.Warn("heartbeat reply failed", zap.Error(err))
		}
	}
	if s.cfg.Telemetry != nil {
		s.cfg.Telemetry.RecordMessage(msg)
	}
}

// readFrame returns the next complete frame, retrying timed-out reads until
// ctx is cancelled or hard, if non-zero, passes. A closed stream returns
// ErrClosed.
func (s *Session) readFrame(ctx context.Context, hard time.Time) (protocol.Message, error) {
	if s.closed {
		return protocol.Message{}, ErrClosed
	}
	for {
		if msg, ok := s.parser.Next(); ok {
			return msg, nil
		}
		if err := ctx.Err(); err != nil {
			return protocol.Message{}, err
		}

		deadline := time.Now().Add(s.cfg.ReadTimeout)
		if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
			deadline = ctxDeadline
		}
		if !hard.IsZero() && hard.Before(deadline) {
			deadline = hard
		}
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return protocol.Message{}, fmt.Errorf("set read deadline: %w", err)
		}

		n, err := s.conn.Read(s.readBuf)
		if n > 0 {
			s.parser.Feed(s.readBuf[:n])
			continue
		}
		if err == nil || errors.Is(err, io.EOF) {
			// A zero-byte read means the controller closed the stream.
			s.closed = true
			return protocol.Message{}, ErrClosed
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			if !hard.IsZero() && !time.Now().Before(hard) {
				return protocol.Message{}, fmt.Errorf("read: %w", err)
			}
			// Per-read timeouts are retry boundaries, not failures.
			continue
		}
		s.closed = true
		return protocol.Message{}, fmt.Errorf("read: %w", err)
	}
}

// send writes one frame. Any write failure closes the session.
func (s *Session) send(verb string, fields ...string) error {
	if s.closed {
		return ErrClosed
	}
	frame := verb
	if len(fields) > 0 {
		frame += protocol.Separator + strings.Join(fields, protocol.Separator)
	}
	frame += protocol.Terminator

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := io.WriteString(s.conn, frame); err != nil {
		s.closed = true
		return fmt.Errorf("write %s: %w", verb, err)
	}
	return nil
}
