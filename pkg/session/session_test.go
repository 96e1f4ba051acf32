package session

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"lumen/pkg/protocol"
)

// scriptServer accepts one connection and hands it to script on its own
// goroutine. The connection closes when script returns.
func scriptServer(t *testing.T, script func(t *testing.T, conn net.Conn, r *bufio.Reader)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		script(t, conn, bufio.NewReader(conn))
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		<-done
	})
	return ln.Addr().String()
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Errorf("server read: %v", err)
		return ""
	}
	return strings.TrimSuffix(line, "\r\n")
}

func writeLine(t *testing.T, conn net.Conn, line string) {
	t.Helper()
	if _, err := io.WriteString(conn, line+"\r\n"); err != nil {
		t.Errorf("server write: %v", err)
	}
}

func testConfig() Config {
	return Config{
		HandshakeTimeout: 2 * time.Second,
		ReadTimeout:      200 * time.Millisecond,
	}
}

func TestDial_Handshake(t *testing.T) {
	addr := scriptServer(t, func(t *testing.T, conn net.Conn, r *bufio.Reader) {
		if got := readLine(t, r); got != "HELLO|Lumen|secret" {
			t.Errorf("greeting: got %q", got)
		}
		writeLine(t, conn, "HELLO|Server")
	})

	s, err := Dial(context.Background(), addr, "secret", testConfig())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	if s.ServerName() != "Server" {
		t.Errorf("ServerName: got %q, want %q", s.ServerName(), "Server")
	}
}

func TestDial_IgnoresUnrelatedFramesDuringHandshake(t *testing.T) {
	addr := scriptServer(t, func(t *testing.T, conn net.Conn, r *bufio.Reader) {
		readLine(t, r)
		writeLine(t, conn, "BEAT_ON")
		writeLine(t, conn, "FADER_CHANGE|2|64")
		writeLine(t, conn, "HELLO|Server")
	})

	s, err := Dial(context.Background(), addr, "", testConfig())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()
}

func TestDial_ErrorFrameFailsHandshake(t *testing.T) {
	addr := scriptServer(t, func(t *testing.T, conn net.Conn, r *bufio.Reader) {
		readLine(t, r)
		writeLine(t, conn, "ERROR|bad credential")
	})

	_, err := Dial(context.Background(), addr, "wrong", testConfig())
	var remoteErr *protocol.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("got %v, want RemoteError", err)
	}
	if remoteErr.Reason != "bad credential" {
		t.Errorf("reason: got %q", remoteErr.Reason)
	}
}

func TestDial_SilentServerTimesOut(t *testing.T) {
	addr := scriptServer(t, func(t *testing.T, conn net.Conn, r *bufio.Reader) {
		readLine(t, r)
		// Say nothing; block until the client gives up and closes.
		_, _ = r.ReadByte()
	})

	cfg := testConfig()
	cfg.HandshakeTimeout = 300 * time.Millisecond
	cfg.ReadTimeout = 100 * time.Millisecond

	start := time.Now()
	_, err := Dial(context.Background(), addr, "", cfg)
	if err == nil {
		t.Fatal("expected a handshake timeout")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("handshake took %s, want under 1s", elapsed)
	}
}

func TestButtons_InlineCatalog(t *testing.T) {
	addr := scriptServer(t, func(t *testing.T, conn net.Conn, r *bufio.Reader) {
		readLine(t, r)
		writeLine(t, conn, "HELLO|Server")
		if got := readLine(t, r); got != "BUTTON_LIST" {
			t.Errorf("request: got %q", got)
		}
		writeLine(t, conn, `BUTTON_LIST|<Button index="1">Go</Button>`)
	})

	s, err := Dial(context.Background(), addr, "", testConfig())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	buttons, err := s.Buttons(context.Background())
	if err != nil {
		t.Fatalf("Buttons: %v", err)
	}
	if len(buttons) != 1 || buttons[0].Index != 1 || buttons[0].Name != "Go" {
		t.Fatalf("got %+v, want [{1 Go}]", buttons)
	}
}

func TestPress_DiscardsInterleavedPushes(t *testing.T) {
	addr := scriptServer(t, func(t *testing.T, conn net.Conn, r *bufio.Reader) {
		readLine(t, r)
		writeLine(t, conn, "HELLO|Server")
		if got := readLine(t, r); got != "BUTTON_PRESS|Wash" {
			t.Errorf("request: got %q", got)
		}
		// Pushes arrive before the ack; the session must skip them.
		writeLine(t, conn, "BEAT_ON")
		writeLine(t, conn, "BUTTON_PRESS|SomeoneElse")
		writeLine(t, conn, "OK")
	})

	s, err := Dial(context.Background(), addr, "", testConfig())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	if err := s.Press(context.Background(), "Wash"); err != nil {
		t.Fatalf("Press: %v", err)
	}
}

func TestRequest_HeartbeatAnsweredWhileAwaitingAck(t *testing.T) {
	addr := scriptServer(t, func(t *testing.T, conn net.Conn, r *bufio.Reader) {
		readLine(t, r)
		writeLine(t, conn, "HELLO|Server")
		if got := readLine(t, r); got != "CUE|Strobe" {
			t.Errorf("request: got %q", got)
		}
		writeLine(t, conn, "BPM|140")
		if got := readLine(t, r); got != "BPM|120" {
			t.Errorf("heartbeat reply: got %q, want BPM|120", got)
		}
		writeLine(t, conn, "OK")
	})

	s, err := Dial(context.Background(), addr, "", testConfig())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	if err := s.Toggle(context.Background(), "Strobe"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
}

func TestRequest_SilentOpenServerTimesOut(t *testing.T) {
	addr := scriptServer(t, func(t *testing.T, conn net.Conn, r *bufio.Reader) {
		readLine(t, r)
		writeLine(t, conn, "HELLO|Server")
		readLine(t, r)
		// Never ack; keep the stream open until the client gives up.
		_, _ = r.ReadByte()
	})

	cfg := testConfig()
	cfg.ReadTimeout = 50 * time.Millisecond
	cfg.RequestTimeout = 300 * time.Millisecond

	s, err := Dial(context.Background(), addr, "", cfg)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	start := time.Now()
	err = s.Press(context.Background(), "Wash")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("request took %s, want it bounded by the request timeout", elapsed)
	}
}

func TestRequest_ErrorFrameSurfacesAsRemoteError(t *testing.T) {
	addr := scriptServer(t, func(t *testing.T, conn net.Conn, r *bufio.Reader) {
		readLine(t, r)
		writeLine(t, conn, "HELLO|Server")
		readLine(t, r)
		writeLine(t, conn, "ERROR|no such button")
	})

	s, err := Dial(context.Background(), addr, "", testConfig())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	err = s.Release(context.Background(), "Ghost")
	var remoteErr *protocol.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("got %v, want RemoteError", err)
	}
}

func TestRequest_ClosedStreamIsFatal(t *testing.T) {
	addr := scriptServer(t, func(t *testing.T, conn net.Conn, r *bufio.Reader) {
		readLine(t, r)
		writeLine(t, conn, "HELLO|Server")
		readLine(t, r)
		// Close without answering.
	})

	s, err := Dial(context.Background(), addr, "", testConfig())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	if err := s.Press(context.Background(), "Wash"); !errors.Is(err, ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", err)
	}
	// The session stays dead.
	if err := s.Press(context.Background(), "Wash"); !errors.Is(err, ErrClosed) {
		t.Fatalf("second call: got %v, want ErrClosed", err)
	}
}

func TestNext_DeliversPushes(t *testing.T) {
	addr := scriptServer(t, func(t *testing.T, conn net.Conn, r *bufio.Reader) {
		readLine(t, r)
		writeLine(t, conn, "HELLO|Server")
		writeLine(t, conn, "FADER_CHANGE|3|87")
	})

	s, err := Dial(context.Background(), addr, "", testConfig())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	msg, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if msg.Type != protocol.MsgFaderChange || msg.Fader.Index != 3 || msg.Fader.Value != 87 {
		t.Fatalf("got %+v", msg)
	}
}

type captureTelemetry struct {
	mu   sync.Mutex
	msgs []protocol.Message
}

func (c *captureTelemetry) RecordMessage(msg protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *captureTelemetry) types() []protocol.MessageType {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]protocol.MessageType, len(c.msgs))
	for i, m := range c.msgs {
		types[i] = m.Type
	}
	return types
}

func TestTelemetry_SeesPushesObservedMidRequest(t *testing.T) {
	addr := scriptServer(t, func(t *testing.T, conn net.Conn, r *bufio.Reader) {
		readLine(t, r)
		writeLine(t, conn, "HELLO|Server")
		readLine(t, r)
		writeLine(t, conn, "BEAT_ON")
		writeLine(t, conn, "OK")
	})

	capture := &captureTelemetry{}
	cfg := testConfig()
	cfg.Telemetry = capture

	s, err := Dial(context.Background(), addr, "", cfg)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	if err := s.Press(context.Background(), "Wash"); err != nil {
		t.Fatalf("Press: %v", err)
	}
	types := capture.types()
	if len(types) != 2 || types[0] != protocol.MsgBeatOn || types[1] != protocol.MsgOK {
		t.Fatalf("recorded %v, want [beat_on ok]", types)
	}
}
