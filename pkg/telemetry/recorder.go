// Package telemetry records controller activity (connection transitions,
// device pushes, errors) in a SQLite event log and reads it back for the
// events command. Recording is best-effort: a failed insert is logged and
// dropped, never surfaced to the caller.
package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"lumen/pkg/protocol"
)

// Event kinds written by the recorder.
const (
	KindConnected       = "connected"
	KindDisconnected    = "disconnected"
	KindBeatOn          = "beat_on"
	KindBeatOff         = "beat_off"
	KindBPM             = "bpm"
	KindFaderChange     = "fader_change"
	KindButtonPress     = "button_press"
	KindButtonRelease   = "button_release"
	KindInterfaceChange = "interface_change"
	KindError           = "error"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
`

// openDB opens the SQLite database at path with WAL journal mode and a
// 5-second busy timeout, and verifies the connection before returning.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	ctx := context.Background()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode on %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout on %s: %w", path, err)
	}

	return db, nil
}

// Recorder appends events to the telemetry log.
type Recorder struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenRecorder opens (creating if needed) the event log at path.
func OpenRecorder(path string, log *zap.Logger) (*Recorder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create events schema: %w", err)
	}
	return &Recorder{db: db, log: log}, nil
}

// Close releases the database connection.
func (r *Recorder) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Record appends one event. Errors are logged, not returned.
func (r *Recorder) Record(kind, detail string) {
	_, err := r.db.ExecContext(context.Background(),
		"INSERT INTO events (kind, detail) VALUES (?, ?)", kind, detail)
	if err != nil {
		r.log.Warn("telemetry insert failed",
			zap.String("kind", kind), zap.Error(err))
	}
}

// RecordConnected notes a successful handshake with addr.
func (r *Recorder) RecordConnected(addr string) { r.Record(KindConnected, addr) }

// RecordDisconnected notes the end of a session; reason may be empty for a
// deliberate disconnect.
func (r *Recorder) RecordDisconnected(reason string) { r.Record(KindDisconnected, reason) }

// RecordMessage logs the device pushes worth keeping. Request/response
// frames (OK, button lists) are not recorded; they are correlated traffic,
// not device state.
func (r *Recorder) RecordMessage(msg protocol.Message) {
	switch msg.Type {
	case protocol.MsgBeatOn:
		r.Record(KindBeatOn, "")
	case protocol.MsgBeatOff:
		r.Record(KindBeatOff, "")
	case protocol.MsgBPM:
		r.Record(KindBPM, strconv.FormatFloat(msg.BPM, 'f', -1, 64))
	case protocol.MsgFaderChange:
		r.Record(KindFaderChange,
			fmt.Sprintf("%d=%d", msg.Fader.Index, msg.Fader.Value))
	case protocol.MsgButtonPress:
		r.Record(KindButtonPress, msg.Text)
	case protocol.MsgButtonRelease:
		r.Record(KindButtonRelease, msg.Text)
	case protocol.MsgInterfaceChange:
		r.Record(KindInterfaceChange, msg.Text)
	case protocol.MsgError:
		r.Record(KindError, msg.Text)
	}
}
