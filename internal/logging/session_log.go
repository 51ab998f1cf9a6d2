package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// SessionLogPattern matches files created by OpenSessionLog.
const SessionLogPattern = "session-*.log"

// SessionLog tees a logger into a per-session JSON file. Every record written
// to the file carries the session_id, even when the caller did not attach it.
type SessionLog struct {
	Logger *slog.Logger
	Path   string
	closer io.Closer
}

// OpenSessionLog creates dir/session-<id>.log and returns a logger that
// writes to both base and the file at debug level.
func OpenSessionLog(base *slog.Logger, dir, sessionID string) (*SessionLog, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("open session log: empty session id")
	}
	path := filepath.Join(dir, "session-"+sessionID+".log")
	file, err := openLogFile(path)
	if err != nil {
		return nil, err
	}
	fileHandler := newSessionIDHandler(newJSONHandler(file, slog.LevelDebug, false), sessionID)
	return &SessionLog{
		Logger: TeeLogger(base, fileHandler),
		Path:   path,
		closer: file,
	}, nil
}

// Close releases the underlying file.
func (s *SessionLog) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// sessionIDHandler injects a session_id attribute into every record.
type sessionIDHandler struct {
	base      slog.Handler
	sessionID string
	hasID     bool
}

func newSessionIDHandler(base slog.Handler, sessionID string) slog.Handler {
	if base == nil {
		return NoopHandler{}
	}
	return &sessionIDHandler{base: base, sessionID: sessionID}
}

func (h *sessionIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *sessionIDHandler) Handle(ctx context.Context, record slog.Record) error {
	if !h.hasID {
		present := false
		record.Attrs(func(a slog.Attr) bool {
			present = a.Key == FieldSessionID
			return !present
		})
		if !present {
			record.AddAttrs(slog.String(FieldSessionID, h.sessionID))
		}
	}
	return h.base.Handle(ctx, record)
}

func (h *sessionIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sessionIDHandler{
		base:      h.base.WithAttrs(attrs),
		sessionID: h.sessionID,
		hasID:     h.hasID || HasAttrKey(attrs, FieldSessionID),
	}
}

func (h *sessionIDHandler) WithGroup(name string) slog.Handler {
	return &sessionIDHandler{
		base:      h.base.WithGroup(name),
		sessionID: h.sessionID,
		hasID:     h.hasID,
	}
}
