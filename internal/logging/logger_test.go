package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vidlore/internal/config"
	"vidlore/internal/logging"
	"vidlore/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("pipeline ready", logging.String("video_file", "talk.mp4"))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"video_file":"talk.mp4"`) {
		t.Fatalf("expected attribute in log file, got %s", data)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleInfoLayout(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := services.WithSessionID(context.Background(), "0123456789abcdef")
	ctx = services.WithStage(ctx, "annotate")
	ctx = services.WithSegment(ctx, 2)
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "pipeline"))

	logger.Info("segment annotated",
		logging.Int("entity_count", 4),
		logging.String(logging.FieldEventType, "segment_annotated"),
		logging.String("source_path", "/tmp/x"),
	)
	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	header := lines[0]
	if !strings.Contains(header, "INFO [pipeline] Session 01234567 · Segment #2 (annotate) – segment annotated") {
		t.Fatalf("unexpected header: %q", header)
	}
	if strings.Contains(header, ".go:") {
		t.Fatalf("info header should omit source location: %q", header)
	}
	if lines[1] != "    - Event: segment_annotated" {
		t.Fatalf("expected event first, got %q", lines[1])
	}
	if !strings.Contains(out, "    - Entities: 4") {
		t.Fatalf("expected entity count field, got:\n%s", out)
	}
	if !strings.Contains(out, "+ 1 more field hidden") {
		t.Fatalf("expected path field to be hidden, got:\n%s", out)
	}
}

func TestConsoleSuppressesRepeatedInfoFields(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := logging.New(logging.Options{Format: "console", Writer: &buf})
	logger = logger.With(logging.String(logging.FieldSessionID, "s1"))
	logger.Info("first", logging.String("language", "en"))
	logger.Info("second", logging.String("language", "en"))
	if got := strings.Count(buf.String(), "Language: en"); got != 1 {
		t.Fatalf("expected repeated field once, got %d:\n%s", got, buf.String())
	}
}

func TestConsoleDebugIncludesSource(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf})
	logger.Debug("scores", logging.String("query", "bengaluru"))
	out := buf.String()
	if !strings.Contains(out, "logger_test.go:") {
		t.Fatalf("expected source location for debug, got %q", out)
	}
	if !strings.Contains(out, "    query: bengaluru") {
		t.Fatalf("expected raw debug attrs, got %q", out)
	}
}

func TestJSONHandlerKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := logging.New(logging.Options{Format: "json", Writer: &buf})
	logging.WarnWithContext(logger, "provider failed", "provider_error", logging.Error(errors.New("timeout")))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}
	for _, key := range []string{"ts", "level", "msg", logging.FieldEventType, logging.FieldErrorHint, logging.FieldImpact} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("missing key %q in %v", key, entry)
		}
	}
	if entry["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", entry["level"])
	}
}

func TestSessionLogTagsEveryRecord(t *testing.T) {
	var base bytes.Buffer
	baseLogger, err := logging.New(logging.Options{Format: "json", Writer: &base})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dir := t.TempDir()

	sess, err := logging.OpenSessionLog(baseLogger, dir, "abc")
	if err != nil {
		t.Fatalf("OpenSessionLog: %v", err)
	}
	sess.Logger.Debug("debug detail")
	sess.Logger.Info("visible")
	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(sess.Path)
	if err != nil {
		t.Fatalf("read session log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected debug and info lines in session log, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, `"session_id":"abc"`) {
			t.Fatalf("missing session id: %s", line)
		}
	}
	if strings.Contains(base.String(), "debug detail") {
		t.Fatal("base logger at info should not receive debug")
	}
	if _, err := logging.OpenSessionLog(baseLogger, dir, " "); err == nil {
		t.Fatal("expected error for empty session id")
	}
}

func TestPruneSessionLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "session-old.log")
	keep := filepath.Join(dir, "session-current.log")
	recent := filepath.Join(dir, "session-new.log")
	other := filepath.Join(dir, "vidlore.log")
	for _, path := range []string{old, keep, recent, other} {
		if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	stale := time.Now().AddDate(0, 0, -30)
	for _, path := range []string{old, keep, other} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatal(err)
		}
	}

	if removed := logging.PruneSessionLogs(logging.NewNop(), dir, 14, keep); removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected stale session log to be removed")
	}
	for _, path := range []string{keep, recent, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", filepath.Base(path), err)
		}
	}
	if removed := logging.PruneSessionLogs(nil, dir, 0); removed != 0 {
		t.Fatal("retention 0 should disable pruning")
	}
}
