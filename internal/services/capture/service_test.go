package capture

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"vidlore/internal/services"
	"vidlore/internal/testsupport"
)

func newCaptureServer(t *testing.T, calls *atomic.Int32, payload []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasPrefix(r.URL.Path, "/get/width/1000/crop/800/https:/") {
			t.Errorf("unexpected capture path %q", r.URL.Path)
		}
		_, _ = w.Write(payload)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCaptureWritesSegmentImage(t *testing.T) {
	var calls atomic.Int32
	payload := testsupport.PNG(64)
	server := newCaptureServer(t, &calls, payload)
	dir := t.TempDir()

	svc := New(Config{Endpoint: server.URL + "/get/width/1000/crop/800/", OutputDir: dir})
	path, err := svc.Capture(context.Background(), 3, "https://en.wikipedia.org/wiki/India")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if path != filepath.Join(dir, "seg_3.png") {
		t.Fatalf("unexpected path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatal("image bytes mismatch")
	}
}

func TestCaptureReusesCachedImage(t *testing.T) {
	var calls atomic.Int32
	server := newCaptureServer(t, &calls, testsupport.PNG(16))
	cfg := testsupport.NewConfig(t, testsupport.WithCaptureCache())
	store := testsupport.MustOpenCaptureStore(t, cfg)

	svc := New(Config{Endpoint: server.URL + "/get/width/1000/crop/800/", OutputDir: cfg.CaptureDir()}, WithCache(store))
	first, err := svc.Capture(context.Background(), 0, "https://example.com/story")
	if err != nil {
		t.Fatalf("first capture: %v", err)
	}
	second, err := svc.Capture(context.Background(), 1, "https://example.com/story")
	if err != nil {
		t.Fatalf("second capture: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single service request, got %d", calls.Load())
	}
	if first == second || filepath.Base(second) != "seg_1.png" {
		t.Fatalf("cached capture should land at its own segment path: %q %q", first, second)
	}
	if _, err := os.Stat(second); err != nil {
		t.Fatalf("cached copy missing: %v", err)
	}
}

func TestCaptureFailures(t *testing.T) {
	html := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>blocked</body></html>"))
	}))
	defer html.Close()
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	tests := []struct {
		name     string
		endpoint string
		target   string
		timeout  time.Duration
	}{
		{name: "not an image", endpoint: html.URL + "/", target: "https://example.com/"},
		{name: "status", endpoint: failing.URL + "/", target: "https://example.com/"},
		{name: "timeout", endpoint: slow.URL + "/", target: "https://example.com/", timeout: 50 * time.Millisecond},
		{name: "bad scheme", endpoint: failing.URL + "/", target: "file:///etc/passwd"},
		{name: "blank", endpoint: failing.URL + "/", target: "  "},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			svc := New(Config{Endpoint: tc.endpoint, OutputDir: dir, Timeout: tc.timeout})
			_, err := svc.Capture(context.Background(), 0, tc.target)
			if !errors.Is(err, services.ErrCapture) {
				t.Fatalf("expected ErrCapture, got %v", err)
			}
			if _, statErr := os.Stat(filepath.Join(dir, "seg_0.png")); !os.IsNotExist(statErr) {
				t.Fatalf("failed capture must not leave an image, stat err=%v", statErr)
			}
		})
	}
}
