package testsupport

import (
	"testing"

	"vidlore/internal/capturestore"
	"vidlore/internal/config"
)

// MustOpenCaptureStore opens the capture cache for tests and registers cleanup.
func MustOpenCaptureStore(t testing.TB, cfg *config.Config) *capturestore.Store {
	t.Helper()

	store, err := capturestore.Open(cfg.CaptureCachePath())
	if err != nil {
		t.Fatalf("capturestore.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
