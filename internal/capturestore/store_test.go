package capturestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vidlore/internal/capturestore"
	"vidlore/internal/testsupport"
)

func TestPutAndLookup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCaptureStore(t, cfg)
	ctx := context.Background()

	image := filepath.Join(cfg.CaptureDir(), "blob.png")
	testsupport.WriteFile(t, image, 128)

	if _, err := store.Put(ctx, "https://en.wikipedia.org/wiki/India", image, 128); err != nil {
		t.Fatalf("Put: %v", err)
	}
	entry, err := store.Lookup(ctx, "https://en.wikipedia.org/wiki/India")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry == nil || entry.ImagePath != image || entry.HitCount != 1 {
		t.Fatalf("unexpected entry %#v", entry)
	}

	miss, err := store.Lookup(ctx, "https://example.com/")
	if err != nil || miss != nil {
		t.Fatalf("expected miss, got %#v %v", miss, err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 1 || stats.TotalBytes != 128 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestPutReplacesExistingURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCaptureStore(t, cfg)
	ctx := context.Background()

	first := filepath.Join(cfg.CaptureDir(), "a.png")
	second := filepath.Join(cfg.CaptureDir(), "b.png")
	testsupport.WriteFile(t, first, 10)
	testsupport.WriteFile(t, second, 20)

	url := "https://example.com/story"
	if _, err := store.Put(ctx, url, first, 10); err != nil {
		t.Fatalf("Put first: %v", err)
	}
	if _, err := store.Put(ctx, url, second, 20); err != nil {
		t.Fatalf("Put second: %v", err)
	}
	entry, err := store.Lookup(ctx, url)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry == nil || entry.ImagePath != second {
		t.Fatalf("expected replacement entry, got %#v", entry)
	}
	stats, _ := store.Stats(ctx)
	if stats.Entries != 1 || stats.TotalBytes != 20 {
		t.Fatalf("expected a single 20 byte row, got %+v", stats)
	}
	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Fatalf("replaced image should be removed, stat err = %v", err)
	}
	if _, err := os.Stat(second); err != nil {
		t.Fatalf("current image missing: %v", err)
	}
}

func TestPutSameImageKeepsFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCaptureStore(t, cfg)
	ctx := context.Background()

	image := filepath.Join(cfg.CaptureDir(), "same.png")
	testsupport.WriteFile(t, image, 32)

	url := "https://example.com/same"
	for i := 0; i < 2; i++ {
		if _, err := store.Put(ctx, url, image, 32); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}
	if _, err := os.Stat(image); err != nil {
		t.Fatalf("image should survive a same-path replace: %v", err)
	}
}

func TestLookupDropsMissingImage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCaptureStore(t, cfg)
	ctx := context.Background()

	image := filepath.Join(cfg.CaptureDir(), "gone.png")
	testsupport.WriteFile(t, image, 8)
	if _, err := store.Put(ctx, "https://example.com/", image, 8); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := os.Remove(image); err != nil {
		t.Fatalf("remove: %v", err)
	}
	entry, err := store.Lookup(ctx, "https://example.com/")
	if err != nil || entry != nil {
		t.Fatalf("expected stale entry to miss, got %#v %v", entry, err)
	}
	stats, _ := store.Stats(ctx)
	if stats.Entries != 0 {
		t.Fatalf("stale row should be deleted, got %d", stats.Entries)
	}
}

func TestPrune(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCaptureStore(t, cfg)
	ctx := context.Background()

	image := filepath.Join(cfg.CaptureDir(), "old.png")
	testsupport.WriteFile(t, image, 8)
	if _, err := store.Put(ctx, "https://example.com/old", image, 8); err != nil {
		t.Fatalf("Put: %v", err)
	}

	removed, err := store.Prune(ctx, time.Now().Add(-time.Hour))
	if err != nil || removed != 0 {
		t.Fatalf("fresh entries must survive: removed=%d err=%v", removed, err)
	}
	removed, err = store.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil || removed != 1 {
		t.Fatalf("expected one pruned entry: removed=%d err=%v", removed, err)
	}
	if _, err := os.Stat(image); !os.IsNotExist(err) {
		t.Fatalf("pruned image should be removed, stat err=%v", err)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := cfg.CaptureCachePath()
	image := filepath.Join(cfg.CaptureDir(), "keep.png")
	testsupport.WriteFile(t, image, 4)

	store, err := capturestore.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Put(context.Background(), "https://example.com/keep", image, 4); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_ = store.Close()

	reopened, err := capturestore.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	entry, err := reopened.Lookup(context.Background(), "https://example.com/keep")
	if err != nil || entry == nil {
		t.Fatalf("expected persisted entry, got %#v %v", entry, err)
	}
}
