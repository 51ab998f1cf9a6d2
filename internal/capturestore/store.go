package capturestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"vidlore/internal/fileutil"
)

// Entry is one cached capture.
type Entry struct {
	ID         string
	URL        string
	ImagePath  string
	SizeBytes  int64
	CapturedAt time.Time
	LastUsedAt time.Time
	HitCount   int
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries    int
	TotalBytes int64
}

// Store manages capture cache persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const entryColumns = "id, url, image_path, size_bytes, captured_at, last_used_at, hit_count"

// timeLayout is fixed width so stored timestamps compare lexically in SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Open initializes or connects to the cache database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("capture cache path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Lookup returns the cached entry for url, or nil when absent. An entry whose
// image is missing or empty is deleted and reported as a miss. Hits bump the
// usage counters.
func (s *Store) Lookup(ctx context.Context, url string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM captures WHERE url = ?`, strings.TrimSpace(url))
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup capture: %w", err)
	}
	if !fileutil.Exists(entry.ImagePath) {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM captures WHERE id = ?`, entry.ID); err != nil {
			return nil, fmt.Errorf("drop stale capture: %w", err)
		}
		return nil, nil
	}
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE captures SET last_used_at = ?, hit_count = hit_count + 1 WHERE id = ?`,
		now.Format(timeLayout), entry.ID,
	); err != nil {
		return nil, fmt.Errorf("touch capture: %w", err)
	}
	entry.LastUsedAt = now
	entry.HitCount++
	return entry, nil
}

// Put records imagePath as the capture of url, replacing any previous entry.
// A replaced entry's image is removed when it differs from imagePath.
func (s *Store) Put(ctx context.Context, url, imagePath string, sizeBytes int64) (*Entry, error) {
	url = strings.TrimSpace(url)
	imagePath = strings.TrimSpace(imagePath)
	if url == "" || imagePath == "" {
		return nil, errors.New("capture url and image path required")
	}
	now := time.Now().UTC()
	entry := &Entry{
		ID:         uuid.NewString(),
		URL:        url,
		ImagePath:  imagePath,
		SizeBytes:  sizeBytes,
		CapturedAt: now,
		LastUsedAt: now,
	}
	var previous string
	err := s.db.QueryRowContext(ctx, `SELECT image_path FROM captures WHERE url = ?`, url).Scan(&previous)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup previous capture: %w", err)
	}
	stamp := now.Format(timeLayout)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO captures (id, url, image_path, size_bytes, captured_at, last_used_at, hit_count)
         VALUES (?, ?, ?, ?, ?, ?, 0)
         ON CONFLICT(url) DO UPDATE SET
             id = excluded.id,
             image_path = excluded.image_path,
             size_bytes = excluded.size_bytes,
             captured_at = excluded.captured_at,
             last_used_at = excluded.last_used_at,
             hit_count = 0`,
		entry.ID, entry.URL, entry.ImagePath, entry.SizeBytes, stamp, stamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert capture: %w", err)
	}
	if previous != "" && previous != imagePath {
		if err := os.Remove(previous); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove replaced capture image: %w", err)
		}
	}
	return entry, nil
}

// Prune removes entries not used since cutoff along with their images and
// returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM captures WHERE last_used_at < ?`,
		cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("list stale captures: %w", err)
	}
	var stale []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan capture: %w", err)
		}
		stale = append(stale, entry)
	}
	if err := rows.Close(); err != nil {
		return 0, fmt.Errorf("close rows: %w", err)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate captures: %w", err)
	}

	removed := 0
	for _, entry := range stale {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM captures WHERE id = ?`, entry.ID); err != nil {
			return removed, fmt.Errorf("delete capture: %w", err)
		}
		if err := os.Remove(entry.ImagePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("remove capture image: %w", err)
		}
		removed++
	}
	return removed, nil
}

// Stats returns the entry count and total cached bytes.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(size_bytes), 0) FROM captures`,
	).Scan(&stats.Entries, &stats.TotalBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("capture stats: %w", err)
	}
	return stats, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry       Entry
		capturedRaw string
		usedRaw     string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.URL,
		&entry.ImagePath,
		&entry.SizeBytes,
		&capturedRaw,
		&usedRaw,
		&entry.HitCount,
	); err != nil {
		return nil, err
	}
	entry.CapturedAt = parseTime(capturedRaw)
	entry.LastUsedAt = parseTime(usedRaw)
	return &entry, nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}
