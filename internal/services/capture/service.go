package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"vidlore/internal/capturestore"
	"vidlore/internal/fileutil"
	"vidlore/internal/logging"
	"vidlore/internal/services"
)

const (
	defaultEndpoint = "https://image.thum.io/get/width/1000/crop/800/"
	defaultTimeout  = 20 * time.Second
	maxImageBytes   = 20 << 20
	cacheSubdir     = "cache"
)

// Cache remembers previous captures by URL.
type Cache interface {
	Lookup(ctx context.Context, url string) (*capturestore.Entry, error)
	Put(ctx context.Context, url, imagePath string, sizeBytes int64) (*capturestore.Entry, error)
}

// Config describes the capture endpoint and output location.
type Config struct {
	Endpoint          string
	Timeout           time.Duration
	RequestsPerSecond float64
	OutputDir         string
}

// Service captures URLs to PNG files.
type Service struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      Cache
	logger     *slog.Logger
}

// Option customizes the service.
type Option func(*Service)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithCache enables capture reuse across sessions.
func WithCache(cache Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a capture service.
func New(cfg Config, opts ...Option) *Service {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	s := &Service{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logging.NewNop(),
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "capture")
	return s
}

// ImagePath returns where the capture for segment index is stored.
func (s *Service) ImagePath(index int) string {
	return filepath.Join(s.cfg.OutputDir, fmt.Sprintf("seg_%d.png", index))
}

// Capture stores a screenshot of target as seg_<index>.png and returns its
// path. Only absolute http(s) URLs are accepted.
func (s *Service) Capture(ctx context.Context, index int, target string) (string, error) {
	target = strings.TrimSpace(target)
	if err := validateTarget(target); err != nil {
		return "", services.Wrap(services.ErrCapture, "capture", "validate url", target, err)
	}
	if strings.TrimSpace(s.cfg.OutputDir) == "" {
		return "", services.Wrap(services.ErrCapture, "capture", "configure", "output directory required", nil)
	}
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrCapture, "capture", "ensure output dir", "", err)
	}
	dest := s.ImagePath(index)
	logger := logging.WithContext(ctx, s.logger)

	if path, ok := s.fromCache(ctx, logger, target, dest); ok {
		return path, nil
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", services.Wrap(services.ErrCapture, "capture", "rate limit", "", err)
		}
	}
	data, err := s.fetch(ctx, target)
	if err != nil {
		return "", err
	}
	if err := fileutil.WriteFileAtomic(dest, data, 0o644); err != nil {
		return "", services.Wrap(services.ErrCapture, "capture", "write image", "", err)
	}
	s.remember(ctx, logger, target, data)

	logger.Info("url captured",
		logging.String(logging.FieldEventType, "capture_complete"),
		logging.String("selected_url", target),
		logging.Int64("image_bytes", int64(len(data))),
		logging.String("image_path", dest),
		logging.Bool("cache_hit", false),
	)
	return dest, nil
}

func (s *Service) fromCache(ctx context.Context, logger *slog.Logger, target, dest string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	entry, err := s.cache.Lookup(ctx, target)
	if err != nil {
		logging.WarnWithContext(logger, "capture cache lookup failed", "capture_cache_error",
			logging.Error(err),
			logging.String(logging.FieldImpact, "capture requested from service"),
		)
		return "", false
	}
	if entry == nil {
		return "", false
	}
	if err := fileutil.CopyFileVerified(entry.ImagePath, dest); err != nil {
		logging.WarnWithContext(logger, "capture cache copy failed", "capture_cache_error",
			logging.Error(err),
			logging.String(logging.FieldImpact, "capture requested from service"),
		)
		return "", false
	}
	logger.Info("url capture reused",
		logging.String(logging.FieldEventType, "capture_complete"),
		logging.String("selected_url", target),
		logging.Bool("cache_hit", true),
	)
	return dest, true
}

func (s *Service) remember(ctx context.Context, logger *slog.Logger, target string, data []byte) {
	if s.cache == nil {
		return
	}
	blob := filepath.Join(s.cfg.OutputDir, cacheSubdir, uuid.NewString()+".png")
	if err := fileutil.WriteFileAtomic(blob, data, 0o644); err != nil {
		logging.WarnWithContext(logger, "capture cache write failed", "capture_cache_error",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next selection of this url captures again"),
		)
		return
	}
	if _, err := s.cache.Put(ctx, target, blob, int64(len(data))); err != nil {
		_ = os.Remove(blob)
		logging.WarnWithContext(logger, "capture cache write failed", "capture_cache_error",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next selection of this url captures again"),
		)
	}
}

func (s *Service) fetch(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.Endpoint+target, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrCapture, "capture", "new request", "", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrCapture, "capture", "request", fmt.Sprintf("timeout=%s", s.cfg.Timeout), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrCapture, "capture", "request",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, services.Wrap(services.ErrCapture, "capture", "read body", "", err)
	}
	switch {
	case len(data) == 0:
		return nil, services.Wrap(services.ErrCapture, "capture", "read body", "empty image", nil)
	case len(data) > maxImageBytes:
		return nil, services.Wrap(services.ErrCapture, "capture", "read body", "image too large", nil)
	}
	if kind := http.DetectContentType(data); !strings.HasPrefix(kind, "image/") {
		return nil, services.Wrap(services.ErrCapture, "capture", "read body", "response is "+kind+", not an image", nil)
	}
	return data, nil
}

func validateTarget(target string) error {
	if target == "" {
		return fmt.Errorf("url required")
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("host required")
	}
	return nil
}
