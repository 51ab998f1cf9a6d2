package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working, output, cache, and log directories.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	CacheDir  string `toml:"cache_dir"`
}

// Transcription contains WhisperX settings used to segment speech.
type Transcription struct {
	Model       string `toml:"model"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	VADMethod   string `toml:"vad_method"`
	HFToken     string `toml:"hf_token"`
	// Language forces a transcription language. Empty means auto-detect.
	Language string `toml:"language"`
}

// SyntheticRule appends a fixed entity when every pattern matches the text.
type SyntheticRule struct {
	Name     string   `toml:"name"`
	Patterns []string `toml:"patterns"`
	Text     string   `toml:"text"`
	Label    string   `toml:"label"`
}

// Extraction contains entity tagging and chunking settings.
type Extraction struct {
	// Tagger selects the zero-shot tagger: "llm" or "none".
	Tagger      string          `toml:"tagger"`
	Chunker     bool            `toml:"chunker"`
	Labels      []string        `toml:"labels"`
	Threshold   float64         `toml:"threshold"`
	MaxEntities int             `toml:"max_entities"`
	Rules       []SyntheticRule `toml:"rules"`
}

// LLM contains chat completion connection settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Expansion adds auxiliary queries when a keyword and language match.
type Expansion struct {
	Keywords  []string `toml:"keywords"`
	Languages []string `toml:"languages"`
	Queries   []string `toml:"queries"`
}

// Embedding contains the OpenAI-compatible embeddings endpoint settings.
type Embedding struct {
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url"`
	EnglishModel      string `toml:"english_model"`
	MultilingualModel string `toml:"multilingual_model"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

// Ranking contains candidate ranking settings.
type Ranking struct {
	// Mode is "english" (forces en retrieval) or "multilingual".
	Mode string `toml:"mode"`
	// Scorer is "embedding", "lexical", or "none".
	Scorer                 string      `toml:"scorer"`
	MaxCandidates          int         `toml:"max_candidates"`
	ProviderTimeoutSeconds int         `toml:"provider_timeout_seconds"`
	Expansions             []Expansion `toml:"expansions"`
	Embedding              Embedding   `toml:"embedding"`
}

// Wikipedia contains encyclopedia provider settings.
type Wikipedia struct {
	Enabled           bool    `toml:"enabled"`
	Results           int     `toml:"results"`
	BaseURL           string  `toml:"base_url"`
	UserAgent         string  `toml:"user_agent"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	CacheTTLSeconds   int     `toml:"cache_ttl_seconds"`
}

// News contains news search provider settings.
type News struct {
	Enabled           bool    `toml:"enabled"`
	Results           int     `toml:"results"`
	Endpoint          string  `toml:"endpoint"`
	QuerySuffix       string  `toml:"query_suffix"`
	UserAgent         string  `toml:"user_agent"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	CacheTTLSeconds   int     `toml:"cache_ttl_seconds"`
}

// Providers groups the configured search providers.
type Providers struct {
	Wikipedia Wikipedia `toml:"wikipedia"`
	News      News      `toml:"news"`
}

// Capture contains URL screenshot settings.
type Capture struct {
	Endpoint          string  `toml:"endpoint"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	CacheEnabled      bool    `toml:"cache_enabled"`
}

// Render contains overlay layout and encoder settings.
type Render struct {
	OverlayWidth  int    `toml:"overlay_width"`
	OffsetX       int    `toml:"offset_x"`
	OffsetY       int    `toml:"offset_y"`
	VideoCodec    string `toml:"video_codec"`
	Preset        string `toml:"preset"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Pipeline contains orchestration settings.
type Pipeline struct {
	AnnotationWorkers int `toml:"annotation_workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications configures ntfy delivery for finished runs.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Config encapsulates all configuration values for vidlore.
//
// Configuration sections by subsystem:
//   - Paths: work, output, cache, and log directories
//   - Transcription: WhisperX model and device
//   - Extraction: entity tagger, chunker, and synthetic rules
//   - LLM: chat completion endpoint used by the zero-shot tagger
//   - Ranking: scorer, candidate cap, and query expansions
//   - Providers: Wikipedia and news search
//   - Capture: URL screenshot service
//   - Render: overlay layout and encoder
//   - Pipeline: annotation concurrency
//   - Notifications: ntfy topic for run completion
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transcription Transcription `toml:"transcription"`
	Extraction    Extraction    `toml:"extraction"`
	LLM           LLM           `toml:"llm"`
	Ranking       Ranking       `toml:"ranking"`
	Providers     Providers     `toml:"providers"`
	Capture       Capture       `toml:"capture"`
	Render        Render        `toml:"render"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidlore.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work, output, cache, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CaptureDir returns the directory captured overlay images are written to.
func (c *Config) CaptureDir() string {
	return filepath.Join(c.Paths.CacheDir, "screenshots")
}

// CaptureCachePath returns the sqlite database backing the capture cache.
func (c *Config) CaptureCachePath() string {
	return filepath.Join(c.Paths.CacheDir, "captures.db")
}

// SessionLogDir holds one JSON log file per annotation session.
func (c *Config) SessionLogDir() string {
	return filepath.Join(c.Paths.LogDir, "sessions")
}

// FFmpegBinary returns the ffmpeg executable used for extraction and rendering.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Render.FFmpegBinary); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for media inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Render.FFprobeBinary); bin != "" {
		return bin
	}
	return "ffprobe"
}

// EnglishOnly reports whether retrieval is pinned to English.
func (c *Config) EnglishOnly() bool {
	return c.Ranking.Mode == RankingModeEnglish
}

// EmbeddingModel returns the embedding model matching the ranking mode.
func (c *Config) EmbeddingModel() string {
	if c.EnglishOnly() {
		return c.Ranking.Embedding.EnglishModel
	}
	return c.Ranking.Embedding.MultilingualModel
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "vidlore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/vidlore"
	}
	return filepath.Join(home, ".cache", "vidlore")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// LLMConfig contains common LLM settings used by the tagger and preflight.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}

// Marshal renders the effective configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	redacted := *c
	if redacted.LLM.APIKey != "" {
		redacted.LLM.APIKey = redactedSecret
	}
	if redacted.Ranking.Embedding.APIKey != "" {
		redacted.Ranking.Embedding.APIKey = redactedSecret
	}
	if redacted.Transcription.HFToken != "" {
		redacted.Transcription.HFToken = redactedSecret
	}
	return toml.Marshal(redacted)
}
