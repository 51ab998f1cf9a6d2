package config

import (
	"fmt"
	"os"
	"strings"

	"vidlore/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeExtraction()
	c.normalizeLLM()
	c.normalizeRanking()
	c.normalizeProviders()
	c.normalizeCapture()
	c.normalizeRender()
	if c.Pipeline.AnnotationWorkers <= 0 {
		c.Pipeline.AnnotationWorkers = defaultAnnotationWorkers
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultTranscriptionModel
	}
	c.Transcription.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.VADMethod))
	if c.Transcription.VADMethod == "" {
		c.Transcription.VADMethod = defaultVADMethod
	}
	c.Transcription.HFToken = strings.TrimSpace(c.Transcription.HFToken)
	if c.Transcription.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		}
	}
	c.Transcription.Language = language.ToISO2(c.Transcription.Language)
}

func (c *Config) normalizeExtraction() {
	c.Extraction.Tagger = strings.ToLower(strings.TrimSpace(c.Extraction.Tagger))
	if c.Extraction.Tagger == "" {
		c.Extraction.Tagger = defaultTagger
	}
	labels := make([]string, 0, len(c.Extraction.Labels))
	for _, label := range normalizeList(c.Extraction.Labels, strings.ToUpper) {
		labels = append(labels, strings.ReplaceAll(label, " ", "_"))
	}
	if len(labels) == 0 {
		labels = defaultLabels()
	}
	c.Extraction.Labels = labels
	if c.Extraction.Threshold <= 0 {
		c.Extraction.Threshold = defaultTaggerThreshold
	}
	if c.Extraction.MaxEntities <= 0 {
		c.Extraction.MaxEntities = defaultMaxEntities
	}
	for i := range c.Extraction.Rules {
		rule := &c.Extraction.Rules[i]
		rule.Name = strings.TrimSpace(rule.Name)
		rule.Text = strings.TrimSpace(rule.Text)
		rule.Label = strings.ToUpper(strings.TrimSpace(rule.Label))
		if rule.Label == "" {
			rule.Label = "INFERRED"
		}
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("VIDLORE_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeRanking() {
	c.Ranking.Mode = strings.ToLower(strings.TrimSpace(c.Ranking.Mode))
	if c.Ranking.Mode == "" {
		c.Ranking.Mode = defaultRankingMode
	}
	c.Ranking.Scorer = strings.ToLower(strings.TrimSpace(c.Ranking.Scorer))
	if c.Ranking.Scorer == "" {
		c.Ranking.Scorer = defaultScorer
	}
	if c.Ranking.MaxCandidates <= 0 {
		c.Ranking.MaxCandidates = defaultMaxCandidates
	}
	if c.Ranking.ProviderTimeoutSeconds <= 0 {
		c.Ranking.ProviderTimeoutSeconds = defaultProviderTimeoutSeconds
	}
	for i := range c.Ranking.Expansions {
		exp := &c.Ranking.Expansions[i]
		exp.Keywords = normalizeList(exp.Keywords, strings.ToLower)
		exp.Languages = language.NormalizeList(exp.Languages)
		exp.Queries = normalizeList(exp.Queries, nil)
	}

	emb := &c.Ranking.Embedding
	emb.BaseURL = strings.TrimSpace(emb.BaseURL)
	if emb.BaseURL == "" {
		emb.BaseURL = defaultEmbeddingBaseURL
	}
	emb.EnglishModel = strings.TrimSpace(emb.EnglishModel)
	if emb.EnglishModel == "" {
		emb.EnglishModel = defaultEnglishModel
	}
	emb.MultilingualModel = strings.TrimSpace(emb.MultilingualModel)
	if emb.MultilingualModel == "" {
		emb.MultilingualModel = defaultMultilingualModel
	}
	if emb.TimeoutSeconds <= 0 {
		emb.TimeoutSeconds = defaultEmbeddingTimeout
	}
	emb.APIKey = strings.TrimSpace(emb.APIKey)
	if emb.APIKey == "" {
		if value, ok := os.LookupEnv("VIDLORE_EMBEDDING_API_KEY"); ok {
			emb.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			emb.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeProviders() {
	wiki := &c.Providers.Wikipedia
	if wiki.Results <= 0 {
		wiki.Results = defaultWikipediaResults
	}
	wiki.BaseURL = strings.TrimRight(strings.TrimSpace(wiki.BaseURL), "/")
	if wiki.BaseURL == "" {
		wiki.BaseURL = defaultWikipediaBaseURL
	}
	wiki.UserAgent = strings.TrimSpace(wiki.UserAgent)
	if wiki.UserAgent == "" {
		wiki.UserAgent = defaultUserAgent
	}
	if wiki.RequestsPerSecond <= 0 {
		wiki.RequestsPerSecond = defaultWikipediaRPS
	}
	if wiki.CacheTTLSeconds < 0 {
		wiki.CacheTTLSeconds = 0
	}

	news := &c.Providers.News
	if news.Results <= 0 {
		news.Results = defaultNewsResults
	}
	news.Endpoint = strings.TrimSpace(news.Endpoint)
	if news.Endpoint == "" {
		news.Endpoint = defaultNewsEndpoint
	}
	news.QuerySuffix = strings.TrimSpace(news.QuerySuffix)
	news.UserAgent = strings.TrimSpace(news.UserAgent)
	if news.UserAgent == "" {
		news.UserAgent = defaultUserAgent
	}
	if news.RequestsPerSecond <= 0 {
		news.RequestsPerSecond = defaultNewsRPS
	}
	if news.CacheTTLSeconds < 0 {
		news.CacheTTLSeconds = 0
	}
}

func (c *Config) normalizeCapture() {
	c.Capture.Endpoint = strings.TrimSpace(c.Capture.Endpoint)
	if c.Capture.Endpoint == "" {
		c.Capture.Endpoint = defaultCaptureEndpoint
	}
	if c.Capture.TimeoutSeconds <= 0 {
		c.Capture.TimeoutSeconds = defaultCaptureTimeoutSeconds
	}
	if c.Capture.RequestsPerSecond <= 0 {
		c.Capture.RequestsPerSecond = defaultCaptureRPS
	}
}

func (c *Config) normalizeRender() {
	if c.Render.OverlayWidth == 0 {
		c.Render.OverlayWidth = defaultOverlayWidth
	}
	c.Render.VideoCodec = strings.TrimSpace(c.Render.VideoCodec)
	if c.Render.VideoCodec == "" {
		c.Render.VideoCodec = defaultVideoCodec
	}
	c.Render.Preset = strings.TrimSpace(c.Render.Preset)
	if c.Render.Preset == "" {
		c.Render.Preset = defaultPreset
	}
	c.Render.FFmpegBinary = strings.TrimSpace(c.Render.FFmpegBinary)
	c.Render.FFprobeBinary = strings.TrimSpace(c.Render.FFprobeBinary)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func normalizeList(values []string, transform func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if transform != nil {
			value = transform(value)
		}
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
