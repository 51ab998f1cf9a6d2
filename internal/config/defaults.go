package config

const (
	defaultConfigPath             = "~/.config/vidlore/config.toml"
	defaultWorkDir                = "~/.local/share/vidlore/work"
	defaultOutputDir              = "~/.local/share/vidlore/output"
	defaultLogDir                 = "~/.local/share/vidlore/logs"
	defaultTranscriptionModel     = "tiny"
	defaultVADMethod              = "silero"
	defaultTagger                 = TaggerLLM
	defaultTaggerThreshold        = 0.3
	defaultMaxEntities            = 12
	defaultLLMBaseURL             = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel               = "google/gemini-3-flash-preview"
	defaultLLMReferer             = "https://github.com/vidlore/vidlore"
	defaultLLMTitle               = "vidlore entity tagger"
	defaultLLMTimeoutSeconds      = 60
	defaultRankingMode            = RankingModeMultilingual
	defaultScorer                 = ScorerEmbedding
	defaultMaxCandidates          = 8
	defaultProviderTimeoutSeconds = 10
	defaultEmbeddingBaseURL       = "https://api.openai.com/v1/embeddings"
	defaultEnglishModel           = "sentence-transformers/all-MiniLM-L6-v2"
	defaultMultilingualModel      = "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"
	defaultEmbeddingTimeout       = 30
	defaultWikipediaResults       = 3
	defaultWikipediaBaseURL       = "https://%s.wikipedia.org"
	defaultUserAgent              = "vidlore/dev (https://github.com/vidlore/vidlore)"
	defaultWikipediaRPS           = 5
	defaultNewsResults            = 5
	defaultNewsEndpoint           = "https://html.duckduckgo.com/html/"
	defaultNewsQuerySuffix        = "news"
	defaultNewsRPS                = 1
	defaultProviderCacheTTL       = 3600
	defaultCaptureEndpoint        = "https://image.thum.io/get/width/1000/crop/800/"
	defaultCaptureTimeoutSeconds  = 20
	defaultCaptureRPS             = 2
	defaultOverlayWidth           = 400
	defaultOverlayOffset          = 40
	defaultVideoCodec             = "libx264"
	defaultPreset                 = "veryfast"
	defaultAnnotationWorkers      = 4
	defaultNtfyTimeoutSeconds     = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 14
	redactedSecret                = "<redacted>"
)

// Tagger kinds.
const (
	TaggerLLM  = "llm"
	TaggerNone = "none"
)

// Ranking modes.
const (
	RankingModeEnglish      = "english"
	RankingModeMultilingual = "multilingual"
)

// Scorer kinds.
const (
	ScorerEmbedding = "embedding"
	ScorerLexical   = "lexical"
	ScorerNone      = "none"
)

func defaultLabels() []string {
	return []string{
		"PERSON",
		"ORGANIZATION",
		"LOCATION",
		"SOCIAL_GROUP",
		"CONCEPT",
		"PHRASE",
		"POLITICIAN",
		"EVENT",
		"SENTIMENT",
	}
}

func defaultRules() []SyntheticRule {
	return []SyntheticRule{
		{
			Name:     "india-demographics",
			Patterns: []string{`\d+(?:\.\d+)?\s*%`, `(?i)\bindians?\b`},
			Text:     "Demographics of India",
			Label:    "INFERRED",
		},
	}
}

func defaultExpansions() []Expansion {
	return []Expansion{
		{
			Keywords:  []string{"youth", "population"},
			Languages: []string{"en", "hi", "te", "ta", "mr", "bn"},
			Queries:   []string{"Demographics of India"},
		},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			CacheDir:  defaultCacheDir(),
		},
		Transcription: Transcription{
			Model:     defaultTranscriptionModel,
			VADMethod: defaultVADMethod,
		},
		Extraction: Extraction{
			Tagger:      defaultTagger,
			Chunker:     true,
			Labels:      defaultLabels(),
			Threshold:   defaultTaggerThreshold,
			MaxEntities: defaultMaxEntities,
			Rules:       defaultRules(),
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Ranking: Ranking{
			Mode:                   defaultRankingMode,
			Scorer:                 defaultScorer,
			MaxCandidates:          defaultMaxCandidates,
			ProviderTimeoutSeconds: defaultProviderTimeoutSeconds,
			Expansions:             defaultExpansions(),
			Embedding: Embedding{
				BaseURL:           defaultEmbeddingBaseURL,
				EnglishModel:      defaultEnglishModel,
				MultilingualModel: defaultMultilingualModel,
				TimeoutSeconds:    defaultEmbeddingTimeout,
			},
		},
		Providers: Providers{
			Wikipedia: Wikipedia{
				Enabled:           true,
				Results:           defaultWikipediaResults,
				BaseURL:           defaultWikipediaBaseURL,
				UserAgent:         defaultUserAgent,
				RequestsPerSecond: defaultWikipediaRPS,
				CacheTTLSeconds:   defaultProviderCacheTTL,
			},
			News: News{
				Enabled:           true,
				Results:           defaultNewsResults,
				Endpoint:          defaultNewsEndpoint,
				QuerySuffix:       defaultNewsQuerySuffix,
				UserAgent:         defaultUserAgent,
				RequestsPerSecond: defaultNewsRPS,
				CacheTTLSeconds:   defaultProviderCacheTTL,
			},
		},
		Capture: Capture{
			Endpoint:          defaultCaptureEndpoint,
			TimeoutSeconds:    defaultCaptureTimeoutSeconds,
			RequestsPerSecond: defaultCaptureRPS,
			CacheEnabled:      true,
		},
		Render: Render{
			OverlayWidth: defaultOverlayWidth,
			OffsetX:      defaultOverlayOffset,
			OffsetY:      defaultOverlayOffset,
			VideoCodec:   defaultVideoCodec,
			Preset:       defaultPreset,
		},
		Pipeline: Pipeline{
			AnnotationWorkers: defaultAnnotationWorkers,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
