package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"vidlore/internal/capturestore"
	"vidlore/internal/config"
	"vidlore/internal/entity"
	"vidlore/internal/logging"
	"vidlore/internal/media/ffmpeg"
	"vidlore/internal/media/ffprobe"
	"vidlore/internal/models"
	"vidlore/internal/ranking"
	"vidlore/internal/services/capture"
	"vidlore/internal/services/embedding"
	"vidlore/internal/services/llm"
	"vidlore/internal/services/news"
	"vidlore/internal/services/whisperx"
	"vidlore/internal/services/wikipedia"
)

// NewFromConfig wires the production collaborators described by cfg.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, messages chan<- Message) (*Pipeline, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	ffprobeBinary := cfg.FFprobeBinary()
	probe := func(ctx context.Context, path string) (ffprobe.Result, error) {
		return ffprobe.Inspect(ctx, ffprobeBinary, path)
	}
	tool := ffmpeg.New(cfg.FFmpegBinary(),
		ffmpeg.WithEncoder(cfg.Render.VideoCodec, cfg.Render.Preset),
		ffmpeg.WithLogger(logger),
	)
	transcriber := whisperx.NewService(whisperx.Config{
		Model:       cfg.Transcription.Model,
		CUDAEnabled: cfg.Transcription.CUDAEnabled,
		VADMethod:   cfg.Transcription.VADMethod,
		HFToken:     cfg.Transcription.HFToken,
		Language:    cfg.Transcription.Language,
	}, "")

	var closers []func() error
	captureOpts := []capture.Option{capture.WithLogger(logger)}
	if cfg.Capture.CacheEnabled {
		store, err := capturestore.Open(cfg.CaptureCachePath())
		if err != nil {
			logging.WarnWithContext(logger, "capture cache unavailable", "capture_cache_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "every selection captures from the service"),
			)
		} else {
			captureOpts = append(captureOpts, capture.WithCache(store))
			closers = append(closers, store.Close)
		}
	}
	capturer := capture.New(capture.Config{
		Endpoint:          cfg.Capture.Endpoint,
		Timeout:           time.Duration(cfg.Capture.TimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.Capture.RequestsPerSecond,
		OutputDir:         cfg.CaptureDir(),
	}, captureOpts...)

	registry := models.NewRegistry(logger)
	registry.Register(models.Extraction, func(context.Context) (models.Model, error) {
		return BuildResolver(cfg, logger)
	})
	registry.Register(models.Ranking, func(context.Context) (models.Model, error) {
		return NewRankingModel(BuildRanker(cfg, logger), nil), nil
	})

	return New(cfg, Deps{
		Probe:       probe,
		Media:       tool,
		Transcriber: transcriber,
		Capturer:    capturer,
		Registry:    registry,
		Logger:      logger,
		Messages:    messages,
		Closers:     closers,
	})
}

// BuildResolver assembles the entity resolver: the LLM tagger first (when
// enabled), then the noun-phrase chunker, then the configured synthetic rules.
func BuildResolver(cfg *config.Config, logger *slog.Logger) (*entity.Resolver, error) {
	var extractors []entity.Extractor
	if cfg.Extraction.Tagger == config.TaggerLLM {
		llmCfg := cfg.GetLLM()
		client := llm.NewClient(llm.Config{
			APIKey:         llmCfg.APIKey,
			BaseURL:        llmCfg.BaseURL,
			Model:          llmCfg.Model,
			Referer:        llmCfg.Referer,
			Title:          llmCfg.Title,
			TimeoutSeconds: llmCfg.TimeoutSeconds,
		})
		extractors = append(extractors, entity.NewLLMTagger(client, cfg.Extraction.Labels, cfg.Extraction.Threshold, logger))
	}
	if cfg.Extraction.Chunker {
		extractors = append(extractors, entity.NewChunker(logger))
	}
	rules, err := entity.RulesFromConfig(cfg.Extraction.Rules)
	if err != nil {
		return nil, err
	}
	return entity.NewResolver(
		entity.WithExtractors(extractors...),
		entity.WithRules(rules...),
		entity.WithMaxEntities(cfg.Extraction.MaxEntities),
		entity.WithLogger(logger),
	), nil
}

// BuildProviders returns the enabled search providers in display order:
// encyclopedia first, then news.
func BuildProviders(cfg *config.Config, logger *slog.Logger) []ranking.Provider {
	var providers []ranking.Provider
	if wiki := cfg.Providers.Wikipedia; wiki.Enabled {
		providers = append(providers, wikipedia.New(wikipedia.Config{
			Results:           wiki.Results,
			BaseURL:           wiki.BaseURL,
			UserAgent:         wiki.UserAgent,
			RequestsPerSecond: wiki.RequestsPerSecond,
			CacheTTL:          time.Duration(wiki.CacheTTLSeconds) * time.Second,
		}, wikipedia.WithLogger(logger)))
	}
	if n := cfg.Providers.News; n.Enabled {
		providers = append(providers, news.New(news.Config{
			Results:           n.Results,
			Endpoint:          n.Endpoint,
			QuerySuffix:       n.QuerySuffix,
			UserAgent:         n.UserAgent,
			RequestsPerSecond: n.RequestsPerSecond,
			CacheTTL:          time.Duration(n.CacheTTLSeconds) * time.Second,
		}, news.WithLogger(logger)))
	}
	return providers
}

// BuildScorer returns the configured semantic scorer, or nil for "none".
func BuildScorer(cfg *config.Config, logger *slog.Logger) ranking.Scorer {
	switch strings.ToLower(cfg.Ranking.Scorer) {
	case config.ScorerEmbedding:
		emb := cfg.Ranking.Embedding
		return embedding.New(embedding.Config{
			APIKey:         emb.APIKey,
			BaseURL:        emb.BaseURL,
			Model:          cfg.EmbeddingModel(),
			TimeoutSeconds: emb.TimeoutSeconds,
		}, embedding.WithLogger(logger))
	case config.ScorerLexical:
		return ranking.LexicalScorer{}
	default:
		return nil
	}
}

// BuildRanker assembles the candidate ranker from cfg.
func BuildRanker(cfg *config.Config, logger *slog.Logger) *ranking.Ranker {
	opts := []ranking.Option{
		ranking.WithProviders(BuildProviders(cfg, logger)...),
		ranking.WithExpansions(ranking.ExpansionsFromConfig(cfg.Ranking.Expansions)...),
		ranking.WithMaxCandidates(cfg.Ranking.MaxCandidates),
		ranking.WithProviderTimeout(time.Duration(cfg.Ranking.ProviderTimeoutSeconds) * time.Second),
		ranking.WithEnglishOnly(cfg.EnglishOnly()),
		ranking.WithLogger(logger),
	}
	if scorer := BuildScorer(cfg, logger); scorer != nil {
		opts = append(opts, ranking.WithScorer(scorer))
	}
	return ranking.NewRanker(opts...)
}
