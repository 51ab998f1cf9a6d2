package preflight

import (
	"context"
	"fmt"
	"strings"

	"vidlore/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory checks plus every network check whose
// feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := DirectoryChecks(cfg)

	if cfg.Extraction.Tagger == config.TaggerLLM {
		results = append(results, CheckLLM(ctx, "Entity tagger LLM", cfg.GetLLM()))
	}

	if cfg.Providers.Wikipedia.Enabled {
		lang := "en"
		if !cfg.EnglishOnly() && cfg.Transcription.Language != "" {
			lang = cfg.Transcription.Language
		}
		endpoint := cfg.Providers.Wikipedia.BaseURL
		if strings.Contains(endpoint, "%s") {
			endpoint = fmt.Sprintf(endpoint, lang)
		}
		results = append(results, CheckEndpoint(ctx, "Wikipedia", endpoint, cfg.Providers.Wikipedia.UserAgent))
	}

	if cfg.Providers.News.Enabled {
		results = append(results, CheckEndpoint(ctx, "News search", cfg.Providers.News.Endpoint, cfg.Providers.News.UserAgent))
	}

	if cfg.Ranking.Scorer == config.ScorerEmbedding {
		if strings.TrimSpace(cfg.Ranking.Embedding.APIKey) == "" {
			results = append(results, Result{Name: "Embeddings", Detail: "API key missing (ranking degrades to provider order)"})
		} else {
			results = append(results, CheckEndpoint(ctx, "Embeddings", cfg.Ranking.Embedding.BaseURL, ""))
		}
	}

	results = append(results, CheckEndpoint(ctx, "Capture", cfg.Capture.Endpoint, ""))
	return results
}

// DirectoryChecks verifies every configured working directory.
func DirectoryChecks(cfg *config.Config) []Result {
	return []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
