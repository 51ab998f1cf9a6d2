package pipeline

import (
	"context"
	"testing"

	"vidlore/internal/config"
	"vidlore/internal/logging"
	"vidlore/internal/ranking"
	"vidlore/internal/services/embedding"
	"vidlore/internal/testsupport"
)

func TestBuildProvidersFollowsConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Providers.Wikipedia.Enabled = true
	cfg.Providers.News.Enabled = false
	providers := BuildProviders(cfg, logging.NewNop())
	if len(providers) != 1 || providers[0].Name() != ranking.SourceWikipedia {
		t.Fatalf("unexpected providers %+v", providers)
	}

	cfg.Providers.News.Enabled = true
	providers = BuildProviders(cfg, logging.NewNop())
	if len(providers) != 2 || providers[1].Name() != ranking.SourceNews {
		t.Fatalf("news should follow wikipedia, got %+v", providers)
	}
}

func TestBuildScorer(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	tests := []struct {
		scorer string
		check  func(ranking.Scorer) bool
	}{
		{config.ScorerLexical, func(s ranking.Scorer) bool { _, ok := s.(ranking.LexicalScorer); return ok }},
		{config.ScorerEmbedding, func(s ranking.Scorer) bool { _, ok := s.(*embedding.Scorer); return ok }},
		{config.ScorerNone, func(s ranking.Scorer) bool { return s == nil }},
	}
	for _, tc := range tests {
		cfg.Ranking.Scorer = tc.scorer
		if got := BuildScorer(cfg, logging.NewNop()); !tc.check(got) {
			t.Fatalf("scorer %q built %T", tc.scorer, got)
		}
	}
}

func TestBuildResolverAppliesRules(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Extraction.Chunker = false
	cfg.Extraction.Rules = []config.SyntheticRule{{
		Name:     "halting",
		Patterns: []string{"halting"},
		Text:     "Halting problem",
		Label:    "concept",
	}}
	resolver, err := BuildResolver(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("BuildResolver: %v", err)
	}
	defer resolver.Close()
	got := resolver.Resolve(context.Background(), "does the program stop, the halting question")
	if len(got) != 1 || got[0].Text != "Halting problem" {
		t.Fatalf("unexpected entities %+v", got)
	}
}

func TestNewFromConfigOpensCaptureCache(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCaptureCache())
	p, err := NewFromConfig(cfg, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if len(p.deps.Closers) != 1 {
		t.Fatalf("expected the capture cache closer, got %d", len(p.deps.Closers))
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
