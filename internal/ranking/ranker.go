package ranking

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"vidlore/internal/language"
	"vidlore/internal/logging"
	"vidlore/internal/services"
)

const (
	// DefaultMaxCandidates caps the ranked list.
	DefaultMaxCandidates = 8
	// DefaultProviderTimeout bounds a single provider call.
	DefaultProviderTimeout = 10 * time.Second
)

// Ranker merges provider hits and semantic scores into a ranked list.
type Ranker struct {
	providers   []Provider
	scorer      Scorer
	expansions  []Expansion
	max         int
	timeout     time.Duration
	englishOnly bool
	logger      *slog.Logger
}

// Option customizes a Ranker.
type Option func(*Ranker)

// WithProviders sets the providers queried, in display order.
func WithProviders(providers ...Provider) Option {
	return func(r *Ranker) { r.providers = append([]Provider(nil), providers...) }
}

// WithScorer sets the semantic scorer. A nil scorer ranks in provider order.
func WithScorer(scorer Scorer) Option {
	return func(r *Ranker) { r.scorer = scorer }
}

// WithExpansions sets the query expansion rules.
func WithExpansions(expansions ...Expansion) Option {
	return func(r *Ranker) { r.expansions = append([]Expansion(nil), expansions...) }
}

// WithMaxCandidates overrides the output cap. Values <= 0 keep the default.
func WithMaxCandidates(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.max = n
		}
	}
}

// WithProviderTimeout overrides the per-call provider timeout.
func WithProviderTimeout(d time.Duration) Option {
	return func(r *Ranker) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithEnglishOnly pins retrieval to English regardless of segment language.
func WithEnglishOnly(enabled bool) Option {
	return func(r *Ranker) { r.englishOnly = enabled }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRanker constructs a ranker.
func NewRanker(opts ...Option) *Ranker {
	r := &Ranker{
		max:     DefaultMaxCandidates,
		timeout: DefaultProviderTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "ranker")
	return r
}

// WithSources returns a copy of r restricted to the named providers. Unknown
// names are ignored; an empty list keeps every provider.
func (r *Ranker) WithSources(names ...string) *Ranker {
	if len(names) == 0 {
		return r
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	clone := *r
	clone.providers = nil
	for _, p := range r.providers {
		if _, ok := want[strings.ToLower(p.Name())]; ok {
			clone.providers = append(clone.providers, p)
		}
	}
	return &clone
}

// Language resolves the retrieval language for a segment.
func (r *Ranker) Language(segmentLanguage string) string {
	if r.englishOnly {
		return "en"
	}
	if lang := language.ToISO2(segmentLanguage); lang != "" {
		return lang
	}
	return "en"
}

// Rank queries every provider for the entity (plus triggered expansion
// queries), then orders the hits by semantic similarity to segmentText.
// Provider failures and an unavailable scorer degrade the result; Rank never
// returns an error, and zero hits yields an empty list.
func (r *Ranker) Rank(ctx context.Context, segmentText, entityText, lang string) []Candidate {
	entityText = strings.TrimSpace(entityText)
	if entityText == "" {
		return nil
	}
	lang = r.Language(lang)
	queries := expandQueries(r.expansions, segmentText, entityText, lang)
	logger := logging.WithContext(ctx, r.logger)

	hits := r.retrieve(ctx, logger, queries, lang)
	if len(hits) == 0 {
		logger.Debug("no candidates found", logging.String("query", entityText))
		return []Candidate{}
	}

	reference := strings.TrimSpace(segmentText)
	if reference == "" {
		reference = entityText
	}
	ranked, scored := r.score(ctx, logger, reference, hits)
	if len(ranked) > r.max {
		ranked = ranked[:r.max]
	}
	logger.Debug("candidates ranked",
		logging.Int("hit_count", len(hits)),
		logging.Int("candidate_count", len(ranked)),
		logging.Bool("scored", scored),
	)
	return ranked
}

// retrieve fans out one call per (provider, query) pair. Each call gets its
// own timeout and writes to its own slot, so the concatenation order is
// provider order, then query order, regardless of completion order.
func (r *Ranker) retrieve(ctx context.Context, logger *slog.Logger, queries []string, lang string) []Candidate {
	slots := make([][]Hit, len(r.providers)*len(queries))
	var g errgroup.Group
	for pi, provider := range r.providers {
		for qi, query := range queries {
			slot := pi*len(queries) + qi
			g.Go(func() error {
				callCtx, cancel := context.WithTimeout(ctx, r.timeout)
				defer cancel()
				found, err := provider.Search(callCtx, query, lang)
				if err != nil {
					logging.WarnWithContext(logger, "provider search failed", "provider_failed",
						logging.String(logging.FieldProvider, provider.Name()),
						logging.String("query", query),
						logging.Error(services.Wrap(services.ErrProvider, "ranking", provider.Name(), "search failed", err)),
						logging.String(logging.FieldImpact, "no hits from this provider for this query"),
						logging.String(logging.FieldErrorHint, "check network access or provider settings"),
					)
					return nil
				}
				slots[slot] = found
				return nil
			})
		}
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	var out []Candidate
	for _, slot := range slots {
		for _, h := range slot {
			url := strings.TrimSpace(h.URL)
			if url == "" || strings.TrimSpace(h.Title) == "" {
				continue
			}
			if _, dup := seen[url]; dup {
				continue
			}
			seen[url] = struct{}{}
			out = append(out, candidateFromHit(h))
		}
	}
	return out
}

func (r *Ranker) score(ctx context.Context, logger *slog.Logger, reference string, hits []Candidate) ([]Candidate, bool) {
	if r.scorer == nil {
		return hits, false
	}
	titles := make([]string, len(hits))
	for i, h := range hits {
		titles[i] = h.Title
	}
	scores, err := r.scorer.Score(ctx, reference, titles)
	if err == nil && len(scores) != len(hits) {
		err = services.Wrap(services.ErrScorerUnavailable, "ranking", "score", "score count mismatch", nil)
	}
	if err != nil {
		if errors.Is(err, services.ErrScorerUnavailable) {
			logger.Info("semantic scorer unavailable; using provider order", logging.Error(err))
		} else {
			logging.WarnWithContext(logger, "semantic scoring failed", "scorer_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "candidates keep provider order"),
				logging.String(logging.FieldErrorHint, "check ranking.embedding settings"),
			)
		}
		return hits, false
	}
	for i := range hits {
		s := scores[i]
		hits[i].Score = &s
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return *hits[i].Score > *hits[j].Score
	})
	return hits, true
}
