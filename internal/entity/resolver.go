package entity

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"vidlore/internal/logging"
)

const (
	// DefaultMaxEntities caps the resolved list per segment.
	DefaultMaxEntities = 12
	minNormalizedLen   = 3
)

// Resolver merges extractor output and synthetic rules into a deduplicated,
// longest-first entity list.
type Resolver struct {
	extractors []Extractor
	rules      []Rule
	max        int
	logger     *slog.Logger
	closers    []func() error
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithExtractors sets the extractors consulted in order. The zero-shot tagger
// goes first, the chunker second.
func WithExtractors(extractors ...Extractor) Option {
	return func(r *Resolver) {
		r.extractors = append(r.extractors[:0], extractors...)
	}
}

// WithRules replaces the synthetic rule set.
func WithRules(rules ...Rule) Option {
	return func(r *Resolver) {
		r.rules = append([]Rule(nil), rules...)
	}
}

// WithMaxEntities overrides the output cap. Values <= 0 keep the default.
func WithMaxEntities(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.max = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithCloser registers a release hook run by Close.
func WithCloser(fn func() error) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.closers = append(r.closers, fn)
		}
	}
}

// NewResolver constructs a resolver with the default rules and cap.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		rules:  DefaultRules(),
		max:    DefaultMaxEntities,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type rawEntity struct {
	entity Entity
	norm   string
}

// Resolve returns at most max entities for text. Raw spans are gathered from
// every extractor, synthetic rule entities trail them, and the combined list
// is stable-sorted by normalized length descending. An entity is accepted when
// its normalized form is longer than three runes and is not a substring of any
// entity accepted before it.
func (r *Resolver) Resolve(ctx context.Context, text string) []Entity {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var raw []rawEntity
	add := func(e Entity) {
		e.Text = strings.TrimSpace(e.Text)
		if e.Text == "" {
			return
		}
		raw = append(raw, rawEntity{entity: e, norm: Normalize(e.Text)})
	}

	for _, ex := range r.extractors {
		if ctx.Err() != nil {
			break
		}
		for _, span := range ex.Extract(ctx, text) {
			add(Entity{Text: span.Text, Label: NormalizeLabel(span.Label)})
		}
	}
	for _, rule := range r.rules {
		if rule.Match != nil && rule.Match(text) {
			add(rule.Entity)
		}
	}

	sort.SliceStable(raw, func(i, j int) bool {
		return normalizedLen(raw[i].norm) > normalizedLen(raw[j].norm)
	})

	accepted := make([]string, 0, r.max)
	out := make([]Entity, 0, r.max)
	for _, cand := range raw {
		if len(out) >= r.max {
			break
		}
		if normalizedLen(cand.norm) <= minNormalizedLen {
			continue
		}
		if shadowed(cand.norm, accepted) {
			continue
		}
		accepted = append(accepted, cand.norm)
		out = append(out, cand.entity)
	}

	r.logger.Debug("entities resolved",
		logging.Int("raw_count", len(raw)),
		logging.Int("entity_count", len(out)),
	)
	return out
}

func shadowed(norm string, accepted []string) bool {
	for _, a := range accepted {
		if strings.Contains(a, norm) {
			return true
		}
	}
	return false
}

// Close runs the registered release hooks.
func (r *Resolver) Close() error {
	var first error
	for _, fn := range r.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
