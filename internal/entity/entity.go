package entity

import (
	"context"
	"strings"
)

// Label values produced outside the zero-shot tagger.
const (
	LabelConcept  = "CONCEPT"
	LabelInferred = "INFERRED"
)

// Entity is a labeled text span of interest within a segment.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Normalized returns the comparison key for the entity text.
func (e Entity) Normalized() string {
	return Normalize(e.Text)
}

// Span is a raw extractor hit. Score is the extractor confidence in [0,1];
// extractors without a confidence report 1.
type Span struct {
	Text  string
	Label string
	Score float64
}

// Extractor yields raw spans for a piece of text. Implementations absorb
// their own failures and return an empty slice instead of an error.
type Extractor interface {
	Extract(ctx context.Context, text string) []Span
}

// ExtractorFunc adapts a plain function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, text string) []Span

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, text string) []Span {
	return f(ctx, text)
}

// NormalizeLabel uppercases a label and replaces inner whitespace with
// underscores so "Social Group" and "SOCIAL_GROUP" compare equal.
func NormalizeLabel(label string) string {
	return strings.ToUpper(strings.Join(strings.Fields(label), "_"))
}
