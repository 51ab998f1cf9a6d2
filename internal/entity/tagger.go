package entity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"vidlore/internal/logging"
	"vidlore/internal/services"
)

// DefaultThreshold drops tagger spans below this confidence.
const DefaultThreshold = 0.3

const taggerSystemPrompt = `You are a zero-shot named entity tagger for video transcripts in any language.
Return JSON only, shaped as {"entities":[{"text":"...","label":"...","score":0.0}]}.
Rules:
- "text" must be copied verbatim from the input, in the input's script.
- "label" must be one of the allowed labels.
- "score" is your confidence between 0 and 1.
- Prefer the longest specific phrase ("largest youth population" over "youth").
- Return {"entities":[]} when nothing qualifies.`

// Completer issues a JSON chat completion and decodes it into target.
type Completer interface {
	CompleteJSONInto(ctx context.Context, systemPrompt, userPrompt string, target any) error
}

// LLMTagger is a zero-shot tagger backed by a chat completion model.
type LLMTagger struct {
	client    Completer
	labels    []string
	allowed   map[string]struct{}
	threshold float64
	logger    *slog.Logger
}

// NewLLMTagger constructs a tagger restricted to labels.
func NewLLMTagger(client Completer, labels []string, threshold float64, logger *slog.Logger) *LLMTagger {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	normalized := make([]string, 0, len(labels))
	allowed := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		label = NormalizeLabel(label)
		if label == "" {
			continue
		}
		if _, ok := allowed[label]; ok {
			continue
		}
		allowed[label] = struct{}{}
		normalized = append(normalized, label)
	}
	return &LLMTagger{
		client:    client,
		labels:    normalized,
		allowed:   allowed,
		threshold: threshold,
		logger:    logging.NewComponentLogger(logger, "tagger"),
	}
}

type taggerResponse struct {
	Entities []struct {
		Text  string   `json:"text"`
		Label string   `json:"label"`
		Score *float64 `json:"score"`
	} `json:"entities"`
}

// Extract returns tagged spans that meet the confidence threshold, carry an
// allowed label, and occur in text. Failures are logged and yield no spans.
func (t *LLMTagger) Extract(ctx context.Context, text string) []Span {
	text = strings.TrimSpace(text)
	if t == nil || t.client == nil || text == "" {
		return nil
	}
	user := fmt.Sprintf("Allowed labels: %s\n\nText:\n%s", strings.Join(t.labels, ", "), text)

	var resp taggerResponse
	if err := t.client.CompleteJSONInto(ctx, taggerSystemPrompt, user, &resp); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, t.logger), "entity tagging failed",
			"tagger_failed",
			logging.Error(services.Wrap(services.ErrExtraction, "annotation", "tag", "llm request failed", err)),
			logging.String(logging.FieldErrorHint, "check llm.api_key and llm.model"),
			logging.String(logging.FieldImpact, "segment falls back to chunker phrases and rules"),
		)
		return nil
	}

	folded := Normalize(text)
	spans := make([]Span, 0, len(resp.Entities))
	for _, ent := range resp.Entities {
		score := 1.0
		if ent.Score != nil {
			score = *ent.Score
		}
		label := NormalizeLabel(ent.Label)
		if _, ok := t.allowed[label]; !ok {
			continue
		}
		if score < t.threshold {
			continue
		}
		norm := Normalize(ent.Text)
		if norm == "" || !strings.Contains(folded, norm) {
			continue
		}
		spans = append(spans, Span{Text: strings.TrimSpace(ent.Text), Label: label, Score: score})
	}
	return spans
}
