package entity

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jdkato/prose/v2"

	"vidlore/internal/logging"
)

// Chunker finds multi-word noun phrases matching <JJ.*>*<NN.*>+ using a
// part-of-speech tagger.
type Chunker struct {
	logger *slog.Logger
}

// NewChunker constructs a noun-phrase chunker.
func NewChunker(logger *slog.Logger) *Chunker {
	return &Chunker{logger: logging.NewComponentLogger(logger, "chunker")}
}

// Extract returns multi-word noun phrases labeled CONCEPT.
func (c *Chunker) Extract(ctx context.Context, text string) []Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	doc, err := prose.NewDocument(text,
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		c.logger.Debug("pos tagging failed", logging.Error(err))
		return nil
	}
	tokens := doc.Tokens()
	tags := make([]taggedWord, 0, len(tokens))
	for _, tok := range tokens {
		tags = append(tags, taggedWord{text: tok.Text, tag: tok.Tag})
	}
	return chunkNounPhrases(tags)
}

type taggedWord struct {
	text string
	tag  string
}

// chunkNounPhrases applies the grammar left to right, taking the longest match
// at each position. Single-word chunks are dropped.
func chunkNounPhrases(words []taggedWord) []Span {
	var spans []Span
	for i := 0; i < len(words); {
		j := i
		for j < len(words) && strings.HasPrefix(words[j].tag, "JJ") {
			j++
		}
		k := j
		for k < len(words) && strings.HasPrefix(words[k].tag, "NN") {
			k++
		}
		if k == j {
			i++
			continue
		}
		if k-i > 1 {
			parts := make([]string, 0, k-i)
			for _, w := range words[i:k] {
				parts = append(parts, w.text)
			}
			spans = append(spans, Span{Text: strings.Join(parts, " "), Label: LabelConcept, Score: 1})
		}
		i = k
	}
	return spans
}
