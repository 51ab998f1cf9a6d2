package ranking

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Provenance sources.
const (
	SourceWikipedia = "wikipedia"
	SourceNews      = "news"
	SourceManual    = "manual"
)

// Provenance records where a hit came from. Language is empty for sources
// that are not partitioned by language.
type Provenance struct {
	Source   string `json:"source"`
	Language string `json:"language,omitempty"`
}

// Tag renders the short display tag, e.g. "EN Wiki" or "News".
func (p Provenance) Tag() string {
	switch p.Source {
	case SourceWikipedia:
		if p.Language == "" {
			return "Wiki"
		}
		return strings.ToUpper(p.Language) + " Wiki"
	case SourceNews:
		return "News"
	case SourceManual:
		return "URL"
	case "":
		return "?"
	default:
		first, size := utf8.DecodeRuneInString(p.Source)
		return string(unicode.ToUpper(first)) + p.Source[size:]
	}
}

// Hit is a single provider search result.
type Hit struct {
	Title      string
	URL        string
	Snippet    string
	Provenance Provenance
}

// Candidate is a ranked knowledge source. Score is nil when no semantic
// scorer was available for the ranking that produced it.
type Candidate struct {
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	Snippet    string     `json:"snippet,omitempty"`
	Provenance Provenance `json:"provenance"`
	Score      *float64   `json:"score,omitempty"`
}

// DisplayTitle renders "[<TAG>] <title>" for display. It is never parsed.
func (c Candidate) DisplayTitle() string {
	return "[" + c.Provenance.Tag() + "] " + c.Title
}

// Scored reports whether the candidate carries a semantic score.
func (c Candidate) Scored() bool {
	return c.Score != nil
}

// SameSource reports whether two candidates point at the same URL.
func (c Candidate) SameSource(other Candidate) bool {
	return strings.TrimSpace(c.URL) == strings.TrimSpace(other.URL)
}

func candidateFromHit(h Hit) Candidate {
	return Candidate{Title: h.Title, URL: h.URL, Snippet: h.Snippet, Provenance: h.Provenance}
}

// Provider searches one knowledge source.
type Provider interface {
	// Name identifies the provider in logs and source filters.
	Name() string
	Search(ctx context.Context, query, language string) ([]Hit, error)
}

// Scorer scores a reference text against candidate texts. Scores are returned
// in input order; higher is more similar. Implementations that cannot serve a
// request return an error wrapping services.ErrScorerUnavailable.
type Scorer interface {
	Score(ctx context.Context, reference string, candidates []string) ([]float64, error)
}
