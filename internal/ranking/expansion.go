package ranking

import (
	"strings"

	"vidlore/internal/config"
	"vidlore/internal/language"
)

// Expansion appends auxiliary queries when the segment text contains any
// keyword and the retrieval language is in the allow-list. An empty
// allow-list matches every language.
type Expansion struct {
	Keywords  []string
	Languages []string
	Queries   []string
}

// ExpansionsFromConfig converts configured expansions.
func ExpansionsFromConfig(cfg []config.Expansion) []Expansion {
	out := make([]Expansion, 0, len(cfg))
	for _, e := range cfg {
		out = append(out, Expansion{Keywords: e.Keywords, Languages: e.Languages, Queries: e.Queries})
	}
	return out
}

func (e Expansion) matches(foldedText, lang string) bool {
	if len(e.Languages) > 0 {
		allowed := false
		for _, l := range e.Languages {
			if language.ToISO2(l) == lang {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	for _, kw := range e.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(foldedText, kw) {
			return true
		}
	}
	return false
}

// expandQueries returns the base query followed by every triggered auxiliary
// query, without duplicates.
func expandQueries(expansions []Expansion, segmentText, entityText, lang string) []string {
	base := strings.TrimSpace(entityText)
	queries := []string{base}
	seen := map[string]struct{}{strings.ToLower(base): {}}
	folded := strings.ToLower(segmentText)
	for _, e := range expansions {
		if !e.matches(folded, lang) {
			continue
		}
		for _, q := range e.Queries {
			q = strings.TrimSpace(q)
			key := strings.ToLower(q)
			if q == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			queries = append(queries, q)
		}
	}
	return queries
}
