package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func spans(pairs ...string) Extractor {
	return ExtractorFunc(func(context.Context, string) []Span {
		out := make([]Span, 0, len(pairs)/2)
		for i := 0; i+1 < len(pairs); i += 2 {
			out = append(out, Span{Text: pairs[i], Label: pairs[i+1], Score: 1})
		}
		return out
	})
}

func TestResolveScenario(t *testing.T) {
	text := "India has the largest youth population; 65% of Indians are under 35."
	tagger := spans("India", "LOCATION", "youth", "SOCIAL_GROUP", "Indians", "Social Group")
	chunker := spans("largest youth population", LabelConcept)

	r := NewResolver(WithExtractors(tagger, chunker))
	got := r.Resolve(context.Background(), text)

	want := []Entity{
		{Text: "largest youth population", Label: "CONCEPT"},
		{Text: "Demographics of India", Label: "INFERRED"},
		{Text: "Indians", Label: "SOCIAL_GROUP"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entity %d: got %#v, want %#v", i, got[i], want[i])
		}
	}
}

func TestResolveUniqueNormalizedForms(t *testing.T) {
	tagger := spans("Narendra Modi", "POLITICIAN", "narendra modi!", "PERSON", "  NARENDRA   MODI ", "PERSON")
	got := NewResolver(WithExtractors(tagger), WithRules()).Resolve(context.Background(), "Narendra Modi spoke")
	if len(got) != 1 {
		t.Fatalf("expected a single entity, got %#v", got)
	}
	if got[0].Label != "POLITICIAN" {
		t.Fatalf("expected first occurrence to win ties, got %#v", got[0])
	}
}

func TestResolveMinimumLength(t *testing.T) {
	tagger := spans("UN", "ORGANIZATION", "G-20", "EVENT", "NATO", "ORGANIZATION")
	got := NewResolver(WithExtractors(tagger), WithRules()).Resolve(context.Background(), "UN G-20 NATO")
	if len(got) != 1 || got[0].Text != "NATO" {
		t.Fatalf("expected only the four-rune entity to pass, got %#v", got)
	}
}

func TestResolveCap(t *testing.T) {
	var pairs []string
	for i := 0; i < 30; i++ {
		pairs = append(pairs, fmt.Sprintf("entity number %c%c", 'a'+i%26, 'a'+i/26), "CONCEPT")
	}
	r := NewResolver(WithExtractors(spans(pairs...)), WithRules())
	if got := r.Resolve(context.Background(), "text"); len(got) != DefaultMaxEntities {
		t.Fatalf("expected %d entities, got %d", DefaultMaxEntities, len(got))
	}
	r = NewResolver(WithExtractors(spans(pairs...)), WithRules(), WithMaxEntities(3))
	if got := r.Resolve(context.Background(), "text"); len(got) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(got))
	}
}

func TestResolveOrderIsLongestFirstAndStable(t *testing.T) {
	tagger := spans("Mumbai", "LOCATION", "Reserve Bank", "ORGANIZATION", "Kolkata", "LOCATION", "Chennai", "LOCATION")
	got := NewResolver(WithExtractors(tagger), WithRules()).Resolve(context.Background(), "x")
	var texts []string
	for _, e := range got {
		texts = append(texts, e.Text)
	}
	want := "Reserve Bank,Kolkata,Chennai,Mumbai"
	if strings.Join(texts, ",") != want {
		t.Fatalf("got %v, want %s", texts, want)
	}
}

func TestSyntheticRuleFiresOnce(t *testing.T) {
	text := "65% of Indians, 20% of Indians, and 15% of Indians agree."
	got := NewResolver().Resolve(context.Background(), text)
	count := 0
	for _, e := range got {
		if e.Text == "Demographics of India" {
			count++
			if e.Label != LabelInferred {
				t.Fatalf("unexpected label %q", e.Label)
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected one synthetic entity, got %d in %#v", count, got)
	}
}

func TestSyntheticRuleNeedsEveryPattern(t *testing.T) {
	r := NewResolver()
	if got := r.Resolve(context.Background(), "65% of people agree"); len(got) != 0 {
		t.Fatalf("expected no synthetic entity without a demographic token, got %#v", got)
	}
	if got := r.Resolve(context.Background(), "Indians agree"); len(got) != 0 {
		t.Fatalf("expected no synthetic entity without a percentage, got %#v", got)
	}
}

func TestSyntheticOnlyOutput(t *testing.T) {
	empty := ExtractorFunc(func(context.Context, string) []Span { return nil })
	got := NewResolver(WithExtractors(empty, empty)).Resolve(context.Background(), "About 40 % of Indian voters")
	if len(got) != 1 || got[0].Text != "Demographics of India" {
		t.Fatalf("expected synthetic entity only, got %#v", got)
	}
}

func TestResolveEmptyText(t *testing.T) {
	if got := NewResolver(WithExtractors(spans("India", "LOCATION"))).Resolve(context.Background(), "  "); got != nil {
		t.Fatalf("expected nil for blank text, got %#v", got)
	}
}

func TestPatternRuleValidation(t *testing.T) {
	if _, err := PatternRule("empty", nil, Entity{Text: "x"}); err == nil {
		t.Fatal("expected error for empty patterns")
	}
	if _, err := PatternRule("bad", []string{"("}, Entity{Text: "x"}); err == nil {
		t.Fatal("expected compile error")
	}
	if _, err := PatternRule("notext", []string{"a"}, Entity{}); err == nil {
		t.Fatal("expected error for missing entity text")
	}
	rule, err := PatternRule("ok", []string{"(?i)monsoon"}, Entity{Text: "Monsoon of South Asia"})
	if err != nil {
		t.Fatal(err)
	}
	if rule.Entity.Label != LabelInferred || !rule.Match("The MONSOON arrived") {
		t.Fatalf("unexpected rule %#v", rule.Entity)
	}
}

func TestCloseRunsHooks(t *testing.T) {
	var calls int
	boom := errors.New("boom")
	r := NewResolver(
		WithCloser(func() error { calls++; return boom }),
		WithCloser(func() error { calls++; return nil }),
	)
	if err := r.Close(); !errors.Is(err, boom) {
		t.Fatalf("expected first error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected both hooks to run, got %d", calls)
	}
}
