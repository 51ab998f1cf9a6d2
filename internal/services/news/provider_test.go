package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"vidlore/internal/ranking"
	"vidlore/internal/services"
)

const resultsPage = `<!DOCTYPE html>
<html><body>
<div class="result results_links result--ad">
  <h2 class="result__title"><a class="result__a" href="https://duckduckgo.com/y.js?ad_provider=x">Sponsored</a></h2>
  <a class="result__snippet">Buy now</a>
</div>
<div class="result results_links">
  <h2 class="result__title"><a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fnews.example.com%2Findia%2Dyouth&amp;rut=abc">India&#39;s <b>youth</b> bulge</a></h2>
  <a class="result__snippet" href="#">The country has the <b>largest</b> youth population.</a>
</div>
<div class="result results_links">
  <h2 class="result__title"><a class="result__a" href="https://paper.example.org/story">Census   data released</a></h2>
</div>
<div class="result results_links">
  <h2 class="result__title"><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fnews.example.com%2Findia%2Dyouth">Duplicate</a></h2>
</div>
<div class="result results_links">
  <h2 class="result__title"><a class="result__a" href="javascript:alert(1)">Script</a></h2>
</div>
<div class="result results_links">
  <h2 class="result__title"><a class="result__a" href="https://third.example.net/">Third story</a></h2>
  <div class="result__snippet">Third snippet</div>
</div>
</body></html>`

func TestParseResults(t *testing.T) {
	hits, err := ParseResults([]byte(resultsPage), 5)
	if err != nil {
		t.Fatalf("ParseResults: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d: %+v", len(hits), hits)
	}
	first := hits[0]
	if first.URL != "https://news.example.com/india-youth" {
		t.Fatalf("redirect not unwrapped: %q", first.URL)
	}
	if first.Title != "India's youth bulge" {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.Snippet != "The country has the largest youth population." {
		t.Fatalf("unexpected snippet %q", first.Snippet)
	}
	if first.Provenance != (ranking.Provenance{Source: ranking.SourceNews}) {
		t.Fatalf("unexpected provenance %+v", first.Provenance)
	}
	if hits[1].Title != "Census data released" || hits[1].Snippet != "" {
		t.Fatalf("unexpected second hit %+v", hits[1])
	}
	if hits[2].Snippet != "Third snippet" {
		t.Fatalf("unexpected third hit %+v", hits[2])
	}
}

func TestParseResultsHonorsLimit(t *testing.T) {
	hits, err := ParseResults([]byte(resultsPage), 2)
	if err != nil {
		t.Fatalf("ParseResults: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Snippet == "" {
		t.Fatal("snippet of a limited result should still be captured")
	}
}

func TestSearchAppendsSuffixAndCaches(t *testing.T) {
	var calls atomic.Int32
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer server.Close()

	p := New(Config{Endpoint: server.URL + "/html/", CacheTTL: time.Minute})
	for range 2 {
		hits, err := p.Search(context.Background(), "India", "hi")
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(hits) != 3 {
			t.Fatalf("expected 3 hits, got %d", len(hits))
		}
	}
	if gotQuery != "India news" {
		t.Fatalf("expected suffixed query, got %q", gotQuery)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected cached second call, got %d upstream calls", calls.Load())
	}
}

func TestSearchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := New(Config{Endpoint: server.URL}).Search(context.Background(), "India", "")
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}
