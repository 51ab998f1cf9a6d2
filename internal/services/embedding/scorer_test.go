package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"vidlore/internal/services"
)

func TestScoreReturnsCosineInInputOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "mini" || len(req.Input) != 3 || req.Input[0] != "youth population" {
			t.Errorf("unexpected request %+v", req)
		}
		// Out-of-order indexes must be placed by index.
		_, _ = w.Write([]byte(`{"data":[
			{"index":2,"embedding":[0,1]},
			{"index":0,"embedding":[1,0]},
			{"index":1,"embedding":[1,1]}
		]}`))
	}))
	defer server.Close()

	s := New(Config{APIKey: "secret", BaseURL: server.URL, Model: "mini"})
	scores, err := s.Score(context.Background(), "youth population", []string{"Demographics of India", "Cricket"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("expected 2 scores, got %v", scores)
	}
	if math.Abs(scores[0]-1/math.Sqrt2) > 1e-9 || scores[1] != 0 {
		t.Fatalf("unexpected scores %v", scores)
	}
}

func TestScoreUnavailable(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer failing.Close()
	short := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
	}))
	defer short.Close()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "no key", cfg: Config{Model: "mini"}},
		{name: "http error", cfg: Config{APIKey: "k", Model: "mini", BaseURL: failing.URL}},
		{name: "vector count", cfg: Config{APIKey: "k", Model: "mini", BaseURL: short.URL}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg).Score(context.Background(), "ref", []string{"a"})
			if !errors.Is(err, services.ErrScorerUnavailable) {
				t.Fatalf("expected ErrScorerUnavailable, got %v", err)
			}
		})
	}
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float64{1, 2}, []float64{2, 4}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("parallel vectors should score 1, got %v", got)
	}
	if got := Cosine([]float64{1}, []float64{1, 2}); got != 0 {
		t.Fatalf("mismatched lengths should score 0, got %v", got)
	}
	if got := Cosine([]float64{0, 0}, []float64{1, 2}); got != 0 {
		t.Fatalf("zero vector should score 0, got %v", got)
	}
}
