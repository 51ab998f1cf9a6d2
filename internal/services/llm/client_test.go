package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"vidlore/internal/services"
)

type spanPayload struct {
	Spans []struct {
		Text  string  `json:"text"`
		Label string  `json:"label"`
		Score float64 `json:"score"`
	} `json:"spans"`
}

func serveChoice(t *testing.T, choice map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ResponseFormat["type"] != jsonResponseType {
			t.Errorf("expected json response format, got %v", req.ResponseFormat)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{choice}})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClientHealthCheck(t *testing.T) {
	server := serveChoice(t, map[string]any{"message": map[string]any{"content": `{"ok":true}`}})
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckRequiresKey(t *testing.T) {
	err := NewClient(Config{}).HealthCheck(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	err := client.HealthCheck(context.Background())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "http 401") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestCompleteJSONIntoPayloadShapes(t *testing.T) {
	const spans = `{"spans":[{"text":"Bengaluru","label":"LOCATION","score":0.91}]}`
	tests := []struct {
		name   string
		choice map[string]any
	}{
		{"message", map[string]any{"message": map[string]any{"content": spans}}},
		{"code fence", map[string]any{"message": map[string]any{"content": "```json\n" + spans + "\n```"}}},
		{"delta", map[string]any{"delta": map[string]any{"content": spans}}},
		{"legacy text", map[string]any{"text": spans, "finish_reason": "stop"}},
		{"tool call", map[string]any{
			"finish_reason": "tool_calls",
			"message": map[string]any{
				"content":    "",
				"tool_calls": []any{map[string]any{"function": map[string]any{"arguments": spans}}},
			},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := serveChoice(t, tt.choice)
			client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
			var out spanPayload
			if err := client.CompleteJSONInto(context.Background(), "tag entities", "The youth of Bengaluru", &out); err != nil {
				t.Fatalf("CompleteJSONInto: %v", err)
			}
			if len(out.Spans) != 1 || out.Spans[0].Text != "Bengaluru" || out.Spans[0].Score != 0.91 {
				t.Fatalf("unexpected spans: %+v", out.Spans)
			}
		})
	}
}

func TestCompleteJSONValidatesPrompts(t *testing.T) {
	client := NewClient(Config{APIKey: "test"})
	if _, err := client.CompleteJSON(context.Background(), " ", "text"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty system prompt, got %v", err)
	}
	if _, err := client.CompleteJSON(context.Background(), "system", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty user prompt, got %v", err)
	}
}

func TestClientEmptyContentHasSnippet(t *testing.T) {
	server := serveChoice(t, map[string]any{"finish_reason": "stop", "message": map[string]any{"content": ""}})
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.CompleteJSON(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("expected completion to fail")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected empty-content error to include snippet, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed after 3 attempt(s)") {
		t.Fatalf("expected retries to be exhausted, got %v", err)
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"spans":[]}`}}},
		})
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	client := NewClient(Config{}, WithRetryBackoff(time.Second, 5*time.Second))
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	for i, expected := range want {
		if got := client.backoffDelay(i + 1); got != expected {
			t.Fatalf("attempt %d: got %v want %v", i+1, got, expected)
		}
	}
}

func TestDecodeLLMJSONExtractsEmbeddedObject(t *testing.T) {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON("Sure! Here you go: {\"ok\": true} Hope that helps.", &out); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if !out.OK {
		t.Fatal("expected ok=true")
	}
	if err := DecodeLLMJSON("   ", &out); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
