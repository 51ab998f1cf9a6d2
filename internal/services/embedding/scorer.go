package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"vidlore/internal/logging"
	"vidlore/internal/services"
)

const (
	defaultBaseURL = "https://api.openai.com/v1/embeddings"
	defaultTimeout = 30 * time.Second
)

// Config captures the embeddings endpoint settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Scorer implements ranking.Scorer with remote sentence embeddings.
type Scorer struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the scorer.
type Option func(*Scorer)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Scorer) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a scorer.
func New(cfg Config, opts ...Option) *Scorer {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	s := &Scorer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "embedding")
	return s
}

// Configured reports whether the scorer has credentials and a model.
func (s *Scorer) Configured() bool {
	return s != nil && s.cfg.APIKey != "" && s.cfg.Model != ""
}

// Model returns the embedding model name.
func (s *Scorer) Model() string {
	return s.cfg.Model
}

// Score embeds reference and candidates in one request and returns the
// cosine similarity of each candidate to the reference, in input order.
func (s *Scorer) Score(ctx context.Context, reference string, candidates []string) ([]float64, error) {
	if !s.Configured() {
		return nil, services.Wrap(services.ErrScorerUnavailable, "embedding", "score", "api key and model required", nil)
	}
	if len(candidates) == 0 {
		return []float64{}, nil
	}
	inputs := make([]string, 0, len(candidates)+1)
	inputs = append(inputs, reference)
	inputs = append(inputs, candidates...)

	vectors, err := s.embed(ctx, inputs)
	if err != nil {
		return nil, err
	}
	ref := vectors[0]
	scores := make([]float64, len(candidates))
	for i := range candidates {
		scores[i] = Cosine(ref, vectors[i+1])
	}
	s.logger.Debug("embedding scores computed",
		logging.String("model", s.cfg.Model),
		logging.Int("candidate_count", len(candidates)),
		logging.Any("scores", scores),
	)
	return scores, nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (s *Scorer) embed(ctx context.Context, inputs []string) ([][]float64, error) {
	encoded, err := json.Marshal(embeddingRequest{Model: s.cfg.Model, Input: inputs})
	if err != nil {
		return nil, services.Wrap(services.ErrScorerUnavailable, "embedding", "encode body", "", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrScorerUnavailable, "embedding", "new request", "", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrScorerUnavailable, "embedding", "request", "", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrScorerUnavailable, "embedding", "read body", "", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.ErrScorerUnavailable, "embedding", "request",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, services.Wrap(services.ErrScorerUnavailable, "embedding", "decode response", "", err)
	}
	if parsed.Error != nil {
		return nil, services.Wrap(services.ErrScorerUnavailable, "embedding", "api error", parsed.Error.Message, nil)
	}
	if len(parsed.Data) != len(inputs) {
		return nil, services.Wrap(services.ErrScorerUnavailable, "embedding", "decode response",
			fmt.Sprintf("expected %d vectors, got %d", len(inputs), len(parsed.Data)), nil)
	}
	vectors := make([][]float64, len(inputs))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(inputs) || vectors[item.Index] != nil {
			return nil, services.Wrap(services.ErrScorerUnavailable, "embedding", "decode response",
				fmt.Sprintf("unexpected vector index %d", item.Index), nil)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// Cosine returns the cosine similarity of a and b. Mismatched or zero
// vectors score 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
