// Package embedding scores candidate titles against segment text using an
// OpenAI-compatible embeddings endpoint and cosine similarity.
//
// The scorer implements ranking.Scorer. Any failure to reach the endpoint
// (missing key, HTTP error, malformed payload) is reported as
// services.ErrScorerUnavailable so the ranker can degrade to provider order.
package embedding
