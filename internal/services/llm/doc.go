// Package llm provides a chat completion client for JSON-mode prompts.
//
// The entity tagger uses it for zero-shot labelling of spans; preflight uses
// HealthCheck to verify the API key and model.
//
// The client retries on HTTP 408/429/5xx responses, empty content, and network
// timeouts with exponential backoff (base 1s, max 10s, 3 attempts by default).
// Context cancellation aborts retries immediately. Failures are wrapped with
// services markers: ErrConfiguration when no key is set, ErrTimeout when the
// deadline expires, and ErrExternalTool otherwise.
package llm
