// Package logging assembles the structured slog loggers used across vidlore.
//
// It owns the console and JSON handlers, level and output plumbing, the
// per-session JSON log tee, and context-aware helpers that tag log lines with
// session IDs, stages, segment indices, and correlation IDs. NewNop provides a
// silent logger for tests and wiring code that cannot fail.
package logging
