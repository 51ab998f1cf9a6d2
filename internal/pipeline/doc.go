// Package pipeline orchestrates one annotation session end to end.
//
// Stages run strictly in order: audio extraction, transcription, annotation,
// then (after interactive or automatic selection) render. Only one session
// may be open per work directory; a gofrs/flock lock enforces this across
// processes. Starting a stage that is already in flight fails with
// ErrStageInFlight, and a failed stage leaves the last completed stage
// untouched so the caller can retry.
//
// Progress and lifecycle events are delivered as typed Message values on a
// caller-supplied channel. The pipeline never mutates caller state from a
// background goroutine; callers drain the channel and react.
//
// Heavyweight collaborators (the entity extraction model and the ranking
// model) live in a models.Registry. The extraction model is released once
// annotation completes, before the ranking model is first acquired.
package pipeline
