package pipeline

import (
	"time"

	"vidlore/internal/entity"
	"vidlore/internal/ranking"
	"vidlore/internal/session"
)

// Message is a pipeline event delivered on the message channel.
type Message interface {
	pipelineMessage()
}

// StageStarted marks the start of a stage.
type StageStarted struct {
	Stage     Stage
	SessionID string
}

// StageProgress reports completed/total units within a stage. Completed is
// monotonic within one stage run.
type StageProgress struct {
	Stage     Stage
	Completed int
	Total     int
}

// Percent returns progress as 0-100.
func (p StageProgress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Completed) * 100 / float64(p.Total)
}

// StageCompleted marks successful completion of a stage.
type StageCompleted struct {
	Stage    Stage
	Duration time.Duration
	// Output is the rendered file for StageRender, empty otherwise.
	Output string
}

// StageFailed reports a terminal stage failure.
type StageFailed struct {
	Stage Stage
	Err   error
}

// CandidatesReady carries a freshly ranked candidate list for a segment.
type CandidatesReady struct {
	Segment    int
	Entity     entity.Entity
	Candidates []ranking.Candidate
}

// SelectionOverridden reports that a Ready segment changed its source.
type SelectionOverridden struct {
	Event session.OverrideEvent
}

// SegmentCaptured reports that a segment's overlay image is ready.
type SegmentCaptured struct {
	Segment   int
	ImagePath string
}

// CaptureFailed reports a capture failure; the segment stays selected.
type CaptureFailed struct {
	Segment int
	Err     error
}

func (StageStarted) pipelineMessage()        {}
func (StageProgress) pipelineMessage()       {}
func (StageCompleted) pipelineMessage()      {}
func (StageFailed) pipelineMessage()         {}
func (CandidatesReady) pipelineMessage()     {}
func (SelectionOverridden) pipelineMessage() {}
func (SegmentCaptured) pipelineMessage()     {}
func (CaptureFailed) pipelineMessage()       {}
