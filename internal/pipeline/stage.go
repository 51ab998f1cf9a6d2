package pipeline

import "errors"

// Stage identifies a pipeline stage.
type Stage int

// Stages in execution order. StageNone means nothing has completed yet.
const (
	StageNone Stage = iota
	StageAudioExtraction
	StageTranscription
	StageAnnotation
	StageRender
)

func (s Stage) String() string {
	switch s {
	case StageAudioExtraction:
		return "audio_extraction"
	case StageTranscription:
		return "transcription"
	case StageAnnotation:
		return "annotation"
	case StageRender:
		return "render"
	default:
		return "none"
	}
}

// Label returns the human-readable stage name.
func (s Stage) Label() string {
	switch s {
	case StageAudioExtraction:
		return "Audio Extraction"
	case StageTranscription:
		return "Transcription"
	case StageAnnotation:
		return "Annotation"
	case StageRender:
		return "Render"
	default:
		return "Idle"
	}
}

var (
	// ErrStageInFlight is returned when a stage is started while it runs.
	ErrStageInFlight = errors.New("stage already in flight")
	// ErrStageOrder is returned when a stage's predecessor has not completed,
	// or a one-shot stage has already completed.
	ErrStageOrder = errors.New("stage not runnable")
	// ErrSessionLocked is returned when another session holds the work directory.
	ErrSessionLocked = errors.New("another session holds the work directory")
	// ErrNoSession is returned by operations that need an open session.
	ErrNoSession = errors.New("no open session")
	// ErrEntityNotFound is returned when an entity index is out of range.
	ErrEntityNotFound = errors.New("entity not found")
)
