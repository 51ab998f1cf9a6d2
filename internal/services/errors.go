package services

import (
	"errors"
	"fmt"
	"strings"
)

// Generic markers shared by every integration.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Domain markers for the annotation pipeline.
var (
	ErrExtraction        = errors.New("entity extraction failed")
	ErrTranscription     = errors.New("transcription failed")
	ErrProvider          = errors.New("search provider failed")
	ErrScorerUnavailable = errors.New("semantic scorer unavailable")
	ErrCapture           = errors.New("url capture failed")
	ErrCompositeBuild    = errors.New("composite build failed")
	ErrRenderEngine      = errors.New("render engine failed")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// StageError reports which pipeline stage failed and why.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("stage %s failed", e.Stage)
	}
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewStageError wraps err with stage identity. A nil err yields nil.
func NewStageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	var existing *StageError
	if errors.As(err, &existing) && existing.Stage == stage {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// IsFatal reports whether err must terminate the current stage. Provider,
// scorer, and capture failures degrade a single segment instead.
func IsFatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrProvider), errors.Is(err, ErrScorerUnavailable), errors.Is(err, ErrCapture):
		return false
	default:
		return true
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
