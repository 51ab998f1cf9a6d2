package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"vidlore/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("exit status 1")
	err := services.Wrap(services.ErrRenderEngine, "render", "ffmpeg", "overlay encode failed", base)
	if !errors.Is(err, services.ErrRenderEngine) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	want := "render engine failed: render: ffmpeg: overlay encode failed: exit status 1"
	if err.Error() != want {
		t.Fatalf("unexpected message:\n got %q\nwant %q", err.Error(), want)
	}
}

func TestWrapDefaults(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker for nil marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestStageError(t *testing.T) {
	cause := services.Wrap(services.ErrTranscription, "transcription", "whisperx", "no output", nil)
	err := services.NewStageError("transcription", cause)

	var stageErr *services.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %T", err)
	}
	if stageErr.Stage != "transcription" {
		t.Fatalf("unexpected stage %q", stageErr.Stage)
	}
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatal("expected marker to survive StageError wrapping")
	}
	if again := services.NewStageError("transcription", err); again != err {
		t.Fatal("expected same-stage rewrap to be a no-op")
	}
	if services.NewStageError("render", nil) != nil {
		t.Fatal("expected nil for nil cause")
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{services.Wrap(services.ErrProvider, "annotate", "wikipedia", "timeout", nil), false},
		{fmt.Errorf("score: %w", services.ErrScorerUnavailable), false},
		{services.Wrap(services.ErrCapture, "select", "thumio", "", nil), false},
		{services.Wrap(services.ErrCompositeBuild, "render", "build", "", nil), true},
		{context.Canceled, true},
	}
	for _, tt := range tests {
		if got := services.IsFatal(tt.err); got != tt.want {
			t.Fatalf("IsFatal(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
