package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"vidlore/internal/entity"
	"vidlore/internal/pipeline"
	"vidlore/internal/ranking"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model, cmd
}

func TestModelTracksStages(t *testing.T) {
	m := New("talk.mp4", nil, nil)
	m, _ = update(t, m, PipelineMsg{Message: pipeline.StageStarted{Stage: pipeline.StageAudioExtraction}})
	m, _ = update(t, m, PipelineMsg{Message: pipeline.StageCompleted{Stage: pipeline.StageAudioExtraction, Duration: 2 * time.Second}})
	m, _ = update(t, m, PipelineMsg{Message: pipeline.StageStarted{Stage: pipeline.StageAnnotation}})
	m, _ = update(t, m, PipelineMsg{Message: pipeline.StageProgress{Stage: pipeline.StageAnnotation, Completed: 2, Total: 4}})

	view := m.View()
	for _, want := range []string{"talk.mp4", "Audio Extraction", "2s", "Annotation", "2/4", "q to cancel"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModelIgnoresStaleProgress(t *testing.T) {
	m := New("x", nil, nil)
	m, _ = update(t, m, PipelineMsg{Message: pipeline.StageStarted{Stage: pipeline.StageAnnotation}})
	m, _ = update(t, m, PipelineMsg{Message: pipeline.StageProgress{Stage: pipeline.StageAnnotation, Completed: 3, Total: 4}})
	m, _ = update(t, m, PipelineMsg{Message: pipeline.StageProgress{Stage: pipeline.StageAnnotation, Completed: 1, Total: 4}})
	if m.completed != 3 {
		t.Fatalf("progress moved backwards to %d", m.completed)
	}
}

func TestModelRecordsEvents(t *testing.T) {
	m := New("x", nil, nil)
	m, _ = update(t, m, PipelineMsg{Message: pipeline.CandidatesReady{
		Segment:    1,
		Entity:     entity.Entity{Text: "Alan Turing"},
		Candidates: []ranking.Candidate{{Title: "Alan Turing"}},
	}})
	m, _ = update(t, m, PipelineMsg{Message: pipeline.CaptureFailed{Segment: 1, Err: errors.New("status 502")}})
	for i := range 10 {
		m, _ = update(t, m, PipelineMsg{Message: pipeline.SegmentCaptured{Segment: i}})
	}
	if len(m.events) != maxEvents {
		t.Fatalf("events not capped: %d", len(m.events))
	}
	if m.overlays != 10 {
		t.Fatalf("overlays = %d", m.overlays)
	}
}

func TestQuitCancelsUnfinishedWork(t *testing.T) {
	cancelled := false
	m := New("x", nil, func() { cancelled = true })
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !cancelled {
		t.Fatal("quit should cancel the work")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestFinishedShowsOutput(t *testing.T) {
	m := New("x", nil, nil)
	m, _ = update(t, m, PipelineMsg{Message: pipeline.SegmentCaptured{Segment: 0}})
	m, cmd := update(t, m, FinishedMsg{Output: "/out/talk.annotated.mp4"})
	if cmd == nil {
		t.Fatal("expected quit after finish")
	}
	view := m.View()
	if !strings.Contains(view, "talk.annotated.mp4") || !strings.Contains(view, "1 overlays") {
		t.Fatalf("unexpected view:\n%s", view)
	}
	if strings.Contains(view, "q to cancel") {
		t.Fatal("footer should disappear after finish")
	}
}

func TestFailureIsShown(t *testing.T) {
	m := New("x", nil, nil)
	m, _ = update(t, m, PipelineMsg{Message: pipeline.StageFailed{Stage: pipeline.StageTranscription, Err: errors.New("no speech")}})
	if _, err := m.Result(); err == nil {
		t.Fatal("expected error in result")
	}
	if !strings.Contains(m.View(), "no speech") {
		t.Fatal("error not rendered")
	}
}
