package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"vidlore/internal/logging"
	"vidlore/internal/services"
	"vidlore/internal/session"
)

func TestRunHeadlessRendersSelectedSegments(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline()

	out, err := p.Run(context.Background(), h.video, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasSuffix(out, "talk.annotated.mp4") {
		t.Fatalf("unexpected output path %q", out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}

	sess := p.Session()
	if sess == nil || sess.Len() != 3 {
		t.Fatalf("expected 3 segments, got %+v", sess)
	}
	first, _ := sess.Segment(0)
	if first.State != session.StateReady {
		t.Fatalf("segment 0 state = %s, want ready", first.State)
	}
	if first.Selected == nil || first.Selected.Title != "halting problem" {
		t.Fatalf("segment 0 should select the longest entity's top hit, got %+v", first.Selected)
	}
	filler, _ := sess.Segment(1)
	if filler.State != session.StateAnnotated || len(filler.Entities) != 0 {
		t.Fatalf("segment 1 should stay annotated without entities, got %s %v", filler.State, filler.Entities)
	}

	renders := h.media.renders()
	if len(renders) != 1 || len(renders[0].Images) != 2 {
		t.Fatalf("expected one render with 2 overlays, got %+v", renders)
	}
	if records := readSidecar(t, SidecarPath(out)); len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %q", records)
	}
	if p.LastCompleted() != StageRender {
		t.Fatalf("last completed = %s", p.LastCompleted())
	}
}

func TestStagesEnforceOrder(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline()
	ctx := context.Background()

	if _, err := p.Render(ctx, ""); !errors.Is(err, ErrNoSession) {
		t.Fatalf("render without session: expected ErrNoSession, got %v", err)
	}
	if _, err := p.Open(ctx, h.video); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := p.Render(ctx, ""); !errors.Is(err, ErrStageOrder) {
		t.Fatalf("render before analyze: expected ErrStageOrder, got %v", err)
	}
	if _, err := p.FetchCandidates(ctx, 0, 0); !errors.Is(err, ErrNoSession) {
		t.Fatalf("fetch before transcription: expected ErrNoSession, got %v", err)
	}
	if _, err := p.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := p.Analyze(ctx); !errors.Is(err, ErrStageOrder) {
		t.Fatalf("second analyze: expected ErrStageOrder, got %v", err)
	}
	if _, err := p.FetchCandidates(ctx, 0, 5); !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}

	// Render may repeat.
	for range 2 {
		if _, err := p.Render(ctx, ""); err != nil {
			t.Fatalf("Render: %v", err)
		}
	}
	if got := len(h.media.renders()); got != 2 {
		t.Fatalf("expected 2 renders, got %d", got)
	}
}

func TestStageInFlightRejected(t *testing.T) {
	h := newHarness(t)
	h.transcriber.started = make(chan struct{})
	h.transcriber.release = make(chan struct{})
	p := h.pipeline()
	ctx := context.Background()

	if _, err := p.Open(ctx, h.video); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := p.runStage(ctx, StageAudioExtraction, p.extractAudio); err != nil {
		t.Fatalf("extract: %v", err)
	}
	errc := make(chan error, 1)
	go func() {
		_, err := p.runStage(ctx, StageTranscription, p.transcribe)
		errc <- err
	}()
	<-h.transcriber.started

	if _, err := p.runStage(ctx, StageTranscription, p.transcribe); !errors.Is(err, ErrStageInFlight) {
		t.Fatalf("expected ErrStageInFlight, got %v", err)
	}
	close(h.transcriber.release)
	if err := <-errc; err != nil {
		t.Fatalf("transcription: %v", err)
	}
}

func TestAnnotationProgressIsMonotonic(t *testing.T) {
	h := newHarness(t)
	h.cfg.Pipeline.AnnotationWorkers = 4
	p := h.pipeline()
	ctx := context.Background()

	if _, err := p.Open(ctx, h.video); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := p.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	last := -1
	total := 0
	var started, completed []Stage
	for _, msg := range h.collected() {
		switch m := msg.(type) {
		case StageProgress:
			if m.Completed < last {
				t.Fatalf("progress went backwards: %d after %d", m.Completed, last)
			}
			last, total = m.Completed, m.Total
		case StageStarted:
			started = append(started, m.Stage)
		case StageCompleted:
			completed = append(completed, m.Stage)
		}
	}
	if last != total || total != 3 {
		t.Fatalf("final progress %d/%d, want 3/3", last, total)
	}
	want := []Stage{StageAudioExtraction, StageTranscription, StageAnnotation}
	if len(started) != 3 || len(completed) != 3 {
		t.Fatalf("started %v completed %v", started, completed)
	}
	for i := range want {
		if started[i] != want[i] || completed[i] != want[i] {
			t.Fatalf("stage %d: started %s completed %s, want %s", i, started[i], completed[i], want[i])
		}
	}
}

func TestCaptureFailureKeepsSegmentSelected(t *testing.T) {
	h := newHarness(t)
	failing := "https://en.example.org/wikipedia/Enigma_machine"
	h.capturer.fail(failing, true)
	p := h.pipeline()
	ctx := context.Background()

	if _, err := p.Open(ctx, h.video); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := p.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if err := p.AutoSelect(ctx); err != nil {
		t.Fatalf("AutoSelect should absorb capture failures: %v", err)
	}
	seg, _ := p.Session().Segment(2)
	if seg.State != session.StateSelected || seg.LastError == "" {
		t.Fatalf("segment 2 should stay selected with an error, got %s %q", seg.State, seg.LastError)
	}
	if plan := p.Session().RenderPlan(); len(plan) != 1 {
		t.Fatalf("failed segment must be excluded from the plan, got %d entries", len(plan))
	}

	h.capturer.fail(failing, false)
	if err := p.Capture(ctx, 2); err != nil {
		t.Fatalf("retry capture: %v", err)
	}
	seg, _ = p.Session().Segment(2)
	if seg.State != session.StateReady {
		t.Fatalf("segment 2 state after retry = %s", seg.State)
	}
}

func TestAutoSelectLogsDecisions(t *testing.T) {
	h := newHarness(t)
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	h.logger = logger
	failing := "https://en.example.org/wikipedia/Enigma_machine"
	h.capturer.fail(failing, true)
	p := h.pipeline()
	ctx := context.Background()

	if _, err := p.Open(ctx, h.video); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := p.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if err := p.AutoSelect(ctx); err != nil {
		t.Fatalf("AutoSelect: %v", err)
	}

	decisions := map[float64]string{}
	alerted := false
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		if entry[logging.FieldDecisionType] == "auto_select" {
			segment, _ := entry[logging.FieldSegment].(float64)
			decisions[segment], _ = entry["decision_result"].(string)
		}
		if entry[logging.FieldEventType] == "capture_failed" && entry[logging.FieldAlert] == "capture_retry" {
			alerted = true
		}
	}
	if decisions[0] != "selected" || decisions[2] != "skipped" {
		t.Fatalf("unexpected auto-select decisions %v", decisions)
	}
	if !alerted {
		t.Fatalf("capture failure should carry an alert field:\n%s", buf.String())
	}
}

func TestInteractiveCaptureErrorIsReturned(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline()
	ctx := context.Background()
	if _, err := p.Open(ctx, h.video); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := p.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	h.capturer.fail("https://example.com/broken", true)
	_, err := p.SelectURL(ctx, 1, "https://example.com/broken", "")
	if !errors.Is(err, services.ErrCapture) {
		t.Fatalf("expected ErrCapture, got %v", err)
	}
	if services.IsFatal(err) {
		t.Fatal("capture errors must not be fatal")
	}
}

func TestSelectingNewSourceEmitsOverride(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline()
	ctx := context.Background()

	if _, err := p.Run(ctx, h.video, ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	event, err := p.Select(ctx, 0, 0)
	if err != nil {
		t.Fatalf("reselect same source: %v", err)
	}
	if event != nil {
		t.Fatalf("re-selecting the current source should not override, got %+v", event)
	}
	event, err = p.Select(ctx, 0, 1)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if event == nil || event.Segment != 0 || event.NewTitle != "halting problem (history)" {
		t.Fatalf("expected returned override event, got %+v", event)
	}
	seg, _ := p.Session().Segment(0)
	if seg.State != session.StateReady || seg.Selected.Title != "halting problem (history)" {
		t.Fatalf("unexpected segment after override: %s %+v", seg.State, seg.Selected)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var overrides []SelectionOverridden
	for _, msg := range h.collected() {
		if m, ok := msg.(SelectionOverridden); ok {
			overrides = append(overrides, m)
		}
	}
	if len(overrides) != 1 {
		t.Fatalf("expected exactly one override, got %d", len(overrides))
	}
	if overrides[0].Event.OldTitle != "halting problem" || overrides[0].Event.NewTitle != "halting problem (history)" {
		t.Fatalf("unexpected override event %+v", overrides[0].Event)
	}
}

func TestFetchCandidatesRestrictsSources(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline()
	ctx := context.Background()
	if _, err := p.Open(ctx, h.video); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := p.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	cands, err := p.FetchCandidates(ctx, 0, 1, "news")
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("news is not configured, expected no candidates, got %d", len(cands))
	}
	cands, err = p.FetchCandidates(ctx, 0, 1, "wikipedia")
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}
	if len(cands) != 2 || cands[0].Title != "Alan Turing" {
		t.Fatalf("unexpected candidates %+v", cands)
	}
	seg, _ := p.Session().Segment(0)
	if seg.State != session.StateCandidatesFetched || seg.ChosenEntity == nil || seg.ChosenEntity.Text != "Alan Turing" {
		t.Fatalf("unexpected segment %+v", seg)
	}
}

func TestOpenRejectsSecondSession(t *testing.T) {
	h := newHarness(t)
	first := h.pipeline()
	second := h.pipeline()
	ctx := context.Background()

	if _, err := first.Open(ctx, h.video); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := first.Open(ctx, h.video); err == nil {
		t.Fatal("expected an error opening a second session on the same pipeline")
	}
	if _, err := second.Open(ctx, h.video); !errors.Is(err, ErrSessionLocked) {
		t.Fatalf("expected ErrSessionLocked, got %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := first.Open(ctx, h.video); err == nil {
		t.Fatal("closed pipeline must not reopen")
	}
	if _, err := second.Open(ctx, h.video); err != nil {
		t.Fatalf("lock should be free after Close: %v", err)
	}
}

func TestRenderRejectsInputAsOutput(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline()
	ctx := context.Background()
	if _, err := p.Open(ctx, h.video); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := p.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	_, err := p.Render(ctx, h.video)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	var stageErr *services.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageRender.String() {
		t.Fatalf("expected render StageError, got %v", err)
	}
}

func TestTranscriptWithoutSpeechFails(t *testing.T) {
	h := newHarness(t)
	h.transcriber.transcript.Segments = nil
	p := h.pipeline()
	ctx := context.Background()
	if _, err := p.Open(ctx, h.video); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := p.Analyze(ctx); !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
	if p.LastCompleted() != StageAudioExtraction {
		t.Fatalf("last completed = %s", p.LastCompleted())
	}
}

func TestAnalyzeResumesAfterFailedStage(t *testing.T) {
	h := newHarness(t)
	h.transcriber.err = services.Wrap(services.ErrTranscription, "transcription", "whisperx", "exit status 1", nil)
	p := h.pipeline()
	ctx := context.Background()
	if _, err := p.Open(ctx, h.video); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := p.Analyze(ctx); !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}

	h.transcriber.err = nil
	sess, err := p.Analyze(ctx)
	if err != nil {
		t.Fatalf("retry Analyze: %v", err)
	}
	if sess == nil || sess.Len() != 3 {
		t.Fatalf("unexpected session after retry: %+v", sess)
	}
	if p.LastCompleted() != StageAnnotation {
		t.Fatalf("last completed = %s", p.LastCompleted())
	}
	if got := len(h.media.extracted); got != 1 {
		t.Fatalf("audio should be extracted once, got %d extractions", got)
	}
}

func TestCancelledContextStopsBeforeStage(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline()
	if _, err := p.Open(context.Background(), h.video); err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Analyze(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(h.media.extracted) != 0 {
		t.Fatal("audio extraction should not run after cancellation")
	}
}
