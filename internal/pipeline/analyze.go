package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"vidlore/internal/entity"
	"vidlore/internal/logging"
	"vidlore/internal/media/audio"
	"vidlore/internal/models"
	"vidlore/internal/services"
	"vidlore/internal/session"
)

const audioFileName = "audio.wav"

// Analyze runs audio extraction, transcription, and annotation in order and
// returns the annotated session. Stages that already completed are skipped,
// so a failed analysis can be retried. Cancellation is checked between stages.
func (p *Pipeline) Analyze(ctx context.Context) (*session.Session, error) {
	if p.LastCompleted() >= StageAnnotation {
		return nil, fmt.Errorf("%w: analysis already completed", ErrStageOrder)
	}
	stages := []struct {
		stage Stage
		fn    stageFunc
	}{
		{StageAudioExtraction, p.extractAudio},
		{StageTranscription, p.transcribe},
		{StageAnnotation, p.annotate},
	}
	for _, st := range stages {
		if p.LastCompleted() >= st.stage {
			continue
		}
		if _, err := p.runStage(ctx, st.stage, st.fn); err != nil {
			return nil, err
		}
	}
	return p.Session(), nil
}

func (p *Pipeline) extractAudio(ctx context.Context, logger *slog.Logger) (string, error) {
	p.mu.Lock()
	video, dir := p.videoPath, p.sessionDir
	p.mu.Unlock()

	probe, err := p.deps.Probe(ctx, video)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "audio_extraction", "probe", "", err)
	}
	if probe.AudioStreamCount() == 0 {
		return "", services.Wrap(services.ErrValidation, "audio_extraction", "select audio", "video has no audio stream", nil)
	}
	selection := audio.Select(probe.Streams, p.cfg.Transcription.Language)
	logger.Info("audio stream selected",
		logging.String(logging.FieldEventType, "audio_selected"),
		logging.String("video_file", video),
		logging.String("audio_stream", selection.PrimaryLabel()),
		logging.String("language", selection.Language),
		logging.Float64("duration_seconds", probe.DurationSeconds()),
	)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrValidation, "audio_extraction", "ensure session dir", "", err)
	}
	out := filepath.Join(dir, audioFileName)
	if err := p.deps.Media.ExtractAudio(ctx, video, out, selection.MapSpec()); err != nil {
		return "", err
	}

	p.mu.Lock()
	p.audioPath = out
	p.audioLang = selection.Language
	p.mu.Unlock()
	return out, nil
}

func (p *Pipeline) transcribe(ctx context.Context, logger *slog.Logger) (string, error) {
	p.mu.Lock()
	audioPath, video, id, tagLang := p.audioPath, p.videoPath, p.sessionID, p.audioLang
	p.mu.Unlock()

	transcript, err := p.deps.Transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return "", err
	}
	lang := transcript.Language
	if lang == "" {
		lang = tagLang
	}
	transcribed := make([]session.Transcribed, 0, len(transcript.Segments))
	for _, seg := range transcript.Segments {
		transcribed = append(transcribed, session.Transcribed{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	sess := session.New(id, video, lang, transcribed)
	if sess.Len() == 0 {
		return "", services.Wrap(services.ErrTranscription, "transcription", "segments", "no speech segments found", nil)
	}

	p.mu.Lock()
	p.sess = sess
	p.mu.Unlock()
	logger.Info("transcript ready",
		logging.String(logging.FieldEventType, "transcript_ready"),
		logging.Int("segment_count", sess.Len()),
		logging.String("language", sess.Language),
	)
	return "", nil
}

// annotate resolves entities for every segment with a bounded worker pool.
// Results land in index-addressed slots and are applied in segment order;
// progress is published under a single counter so it only moves forward.
func (p *Pipeline) annotate(ctx context.Context, logger *slog.Logger) (string, error) {
	sess, _, err := p.openSession()
	if err != nil {
		return "", err
	}
	resolver, err := models.Acquire[*entity.Resolver](ctx, p.deps.Registry, models.Extraction)
	if err != nil {
		return "", services.Wrap(services.ErrExtraction, "annotation", "load extraction model", "", err)
	}

	segments := sess.Segments()
	total := len(segments)
	slots := make([][]entity.Entity, total)
	var (
		progressMu sync.Mutex
		completed  int
	)
	workers := p.cfg.Pipeline.AnnotationWorkers
	if workers <= 0 {
		workers = 1
	}

	p.emit(ctx, StageProgress{Stage: StageAnnotation, Completed: 0, Total: total})
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, seg := range segments {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = resolver.Resolve(services.WithSegment(gctx, seg.Index), seg.Text)

			progressMu.Lock()
			defer progressMu.Unlock()
			completed++
			progress := StageProgress{Stage: StageAnnotation, Completed: completed, Total: total}
			if p.sampler.ShouldLog(progress.Percent(), StageAnnotation.String()) {
				logger.Info("annotation progress",
					logging.String(logging.FieldEventType, "stage_progress"),
					logging.Float64(logging.FieldProgressPercent, progress.Percent()),
					logging.Int("completed", completed),
					logging.Int("segment_count", total),
				)
			}
			p.emit(gctx, progress)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	entities := 0
	for i, seg := range segments {
		if err := sess.Annotate(seg.Index, slots[i]); err != nil {
			return "", err
		}
		entities += len(slots[i])
	}
	if err := p.deps.Registry.Release(models.Extraction); err != nil {
		logging.WarnWithContext(logger, "extraction model release failed", "model_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "model memory stays allocated until the next acquire"),
		)
	}
	logger.Info("annotation complete",
		logging.String(logging.FieldEventType, "annotation_complete"),
		logging.Int("segment_count", total),
		logging.Int("entity_count", entities),
	)
	return "", nil
}
