package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidlore/internal/composite"
	"vidlore/internal/config"
	"vidlore/internal/fileutil"
	"vidlore/internal/logging"
	"vidlore/internal/media/ffprobe"
	"vidlore/internal/models"
	"vidlore/internal/ranking"
	"vidlore/internal/services"
	"vidlore/internal/services/whisperx"
	"vidlore/internal/session"
)

// Prober inspects a media file.
type Prober func(ctx context.Context, path string) (ffprobe.Result, error)

// MediaTool extracts audio and renders the composite.
type MediaTool interface {
	ExtractAudio(ctx context.Context, videoPath, outputPath, mapSpec string) error
	Render(ctx context.Context, basePath string, graph composite.Graph, outputPath string) error
}

// Transcriber turns extracted audio into timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (whisperx.Transcript, error)
}

// Capturer turns a selected URL into the overlay image for a segment.
type Capturer interface {
	Capture(ctx context.Context, index int, url string) (string, error)
}

// RankingModel is the registry entry for candidate ranking.
type RankingModel struct {
	Ranker *ranking.Ranker
	closer func() error
}

// NewRankingModel wraps ranker; closer may be nil.
func NewRankingModel(ranker *ranking.Ranker, closer func() error) *RankingModel {
	return &RankingModel{Ranker: ranker, closer: closer}
}

// Close implements models.Model.
func (m *RankingModel) Close() error {
	if m == nil || m.closer == nil {
		return nil
	}
	return m.closer()
}

// Deps are the collaborators a Pipeline drives. Registry must have loaders
// for models.Extraction (*entity.Resolver) and models.Ranking (*RankingModel).
type Deps struct {
	Probe       Prober
	Media       MediaTool
	Transcriber Transcriber
	Capturer    Capturer
	Registry    *models.Registry
	Logger      *slog.Logger
	// Messages receives pipeline events. Sends block until received or the
	// operation's context ends; nil disables events.
	Messages chan<- Message
	// Closers run on Close after the registry is released.
	Closers []func() error
}

// Pipeline runs one session at a time.
type Pipeline struct {
	cfg        *config.Config
	deps       Deps
	baseLogger *slog.Logger
	logger     *slog.Logger
	lock       *workLock

	mu         sync.Mutex
	inFlight   map[Stage]bool
	completed  Stage
	sessionID  string
	videoPath  string
	sessionDir string
	audioLang  string
	audioPath  string
	sess       *session.Session
	sessionLog *logging.SessionLog
	sampler    *logging.ProgressSampler
	closed     bool
}

// New validates deps and constructs a pipeline.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("pipeline: config required")
	case deps.Probe == nil:
		return nil, errors.New("pipeline: prober required")
	case deps.Media == nil:
		return nil, errors.New("pipeline: media tool required")
	case deps.Transcriber == nil:
		return nil, errors.New("pipeline: transcriber required")
	case deps.Capturer == nil:
		return nil, errors.New("pipeline: capturer required")
	case deps.Registry == nil:
		return nil, errors.New("pipeline: model registry required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "pipeline")
	return &Pipeline{
		cfg:        cfg,
		deps:       deps,
		baseLogger: logger,
		logger:     logger,
		lock:       newWorkLock(cfg.Paths.WorkDir),
		inFlight:   make(map[Stage]bool),
		sampler:    logging.NewProgressSampler(5),
	}, nil
}

// Open starts a session for videoPath. It takes the work directory lock,
// assigns a session ID, and opens the per-session log.
func (p *Pipeline) Open(ctx context.Context, videoPath string) (string, error) {
	videoPath = strings.TrimSpace(videoPath)
	if !fileutil.Exists(videoPath) {
		return "", services.Wrap(services.ErrValidation, "pipeline", "open", "video not found: "+videoPath, nil)
	}
	if abs, err := filepath.Abs(videoPath); err == nil {
		videoPath = abs
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", errors.New("pipeline: closed")
	}
	if p.sessionID != "" {
		return "", fmt.Errorf("pipeline: session %s already open", p.sessionID)
	}
	if err := p.lock.acquire(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	logger := p.baseLogger
	sessionLog, err := logging.OpenSessionLog(logger, p.cfg.SessionLogDir(), id)
	if err != nil {
		logging.WarnWithContext(logger, "session log unavailable", "session_log_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "session events only reach the main log"),
		)
	} else {
		logger = sessionLog.Logger
		keep := sessionLog.Path
		if removed := logging.PruneSessionLogs(logger, p.cfg.SessionLogDir(), p.cfg.Logging.RetentionDays, keep); removed > 0 {
			logger.Debug("pruned session logs", logging.Int("removed", removed))
		}
	}

	p.sessionID = id
	p.videoPath = videoPath
	p.sessionDir = filepath.Join(p.cfg.Paths.WorkDir, id)
	p.sessionLog = sessionLog
	p.logger = logger
	p.completed = StageNone
	p.sess = nil
	p.sampler.Reset()

	logging.WithContext(services.WithSessionID(ctx, id), p.logger).Info("session opened",
		logging.String(logging.FieldEventType, "session_open"),
		logging.String("video_file", videoPath),
	)
	return id, nil
}

// Close releases models, the work directory lock, and the session log. A
// closed pipeline cannot open another session.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if err := p.deps.Registry.Close(); err != nil {
		errs = append(errs, err)
	}
	for _, fn := range p.deps.Closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	p.deps.Closers = nil
	if err := p.lock.release(); err != nil {
		errs = append(errs, fmt.Errorf("release lock: %w", err))
	}
	if p.sessionLog != nil {
		if err := p.sessionLog.Close(); err != nil {
			errs = append(errs, err)
		}
		p.sessionLog = nil
	}
	p.logger = p.baseLogger
	p.sessionID = ""
	return errors.Join(errs...)
}

// Session returns the open session, or nil before transcription completes.
func (p *Pipeline) Session() *session.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sess
}

// SessionID returns the open session's ID.
func (p *Pipeline) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID
}

// LastCompleted returns the last stage that completed successfully.
func (p *Pipeline) LastCompleted() Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}

// DefaultOutputPath returns "<output_dir>/<stem>.annotated<ext>".
func (p *Pipeline) DefaultOutputPath() string {
	p.mu.Lock()
	video := p.videoPath
	p.mu.Unlock()
	ext := filepath.Ext(video)
	if ext == "" {
		ext = ".mp4"
	}
	stem := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
	return filepath.Join(p.cfg.Paths.OutputDir, stem+".annotated"+ext)
}

// Run performs the headless flow: open, analyze, auto-select, render. The
// caller still owns Close.
func (p *Pipeline) Run(ctx context.Context, videoPath, outputPath string) (string, error) {
	if _, err := p.Open(ctx, videoPath); err != nil {
		return "", err
	}
	if _, err := p.Analyze(ctx); err != nil {
		return "", err
	}
	if err := p.AutoSelect(ctx); err != nil {
		return "", err
	}
	return p.Render(ctx, outputPath)
}

// stageFunc is the body of a stage. It receives the stage-scoped context and logger.
type stageFunc func(ctx context.Context, logger *slog.Logger) (output string, err error)

func (p *Pipeline) runStage(ctx context.Context, stage Stage, fn stageFunc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sessionID, err := p.begin(stage)
	if err != nil {
		return "", err
	}
	defer p.finish(stage)

	stageCtx := services.WithStage(services.WithSessionID(ctx, sessionID), stage.String())
	logger := logging.WithContext(stageCtx, p.currentLogger())
	started := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String(logging.FieldProgressMessage, stage.Label()+" started"),
	)
	p.emit(ctx, StageStarted{Stage: stage, SessionID: sessionID})

	output, err := fn(stageCtx, logger)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("stage interrupted", logging.Error(err))
		} else {
			logging.ErrorWithContext(logger, "stage failed", "stage_failure",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, hintFor(err)),
			)
		}
		p.emit(ctx, StageFailed{Stage: stage, Err: err})
		return "", services.NewStageError(stage.String(), err)
	}

	p.mu.Lock()
	p.completed = stage
	p.mu.Unlock()
	elapsed := time.Since(started)
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", elapsed),
	)
	p.emit(ctx, StageCompleted{Stage: stage, Duration: elapsed, Output: output})
	return output, nil
}

// begin marks stage in flight after checking order. Every stage needs its
// predecessor completed; only render may run more than once.
func (p *Pipeline) begin(stage Stage) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessionID == "" {
		return "", ErrNoSession
	}
	if p.inFlight[stage] {
		return "", fmt.Errorf("%w: %s", ErrStageInFlight, stage)
	}
	if p.completed < stage-1 {
		return "", fmt.Errorf("%w: %s requires %s", ErrStageOrder, stage, stage-1)
	}
	if stage != StageRender && p.completed >= stage {
		return "", fmt.Errorf("%w: %s already completed", ErrStageOrder, stage)
	}
	p.inFlight[stage] = true
	return p.sessionID, nil
}

func (p *Pipeline) finish(stage Stage) {
	p.mu.Lock()
	delete(p.inFlight, stage)
	p.mu.Unlock()
}

func (p *Pipeline) currentLogger() *slog.Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logger
}

func (p *Pipeline) openSession() (*session.Session, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil {
		return nil, "", ErrNoSession
	}
	return p.sess, p.sessionID, nil
}

func (p *Pipeline) emit(ctx context.Context, msg Message) {
	if p.deps.Messages == nil {
		return
	}
	select {
	case p.deps.Messages <- msg:
	case <-ctx.Done():
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrTranscription):
		return "check uvx/whisperx availability and the transcription model"
	case errors.Is(err, services.ErrExternalTool):
		return "check that ffmpeg can read the input video"
	case errors.Is(err, services.ErrCompositeBuild):
		return "reselect or recapture the failing segment"
	case errors.Is(err, services.ErrRenderEngine):
		return "inspect the ffmpeg stderr tail in the error"
	case errors.Is(err, services.ErrValidation):
		return "check the input paths"
	default:
		return "check logs for details"
	}
}
