package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"vidlore/internal/composite"
	"vidlore/internal/fileutil"
	"vidlore/internal/logging"
	"vidlore/internal/services"
)

const (
	defaultVideoCodec = "libx264"
	defaultPreset     = "veryfast"
	stderrTailLimit   = 600
)

// CommandRunner executes an external command. Tests substitute a fake that
// writes the expected output file.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Tool wraps the ffmpeg binary for audio extraction and overlay rendering.
type Tool struct {
	binary     string
	videoCodec string
	preset     string
	runner     CommandRunner
	logger     *slog.Logger
}

// Option customizes a Tool.
type Option func(*Tool)

// WithCommandRunner replaces process execution.
func WithCommandRunner(r CommandRunner) Option {
	return func(t *Tool) {
		if r != nil {
			t.runner = r
		}
	}
}

// WithEncoder sets the video codec and preset used by Render.
func WithEncoder(codec, preset string) Option {
	return func(t *Tool) {
		if c := strings.TrimSpace(codec); c != "" {
			t.videoCodec = c
		}
		if p := strings.TrimSpace(preset); p != "" {
			t.preset = p
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tool) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New constructs a Tool for binary (default "ffmpeg").
func New(binary string, opts ...Option) *Tool {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	t := &Tool{
		binary:     binary,
		videoCodec: defaultVideoCodec,
		preset:     defaultPreset,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logging.NewComponentLogger(t.logger, "ffmpeg")
	if t.runner == nil {
		t.runner = runCommand
	}
	return t
}

// ExtractAudio writes a mono 16 kHz PCM WAV of the mapped audio stream.
// mapSpec is an ffmpeg -map value such as "0:1"; empty picks the first audio
// stream.
func (t *Tool) ExtractAudio(ctx context.Context, videoPath, outputPath, mapSpec string) error {
	if strings.TrimSpace(videoPath) == "" || strings.TrimSpace(outputPath) == "" {
		return services.Wrap(services.ErrValidation, "audio_extraction", "ffmpeg", "video and output paths required", nil)
	}
	if mapSpec = strings.TrimSpace(mapSpec); mapSpec == "" {
		mapSpec = "0:a:0"
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return services.Wrap(services.ErrExternalTool, "audio_extraction", "ensure dir", "", err)
	}
	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-i", videoPath,
		"-map", mapSpec,
		"-vn", "-sn", "-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outputPath,
	}
	t.logger.Debug("extracting audio", logging.String("video_path", videoPath), logging.String("map", mapSpec))
	if err := t.runner(ctx, t.binary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "audio_extraction", "ffmpeg", "extract audio", err)
	}
	if !fileutil.Exists(outputPath) {
		return services.Wrap(services.ErrExternalTool, "audio_extraction", "ffmpeg", "no audio written (does the video have sound?)", nil)
	}
	return nil
}

// RenderArgs returns the ffmpeg arguments that write graph to outputPath.
// A pass-through graph copies every stream without re-encoding.
func (t *Tool) RenderArgs(graph composite.Graph, outputPath string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	args = append(args, graph.InputArgs()...)
	if graph.PassThrough() {
		args = append(args, "-map", "0", "-c", "copy")
	} else {
		args = append(args,
			"-filter_complex", graph.FilterComplex(),
			"-map", composite.AudioMap,
			"-codec:v", t.videoCodec,
			"-preset", t.preset,
		)
	}
	return append(args, "-y", outputPath)
}

// Render composites graph over basePath into outputPath. Output is written to
// a hidden temp file beside outputPath and renamed only on success, so a
// failed render never leaves a partial file at outputPath.
func (t *Tool) Render(ctx context.Context, basePath string, graph composite.Graph, outputPath string) error {
	if graph.Base == "" {
		graph.Base = basePath
	}
	if graph.Base != basePath {
		return services.Wrap(services.ErrValidation, "render", "ffmpeg", fmt.Sprintf("graph base %q does not match %q", graph.Base, basePath), nil)
	}
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrRenderEngine, "render", "ensure dir", "", err)
	}
	ext := filepath.Ext(outputPath)
	stem := strings.TrimSuffix(filepath.Base(outputPath), ext)
	tmp := filepath.Join(dir, "."+stem+".partial"+ext)
	defer os.Remove(tmp)

	t.logger.Info("rendering composite",
		logging.String(logging.FieldEventType, "render_start"),
		logging.Int("overlay_count", len(graph.Stages)),
		logging.String("output_file", outputPath),
	)
	if err := t.runner(ctx, t.binary, t.RenderArgs(graph, tmp)...); err != nil {
		return services.Wrap(services.ErrRenderEngine, "render", "ffmpeg", "encode failed", err)
	}
	if !fileutil.Exists(tmp) {
		return services.Wrap(services.ErrRenderEngine, "render", "ffmpeg", "encoder produced no output", nil)
	}
	if err := fileutil.MoveFile(tmp, outputPath); err != nil {
		return services.Wrap(services.ErrRenderEngine, "render", "finalize", "", err)
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(err, ctxErr)
		}
		tail := strings.TrimSpace(stderr.String())
		if len(tail) > stderrTailLimit {
			tail = "…" + tail[len(tail)-stderrTailLimit:]
		}
		if tail == "" {
			return err
		}
		return fmt.Errorf("%w: %s", err, tail)
	}
	return nil
}
