package whisperx

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	langpkg "vidlore/internal/language"
	"vidlore/internal/services"
)

// CommandRunner executes an external command. Tests substitute a fake that
// writes the expected JSON output.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service runs WhisperX through uvx.
type Service struct {
	cfg           Config
	outputDir     string
	commandRunner CommandRunner
}

// NewService creates a WhisperX service writing its output under outputDir.
// An empty outputDir writes next to the audio file.
func NewService(cfg Config, outputDir string) *Service {
	return &Service{cfg: cfg, outputDir: outputDir}
}

// WithCommandRunner sets a custom command runner.
func (s *Service) WithCommandRunner(runner CommandRunner) *Service {
	s.commandRunner = runner
	return s
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Transcribe runs WhisperX on audioPath and returns sentence-level segments
// with the detected (or forced) language. Failures wrap services.ErrTranscription.
func (s *Service) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	audioPath = strings.TrimSpace(audioPath)
	if audioPath == "" {
		return Transcript{}, services.Wrap(services.ErrTranscription, "transcription", "whisperx", "audio path required", nil)
	}
	outputDir := s.outputDir
	if outputDir == "" {
		outputDir = filepath.Dir(audioPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Transcript{}, services.Wrap(services.ErrTranscription, "transcription", "ensure output dir", "", err)
	}

	if err := s.run(ctx, UVXCommand, s.buildArgs(audioPath, outputDir)...); err != nil {
		return Transcript{}, services.Wrap(services.ErrTranscription, "transcription", "whisperx", "run failed", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	transcript, err := LoadTranscript(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrTranscription, "transcription", "load output", "", err)
	}
	if transcript.Language == "" {
		transcript.Language = langpkg.ToISO2(s.cfg.Language)
	}
	return transcript, nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 32)
	if s.cfg.CUDAEnabled {
		args = append(args, "--index-url", CUDAIndexURL, "--extra-index-url", PypiIndexURL)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
	)

	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	if lang := langpkg.ToISO2(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}
