package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"vidlore/internal/composite"
	"vidlore/internal/logging"
	"vidlore/internal/services"
)

// Render composites every Ready segment over the source video and writes the
// sidecar CSV next to the output. An empty outputPath uses DefaultOutputPath.
// Render may run repeatedly as selections change.
func (p *Pipeline) Render(ctx context.Context, outputPath string) (string, error) {
	outputPath = strings.TrimSpace(outputPath)
	if outputPath == "" {
		outputPath = p.DefaultOutputPath()
	}
	if abs, err := filepath.Abs(outputPath); err == nil {
		outputPath = abs
	}
	return p.runStage(ctx, StageRender, func(ctx context.Context, logger *slog.Logger) (string, error) {
		sess, _, err := p.openSession()
		if err != nil {
			return "", err
		}
		p.mu.Lock()
		video := p.videoPath
		p.mu.Unlock()
		if outputPath == video {
			return "", services.Wrap(services.ErrValidation, "render", "output", "output must differ from the input video", nil)
		}

		plan := sess.RenderPlan()
		graph, err := composite.Build(video, plan, p.layout())
		if err != nil {
			return "", err
		}
		if err := p.deps.Media.Render(ctx, video, graph, outputPath); err != nil {
			return "", err
		}
		sidecar := SidecarPath(outputPath)
		if err := WriteSidecar(sidecar, plan); err != nil {
			logging.WarnWithContext(logger, "sidecar write failed", "sidecar_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "video rendered without the source list"),
			)
		}

		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, "render_complete"),
			logging.String("output_file", outputPath),
			logging.Int("overlay_count", len(plan)),
			logging.String("sidecar_path", sidecar),
		}
		if info, statErr := os.Stat(outputPath); statErr == nil {
			attrs = append(attrs, logging.Int64("output_bytes", info.Size()))
		}
		logger.Info("render complete", logging.Args(attrs...)...)
		return outputPath, nil
	})
}

func (p *Pipeline) layout() composite.Layout {
	return composite.Layout{
		Width:   p.cfg.Render.OverlayWidth,
		OffsetX: p.cfg.Render.OffsetX,
		OffsetY: p.cfg.Render.OffsetY,
	}
}
