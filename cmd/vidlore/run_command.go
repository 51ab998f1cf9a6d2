package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"vidlore/internal/notifications"
	"vidlore/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "run <video>",
		Short: "Analyze a video, pick the top source per segment, and render overlays",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			video, err := resolveVideo(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			notifier := notifications.NewService(cfg)
			started := time.Now()
			overlays := 0
			out, err := runPipeline(cmd, ctx, filepath.Base(video), func(runCtx context.Context, p *pipeline.Pipeline) (string, error) {
				out, err := p.Run(runCtx, video, output)
				if sess := p.Session(); err == nil && sess != nil {
					overlays = len(sess.RenderPlan())
				}
				return out, err
			})
			if err != nil {
				if notifyErr := notifier.NotifyRunFailed(cmd.Context(), video, err); notifyErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "notification failed: %v\n", notifyErr)
				}
				return err
			}
			if notifyErr := notifier.NotifyRunCompleted(cmd.Context(), video, out, overlays, time.Since(started)); notifyErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "notification failed: %v\n", notifyErr)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Wrote %s\n", out)
			fmt.Fprintf(w, "Sources: %s\n", pipeline.SidecarPath(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output video path (default <output_dir>/<stem>.annotated<ext>)")
	return cmd
}
