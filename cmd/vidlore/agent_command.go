package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidlore/internal/agent"
	"vidlore/internal/logging"
	"vidlore/internal/pipeline"
)

func newAgentCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "agent <video>",
		Short: "Analyze a video, then serve editing tools over MCP stdio",
		Long: "Runs transcription and annotation, then exposes list_segments, fetch_candidates,\n" +
			"select_candidate, select_url, capture_segment, and render as MCP tools on stdin/stdout.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			video, err := resolveVideo(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := requireBinaries(cfg); err != nil {
				return err
			}
			// stdout carries the MCP transport.
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}
			p, err := pipeline.NewFromConfig(cfg, logger, nil)
			if err != nil {
				return err
			}
			defer p.Close()

			runCtx := cmd.Context()
			if _, err := p.Open(runCtx, video); err != nil {
				return err
			}
			if _, err := p.Analyze(runCtx); err != nil {
				return fmt.Errorf("analyze %s: %w", video, err)
			}
			return agent.New(p, version, logger).ServeStdio()
		},
	}
}
