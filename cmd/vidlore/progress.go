package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"vidlore/internal/config"
	"vidlore/internal/deps"
	"vidlore/internal/logging"
	"vidlore/internal/pipeline"
	"vidlore/internal/preflight"
	"vidlore/internal/tui"
)

type pipelineWork func(ctx context.Context, p *pipeline.Pipeline) (string, error)

// runPipeline builds a pipeline from config and runs work under a signal
// context. On a terminal the TUI consumes pipeline messages and logs go to
// the log file only; otherwise logs also go to stderr.
func runPipeline(cmd *cobra.Command, cc *commandContext, title string, work pipelineWork) (string, error) {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return "", err
	}
	if err := requireBinaries(cfg); err != nil {
		return "", err
	}
	interactive := cc.interactive(cmd.OutOrStdout())
	logger, err := commandLogger(cfg, interactive)
	if err != nil {
		return "", err
	}

	var messages chan pipeline.Message
	if interactive {
		messages = make(chan pipeline.Message)
	}
	p, err := pipeline.NewFromConfig(cfg, logger, messages)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := p.Close(); closeErr != nil {
			logger.Warn("pipeline close failed", logging.Error(closeErr))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !interactive {
		return work(ctx, p)
	}
	output, err := tui.Run(ctx, title, messages, cmd.OutOrStdout(), func(ctx context.Context) (string, error) {
		return work(ctx, p)
	})
	close(messages)
	return output, err
}

func requireBinaries(cfg *config.Config) error {
	if missing := deps.Missing(preflight.CheckSystemDeps(cfg)); len(missing) > 0 {
		return fmt.Errorf("missing required binaries: %s (run `vidlore deps` for details)", strings.Join(missing, ", "))
	}
	return nil
}

// commandLogger writes to the process log file, plus stderr unless the TUI
// owns the terminal.
func commandLogger(cfg *config.Config, interactive bool) (*slog.Logger, error) {
	if !interactive {
		return logging.NewFromConfig(cfg)
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, logging.LogFileName)},
	})
}
