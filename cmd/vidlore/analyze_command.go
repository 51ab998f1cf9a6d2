package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vidlore/internal/pipeline"
	"vidlore/internal/session"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "analyze <video>",
		Short: "Transcribe a video and list the entities found per segment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			video, err := resolveVideo(args[0])
			if err != nil {
				return err
			}
			var segments []session.Segment
			_, err = runPipeline(cmd, ctx, filepath.Base(video), func(runCtx context.Context, p *pipeline.Pipeline) (string, error) {
				if _, err := p.Open(runCtx, video); err != nil {
					return "", err
				}
				sess, err := p.Analyze(runCtx)
				if err != nil {
					return "", err
				}
				segments = sess.Segments()
				return "", nil
			})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, segments)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSegmentTable(segments))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print segments as JSON")
	return cmd
}

func renderSegmentTable(segments []session.Segment) string {
	rows := make([][]string, 0, len(segments))
	for _, seg := range segments {
		names := make([]string, 0, len(seg.Entities))
		for _, e := range seg.Entities {
			names = append(names, e.Text)
		}
		rows = append(rows, []string{
			strconv.Itoa(seg.Index),
			formatTimestamp(seg.Start),
			formatTimestamp(seg.End),
			truncateCell(strings.Join(names, ", "), 40),
			truncateCell(seg.Text, 60),
		})
	}
	return renderTable(
		[]string{"#", "Start", "End", "Entities", "Text"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft},
	)
}

// formatTimestamp renders seconds as m:ss.s.
func formatTimestamp(seconds float64) string {
	minutes := int(seconds) / 60
	rest := seconds - float64(minutes*60)
	return fmt.Sprintf("%d:%04.1f", minutes, rest)
}
