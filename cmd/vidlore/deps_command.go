package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidlore/internal/deps"
	"vidlore/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check external binaries, directories, and service endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			statuses := preflight.CheckSystemDeps(cfg)
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				detail := s.Command
				if !s.Available {
					detail = s.Detail
				}
				rows = append(rows, []string{s.Name, availability(s.Available, s.Optional), yesNo(s.Optional), detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Binary", "Status", "Optional", "Detail"}, rows, nil))

			var results []preflight.Result
			if offline {
				results = preflight.DirectoryChecks(cfg)
			} else {
				checkCtx, cancel := context.WithTimeout(cmd.Context(), 45*time.Second)
				results = preflight.RunAll(checkCtx, cfg)
				cancel()
			}
			results = append(results, preflight.CheckGPU(cmd.Context(), cfg.Transcription.CUDAEnabled))
			checkRows := make([][]string, 0, len(results))
			for _, r := range results {
				checkRows = append(checkRows, []string{r.Name, availability(r.Passed, false), r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, checkRows, nil))

			missing := deps.Missing(statuses)
			failed := preflight.Failed(results)
			if len(missing) == 0 && len(failed) == 0 {
				fmt.Fprintln(out, "All checks passed")
				return nil
			}
			var problems []string
			if len(missing) > 0 {
				problems = append(problems, "missing binaries: "+strings.Join(missing, ", "))
			}
			for _, f := range failed {
				problems = append(problems, f.Name+": "+f.Detail)
			}
			return errors.New(strings.Join(problems, "; "))
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip network endpoint checks")
	return cmd
}

func availability(ok, optional bool) string {
	switch {
	case ok:
		return "OK"
	case optional:
		return "Unavailable"
	default:
		return "MISSING"
	}
}
