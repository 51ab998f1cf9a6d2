package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vidlore/internal/capturestore"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune the capture cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	return cacheCmd
}

func openCaptureStore(ctx *commandContext) (*capturestore.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return capturestore.Open(cfg.CaptureCachePath())
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show capture cache size",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCaptureStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			rows := [][]string{
				{"Path", store.Path()},
				{"Entries", fmt.Sprintf("%d", stats.Entries)},
				{"Size", formatBytes(stats.TotalBytes)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Capture cache", ""}, rows, nil))
			return nil
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove captures not used within the given number of days",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 {
				return fmt.Errorf("--days must not be negative")
			}
			store, err := openCaptureStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			cutoff := time.Now().AddDate(0, 0, -days)
			removed, err := store.Prune(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached captures\n", removed)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "Keep captures used within this many days")
	return cmd
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
