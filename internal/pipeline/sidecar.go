package pipeline

import (
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"vidlore/internal/fileutil"
	"vidlore/internal/session"
)

var sidecarHeader = []string{"Start", "End", "Title", "URL"}

// SidecarPath returns the CSV path written next to a rendered video.
func SidecarPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".sources.csv"
}

// WriteSidecar writes one CSV row per overlay: start, end, title, URL.
func WriteSidecar(path string, plan []session.RenderPlanEntry) error {
	data, err := SidecarCSV(plan)
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, []byte(data), 0o644)
}

// SidecarCSV renders the overlay list as RFC 4180 CSV with a header row.
func SidecarCSV(plan []session.RenderPlanEntry) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	records := make([][]string, 0, len(plan)+1)
	records = append(records, sidecarHeader)
	for _, entry := range plan {
		records = append(records, []string{
			strconv.FormatFloat(entry.Start, 'f', 3, 64),
			strconv.FormatFloat(entry.End, 'f', 3, 64),
			entry.Title,
			entry.URL,
		})
	}
	if err := w.WriteAll(records); err != nil {
		return "", fmt.Errorf("encode sources csv: %w", err)
	}
	return b.String(), nil
}
