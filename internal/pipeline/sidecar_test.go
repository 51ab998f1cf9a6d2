package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"vidlore/internal/session"
)

func TestSidecarPath(t *testing.T) {
	if got := SidecarPath("/out/talk.annotated.mp4"); got != "/out/talk.annotated.sources.csv" {
		t.Fatalf("SidecarPath = %q", got)
	}
	if got := SidecarPath("/out/clip"); got != "/out/clip.sources.csv" {
		t.Fatalf("SidecarPath without extension = %q", got)
	}
}

func readSidecar(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open sidecar: %v", err)
	}
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("sidecar is not valid csv: %v", err)
	}
	return records
}

func TestWriteSidecarReadsBack(t *testing.T) {
	plan := []session.RenderPlanEntry{
		{SegmentIndex: 0, ImagePath: "a.png", Start: 0, End: 4.25, Title: "Alan Turing", URL: "https://en.wikipedia.org/wiki/Alan_Turing"},
		{SegmentIndex: 3, ImagePath: "b.png", Start: 12.5, End: 15, Title: "Bletchley Park, UK", URL: "https://en.wikipedia.org/wiki/Bletchley_Park"},
		{SegmentIndex: 5, ImagePath: "c.png", Start: 20, End: 21.5, Title: `The "Enigma" machine`, URL: "https://example.org/enigma?a=1,2"},
	}
	path := filepath.Join(t.TempDir(), "talk.sources.csv")
	if err := WriteSidecar(path, plan); err != nil {
		t.Fatalf("WriteSidecar: %v", err)
	}

	want := [][]string{
		{"Start", "End", "Title", "URL"},
		{"0.000", "4.250", "Alan Turing", "https://en.wikipedia.org/wiki/Alan_Turing"},
		{"12.500", "15.000", "Bletchley Park, UK", "https://en.wikipedia.org/wiki/Bletchley_Park"},
		{"20.000", "21.500", `The "Enigma" machine`, "https://example.org/enigma?a=1,2"},
	}
	got := readSidecar(t, path)
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Fatalf("record %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSidecarEmptyPlanHasHeaderOnly(t *testing.T) {
	out, err := SidecarCSV(nil)
	if err != nil {
		t.Fatalf("SidecarCSV: %v", err)
	}
	if out != "Start,End,Title,URL\n" {
		t.Fatalf("expected header only, got %q", out)
	}
}
