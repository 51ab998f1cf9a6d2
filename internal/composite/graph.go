package composite

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"vidlore/internal/services"
	"vidlore/internal/session"
)

// AudioMap carries the base input's audio when present.
const AudioMap = "0:a?"

// Layout positions every overlay.
type Layout struct {
	Width   int
	OffsetX int
	OffsetY int
}

// Stage is one scale-and-overlay step of the graph.
type Stage struct {
	Entry session.RenderPlanEntry
	// Input is the ffmpeg input index of the overlay image.
	Input  int
	Scale  string
	Over   string
	Source string
	// Output is the intermediate label, empty for the final stage.
	Output string
}

// Graph describes the composite: the base input, one image input per stage,
// and the filter chain joining them. A Graph with no stages is a pass-through
// of the base.
type Graph struct {
	Base   string
	Images []string
	Stages []Stage
	Layout Layout
}

// PassThrough reports whether the graph leaves the base untouched.
func (g Graph) PassThrough() bool {
	return len(g.Stages) == 0
}

// FilterComplex joins every stage into a single -filter_complex value.
func (g Graph) FilterComplex() string {
	parts := make([]string, 0, len(g.Stages)*2)
	for _, st := range g.Stages {
		parts = append(parts, st.Scale, st.Over)
	}
	return strings.Join(parts, ";")
}

// InputArgs returns the -i arguments: the base first, then each image.
func (g Graph) InputArgs() []string {
	args := []string{"-i", g.Base}
	for _, img := range g.Images {
		args = append(args, "-i", img)
	}
	return args
}

// BuildError reports an invalid render plan entry.
type BuildError struct {
	Entry  int
	Reason string
}

func (e *BuildError) Error() string {
	if e.Entry < 0 {
		return "composite build: " + e.Reason
	}
	return fmt.Sprintf("composite build: entry %d: %s", e.Entry, e.Reason)
}

func (e *BuildError) Unwrap() error {
	return services.ErrCompositeBuild
}

// Build turns an ordered render plan into a composite graph. Entry i reads
// input i+1, is scaled to layout.Width preserving aspect ratio, and is
// overlaid at (OffsetX, OffsetY) while t is in [Start, End). Stage i consumes
// the output of stage i-1 (the base video for i == 0); every stage but the
// last writes an intermediate label [v<i+1>]. Overlapping windows stack.
func Build(base string, plan []session.RenderPlanEntry, layout Layout) (Graph, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return Graph{}, &BuildError{Entry: -1, Reason: "empty base path"}
	}
	g := Graph{Base: base, Layout: layout}
	if len(plan) == 0 {
		return g, nil
	}
	if layout.Width <= 0 {
		return Graph{}, &BuildError{Entry: -1, Reason: fmt.Sprintf("overlay width %d must be positive", layout.Width)}
	}
	for i, entry := range plan {
		if err := validateEntry(i, entry); err != nil {
			return Graph{}, err
		}
	}

	g.Images = make([]string, 0, len(plan))
	g.Stages = make([]Stage, 0, len(plan))
	source := "[0:v]"
	for i, entry := range plan {
		input := i + 1
		img := "[img" + strconv.Itoa(i) + "]"
		st := Stage{
			Entry:  entry,
			Input:  input,
			Source: source,
			Scale:  fmt.Sprintf("[%d:v]scale=%d:-1%s", input, layout.Width, img),
		}
		over := fmt.Sprintf("%s%soverlay=x=%d:y=%d:enable='gte(t,%s)*lt(t,%s)'",
			source, img, layout.OffsetX, layout.OffsetY, formatSeconds(entry.Start), formatSeconds(entry.End))
		if i < len(plan)-1 {
			st.Output = "[v" + strconv.Itoa(i+1) + "]"
			over += st.Output
			source = st.Output
		}
		st.Over = over
		g.Images = append(g.Images, entry.ImagePath)
		g.Stages = append(g.Stages, st)
	}
	return g, nil
}

func validateEntry(i int, e session.RenderPlanEntry) error {
	switch {
	case strings.TrimSpace(e.ImagePath) == "":
		return &BuildError{Entry: i, Reason: "empty image path"}
	case math.IsNaN(e.Start) || math.IsNaN(e.End) || math.IsInf(e.Start, 0) || math.IsInf(e.End, 0):
		return &BuildError{Entry: i, Reason: "non-finite time"}
	case e.Start < 0 || e.End < 0:
		return &BuildError{Entry: i, Reason: fmt.Sprintf("negative time [%s, %s)", formatSeconds(e.Start), formatSeconds(e.End))}
	case e.End <= e.Start:
		return &BuildError{Entry: i, Reason: fmt.Sprintf("end %s not after start %s", formatSeconds(e.End), formatSeconds(e.Start))}
	}
	return nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
