package whisperx

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	langpkg "vidlore/internal/language"
)

// Segment is one timed utterance from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the parsed WhisperX result.
type Transcript struct {
	Segments []Segment
	Language string
}

type payload struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// LoadTranscript reads a WhisperX JSON file. Blank segments are dropped,
// segments are ordered by start time, and the language is normalized to
// ISO 639-1.
func LoadTranscript(jsonPath string) (Transcript, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return Transcript{}, err
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Transcript{}, fmt.Errorf("parse whisperx json: %w", err)
	}
	segments := make([]Segment, 0, len(p.Segments))
	for _, seg := range p.Segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" || seg.End <= seg.Start {
			continue
		}
		segments = append(segments, seg)
	}
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Start < segments[j].Start })
	return Transcript{Segments: segments, Language: langpkg.ToISO2(p.Language)}, nil
}
