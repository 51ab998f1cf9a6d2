package session

import (
	"vidlore/internal/entity"
	"vidlore/internal/ranking"
)

// Segment is a time-bounded unit of transcribed speech with its annotations.
type Segment struct {
	Index        int                 `json:"index"`
	Start        float64             `json:"start"`
	End          float64             `json:"end"`
	Text         string              `json:"text"`
	Language     string              `json:"language"`
	Entities     []entity.Entity     `json:"entities"`
	ChosenEntity *entity.Entity      `json:"chosen_entity,omitempty"`
	Candidates   []ranking.Candidate `json:"candidates"`
	Selected     *ranking.Candidate  `json:"selected,omitempty"`
	ImagePath    string              `json:"image_path,omitempty"`
	State        State               `json:"state"`
	// LastError holds the most recent capture failure, cleared on success.
	LastError string `json:"last_error,omitempty"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Renderable reports whether the segment belongs in the render plan.
func (s Segment) Renderable() bool {
	return s.State == StateReady && s.ImagePath != ""
}

func (s Segment) clone() Segment {
	out := s
	out.Entities = append([]entity.Entity(nil), s.Entities...)
	out.Candidates = append([]ranking.Candidate(nil), s.Candidates...)
	if s.ChosenEntity != nil {
		chosen := *s.ChosenEntity
		out.ChosenEntity = &chosen
	}
	if s.Selected != nil {
		selected := *s.Selected
		out.Selected = &selected
	}
	return out
}

// RenderPlanEntry is one overlay to composite. It is derived from a Ready
// segment on demand and never stored.
type RenderPlanEntry struct {
	SegmentIndex int
	ImagePath    string
	Start        float64
	End          float64
	Title        string
	URL          string
}

// OverrideEvent is emitted when a Ready segment's selection is replaced.
type OverrideEvent struct {
	Segment  int
	OldTitle string
	NewTitle string
}
