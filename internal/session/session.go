package session

import (
	"fmt"
	"math"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vidlore/internal/entity"
	langpkg "vidlore/internal/language"
	"vidlore/internal/ranking"
)

// Transcribed is a transcription segment used to seed a session.
type Transcribed struct {
	Start float64
	End   float64
	Text  string
}

// Session owns the ordered segments of one video and their state machine.
// All methods are safe for concurrent use; accessors return copies.
type Session struct {
	ID        string
	VideoPath string
	Language  string

	mu       sync.Mutex
	segments []Segment
}

// New creates a session from transcription output. Segments are sorted by
// start time; a segment that starts before its predecessor ends is clamped
// to the predecessor's end, and segments left empty are dropped. Indexes are
// assigned after ordering.
func New(id, videoPath, lang string, transcribed []Transcribed) *Session {
	lang = langpkg.ToISO2(lang)
	sorted := make([]Transcribed, 0, len(transcribed))
	for _, t := range transcribed {
		if invalidTime(t.Start) || invalidTime(t.End) || strings.TrimSpace(t.Text) == "" {
			continue
		}
		sorted = append(sorted, t)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	segments := make([]Segment, 0, len(sorted))
	prevEnd := 0.0
	for _, t := range sorted {
		start := math.Max(t.Start, prevEnd)
		if t.End <= start {
			continue
		}
		segments = append(segments, Segment{
			Index:    len(segments),
			Start:    start,
			End:      t.End,
			Text:     strings.TrimSpace(t.Text),
			Language: lang,
			State:    StateTranscribed,
		})
		prevEnd = t.End
	}
	return &Session{ID: id, VideoPath: videoPath, Language: lang, segments: segments}
}

func invalidTime(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0) || v < 0
}

// Len returns the number of segments.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.segments)
}

// Segments returns a snapshot of every segment in order.
func (s *Session) Segments() []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Segment, len(s.segments))
	for i, seg := range s.segments {
		out[i] = seg.clone()
	}
	return out
}

// Segment returns a snapshot of one segment.
func (s *Session) Segment(index int) (Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seg, err := s.at(index)
	if err != nil {
		return Segment{}, err
	}
	return seg.clone(), nil
}

func (s *Session) at(index int) (*Segment, error) {
	if index < 0 || index >= len(s.segments) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrSegmentNotFound, index, len(s.segments))
	}
	return &s.segments[index], nil
}

// Annotate stores resolved entities. It is one-shot: Transcribed → Annotated.
func (s *Session) Annotate(index int, entities []entity.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seg, err := s.at(index)
	if err != nil {
		return err
	}
	if seg.State != StateTranscribed {
		return &TransitionError{Segment: index, Event: "annotate", From: seg.State}
	}
	seg.Entities = append([]entity.Entity(nil), entities...)
	seg.State = StateAnnotated
	return nil
}

// SetCandidates replaces the candidate list for the chosen entity.
// Annotated and CandidatesFetched move to CandidatesFetched. A refresh while
// Selected or Ready replaces the list but keeps the current selection and
// state; picking from the new list then goes through SelectCandidate.
func (s *Session) SetCandidates(index int, chosen entity.Entity, candidates []ranking.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seg, err := s.at(index)
	if err != nil {
		return err
	}
	if seg.State == StateTranscribed {
		return &TransitionError{Segment: index, Event: "set candidates", From: seg.State}
	}
	seg.ChosenEntity = &chosen
	seg.Candidates = append([]ranking.Candidate(nil), candidates...)
	if seg.State == StateAnnotated || seg.State == StateCandidatesFetched {
		seg.State = StateCandidatesFetched
	}
	return nil
}

// SelectCandidate picks a candidate from the segment's ranked list.
// Selecting a different source while Ready returns an OverrideEvent and moves
// the segment back to Selected with its image cleared; re-selecting the
// current source is a no-op.
func (s *Session) SelectCandidate(index, candidate int) (*OverrideEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seg, err := s.at(index)
	if err != nil {
		return nil, err
	}
	if seg.State == StateTranscribed {
		return nil, &TransitionError{Segment: index, Event: "select candidate", From: seg.State}
	}
	if candidate < 0 || candidate >= len(seg.Candidates) {
		return nil, fmt.Errorf("%w: segment %d candidate %d of %d", ErrCandidateNotFound, index, candidate, len(seg.Candidates))
	}
	return seg.selectSource(seg.Candidates[candidate]), nil
}

// SelectURL selects an arbitrary source, bypassing ranking. An empty title is
// derived from the URL path.
func (s *Session) SelectURL(index int, rawURL, title string) (*OverrideEvent, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("select url: %q is not an http(s) URL", rawURL)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = titleFromURL(parsed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	seg, err := s.at(index)
	if err != nil {
		return nil, err
	}
	if seg.State == StateTranscribed {
		return nil, &TransitionError{Segment: index, Event: "select url", From: seg.State}
	}
	return seg.selectSource(ranking.Candidate{
		Title:      title,
		URL:        parsed.String(),
		Provenance: ranking.Provenance{Source: ranking.SourceManual},
	}), nil
}

func (seg *Segment) selectSource(c ranking.Candidate) *OverrideEvent {
	var event *OverrideEvent
	if seg.State == StateReady && seg.Selected != nil {
		if seg.Selected.SameSource(c) {
			return nil
		}
		event = &OverrideEvent{Segment: seg.Index, OldTitle: seg.Selected.Title, NewTitle: c.Title}
	}
	seg.Selected = &c
	seg.ImagePath = ""
	seg.LastError = ""
	seg.State = StateSelected
	return event
}

// AttachImage records a successful capture: Selected → Ready.
func (s *Session) AttachImage(index int, imagePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seg, err := s.at(index)
	if err != nil {
		return err
	}
	if seg.State != StateSelected {
		return &TransitionError{Segment: index, Event: "attach image", From: seg.State}
	}
	if strings.TrimSpace(imagePath) == "" {
		return fmt.Errorf("attach image: segment %d: empty image path", index)
	}
	seg.ImagePath = imagePath
	seg.LastError = ""
	seg.State = StateReady
	return nil
}

// CaptureFailed records a failed capture. The segment stays Selected so the
// capture can be retried.
func (s *Session) CaptureFailed(index int, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seg, err := s.at(index)
	if err != nil {
		return err
	}
	if seg.State != StateSelected {
		return &TransitionError{Segment: index, Event: "capture failed", From: seg.State}
	}
	seg.ImagePath = ""
	if cause != nil {
		seg.LastError = cause.Error()
	}
	return nil
}

// RenderPlan derives the overlay list from Ready segments, in segment order.
func (s *Session) RenderPlan() []RenderPlanEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var plan []RenderPlanEntry
	for _, seg := range s.segments {
		if !seg.Renderable() {
			continue
		}
		entry := RenderPlanEntry{
			SegmentIndex: seg.Index,
			ImagePath:    seg.ImagePath,
			Start:        seg.Start,
			End:          seg.End,
		}
		if seg.Selected != nil {
			entry.Title = seg.Selected.Title
			entry.URL = seg.Selected.URL
		}
		plan = append(plan, entry)
	}
	return plan
}

// Counts tallies segments per state.
func (s *Session) Counts() map[State]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[State]int, len(stateNames))
	for _, seg := range s.segments {
		counts[seg.State]++
	}
	return counts
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// titleFromURL turns ".../wiki/Demographics_of_India" into
// "Demographics Of India"-style display text, falling back to the host.
func titleFromURL(u *url.URL) string {
	base := path.Base(strings.TrimRight(u.Path, "/"))
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	switch ext := strings.ToLower(path.Ext(base)); ext {
	case ".html", ".htm", ".php", ".aspx":
		base = strings.TrimSuffix(base, path.Ext(base))
	}
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" || base == "." || base == "/" {
		return u.Host
	}
	return titleCaser.String(base)
}
