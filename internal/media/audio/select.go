package audio

import (
	"strconv"
	"strings"

	"vidlore/internal/language"
	"vidlore/internal/media/ffprobe"
)

// Selection names the audio stream handed to transcription.
type Selection struct {
	Primary      ffprobe.Stream
	PrimaryIndex int
	// Language is the ISO 639-1 code from the stream tags, empty when untagged.
	Language string
}

// Found reports whether any audio stream was selected.
func (s Selection) Found() bool {
	return s.PrimaryIndex >= 0
}

// MapSpec returns the ffmpeg -map argument for the selected stream.
func (s Selection) MapSpec() string {
	if !s.Found() {
		return "0:a:0?"
	}
	return "0:" + strconv.Itoa(s.PrimaryIndex)
}

// PrimaryLabel returns a human-readable summary of the selected stream.
func (s Selection) PrimaryLabel() string {
	if !s.Found() {
		return ""
	}
	return formatStreamSummary(s.Primary)
}

// Select picks the audio stream most likely to carry the main dialogue.
// Streams tagged with preferLang win, then the default-flagged stream, then
// the earliest stream. Commentary and descriptive-audio tracks are demoted.
// An empty preferLang skips the language preference.
func Select(streams []ffprobe.Stream, preferLang string) Selection {
	candidates := buildCandidates(streams)
	if len(candidates) == 0 {
		return Selection{PrimaryIndex: -1}
	}
	preferLang = language.ToISO2(preferLang)

	best := candidates[0]
	bestScore := scorePrimary(best, preferLang)
	for _, cand := range candidates[1:] {
		if score := scorePrimary(cand, preferLang); score > bestScore {
			best = cand
			bestScore = score
		}
	}
	return Selection{
		Primary:      best.stream,
		PrimaryIndex: best.stream.Index,
		Language:     best.language,
	}
}

type candidate struct {
	stream         ffprobe.Stream
	order          int
	language       string
	title          string
	channels       int
	defaultFlagged bool
}

func scorePrimary(cand candidate, preferLang string) float64 {
	score := 0.0
	if preferLang != "" && cand.language == preferLang {
		score += 1000
	}
	if isSecondaryTrack(cand) {
		score -= 500
	}
	if cand.defaultFlagged {
		score += 100
	}
	if cand.channels >= 2 {
		score += 10
	}
	// Prefer earlier tracks when scores tie.
	score -= float64(cand.order) * 0.1
	return score
}

func isSecondaryTrack(cand candidate) bool {
	if cand.stream.Disposition["comment"] == 1 || cand.stream.Disposition["visual_impaired"] == 1 {
		return true
	}
	for _, keyword := range []string{"commentary", "description", "descriptive"} {
		if strings.Contains(cand.title, keyword) {
			return true
		}
	}
	return false
}

func buildCandidates(streams []ffprobe.Stream) []candidate {
	result := make([]candidate, 0)
	for _, stream := range streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		result = append(result, candidate{
			stream:         stream,
			order:          len(result),
			language:       language.ExtractFromTags(stream.Tags),
			title:          normalizeTitle(stream.Tags),
			channels:       channelCount(stream),
			defaultFlagged: stream.Disposition["default"] == 1,
		})
	}
	return result
}

func normalizeTitle(tags map[string]string) string {
	for _, key := range []string{"title", "TITLE", "handler_name", "HANDLER_NAME"} {
		if value, ok := tags[key]; ok {
			return strings.ToLower(strings.TrimSpace(value))
		}
	}
	return ""
}

func channelCount(stream ffprobe.Stream) int {
	if stream.Channels > 0 {
		return stream.Channels
	}
	layout := strings.ToLower(strings.TrimSpace(stream.ChannelLayout))
	switch {
	case layout == "":
		return 0
	case layout == "mono":
		return 1
	case layout == "stereo":
		return 2
	}
	total := 0
	for _, part := range strings.Split(layout, ".") {
		part = strings.Trim(part, "abcdefghijklmnopqrstuvwxyz ()")
		if n, err := strconv.Atoi(part); err == nil {
			total += n
		}
	}
	return total
}

func formatStreamSummary(stream ffprobe.Stream) string {
	parts := make([]string, 0, 4)
	if lang := language.ExtractFromTags(stream.Tags); lang != "" {
		parts = append(parts, lang)
	}
	codec := stream.CodecLong
	if codec == "" {
		codec = stream.CodecName
	}
	if codec != "" {
		parts = append(parts, codec)
	}
	if stream.Channels > 0 {
		parts = append(parts, strconv.Itoa(stream.Channels)+"ch")
	}
	if title := strings.TrimSpace(stream.Tags["title"]); title != "" {
		parts = append(parts, title)
	}
	if len(parts) == 0 {
		return "audio"
	}
	return strings.Join(parts, " | ")
}
