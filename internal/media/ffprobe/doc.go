// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect executes ffprobe and returns a parsed Result. Helper methods cover
// stream counts, the primary (non cover-art) video stream, duration, and
// bitrate. The pipeline uses it to size overlays against the source frame and
// to pick the audio stream handed to transcription.
package ffprobe
