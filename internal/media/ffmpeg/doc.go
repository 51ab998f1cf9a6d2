// Package ffmpeg shells out to ffmpeg for the two media steps of the
// pipeline: extracting a mono 16 kHz WAV for transcription and rendering a
// composite.Graph into the annotated video.
//
// Render writes to a hidden ".<name>.partial" file next to the target and
// renames it into place only after ffmpeg exits cleanly. Failures wrap
// services.ErrRenderEngine with the tail of ffmpeg's stderr.
package ffmpeg
