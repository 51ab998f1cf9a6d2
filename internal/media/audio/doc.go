// Package audio picks the audio stream that feeds transcription.
//
// Select ranks the container's audio streams: a stream tagged with the
// configured transcription language wins, then the default-flagged stream,
// then the earliest stream. Commentary and audio-description tracks are
// demoted so WhisperX hears the main dialogue.
package audio
