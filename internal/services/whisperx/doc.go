// Package whisperx runs WhisperX speech-to-text through uvx and parses its
// JSON output into timed sentence segments plus the detected language.
//
// Configuration options (model, CUDA, VAD method, forced language) are passed
// via Config.
package whisperx
