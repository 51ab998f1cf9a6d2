// Package language normalizes language codes reported by transcription and
// container metadata onto ISO 639-1, backed by golang.org/x/text/language.
package language
