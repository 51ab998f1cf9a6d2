// Package tui renders pipeline progress as a bubbletea program. It consumes
// the pipeline message channel and never touches pipeline state directly.
package tui
