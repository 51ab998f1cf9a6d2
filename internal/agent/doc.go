// Package agent exposes an analyzed session as MCP tools so an assistant can
// browse segments, rank sources, pick overlays, and render over stdio.
package agent
