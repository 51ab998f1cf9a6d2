// Package notifications publishes run milestones to ntfy.
//
// When no topic is configured NewService returns a no-op implementation, so
// callers can notify unconditionally.
package notifications
