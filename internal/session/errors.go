package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition reports an event not permitted from the segment's state.
	ErrInvalidTransition = errors.New("invalid segment transition")
	// ErrSegmentNotFound reports an out-of-range segment index.
	ErrSegmentNotFound = errors.New("segment not found")
	// ErrCandidateNotFound reports an out-of-range candidate index.
	ErrCandidateNotFound = errors.New("candidate not found")
)

// TransitionError describes a rejected state machine event.
type TransitionError struct {
	Segment int
	Event   string
	From    State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("segment %d: %s not allowed from %s", e.Segment, e.Event, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
