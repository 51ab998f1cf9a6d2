package session

import "fmt"

// State is a segment's position in the annotation lifecycle.
type State int

// Segment states, in lifecycle order.
const (
	StateTranscribed State = iota
	StateAnnotated
	StateCandidatesFetched
	StateSelected
	StateReady
)

var stateNames = [...]string{
	StateTranscribed:       "transcribed",
	StateAnnotated:         "annotated",
	StateCandidatesFetched: "candidates_fetched",
	StateSelected:          "selected",
	StateReady:             "ready",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText renders the state name for JSON and TOML output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	name := string(text)
	for i, candidate := range stateNames {
		if candidate == name {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown segment state %q", name)
}
