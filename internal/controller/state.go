package controller

import "fmt"

// State is the lifecycle state of a Controller.
type State int

const (
	// StateIdle means no record is loaded.
	StateIdle State = iota
	// StateLoading means a record is being read from the store.
	StateLoading
	// StateLoaded means a record is shown and can be saved.
	StateLoaded
	// StateSaving means an edit is in flight and further saves are dropped.
	StateSaving
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateSaving:
		return "saving"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{StateIdle, StateLoading, StateLoaded, StateSaving} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown controller state %q", b)
}

// SavedState is what the host persists across a suspend/resume cycle.
type SavedState struct {
	BlogID  string `json:"blog_id"`
	MediaID string `json:"media_id"`
}
