// internal/playback/state.go
package playback

import "github.com/llehouerou/riptide/internal/engine"

// State represents the playback state.
type State int

const (
	StateIdle State = iota
	StateBuffering
	StatePlaying
	StatePaused
	StateEnded
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateBuffering:
		return "Buffering"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateEnded:
		return "Ended"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// IsActive returns true if an item is loaded and not finished.
func (s State) IsActive() bool {
	return s == StateBuffering || s == StatePlaying || s == StatePaused
}

// fromEngine maps a raw engine event to a playback state.
func fromEngine(e engine.Event) State {
	if e.Err != nil {
		return StateError
	}
	switch e.State {
	case engine.StateBuffering:
		return StateBuffering
	case engine.StateReady:
		if e.PlayWhenReady {
			return StatePlaying
		}
		return StatePaused
	case engine.StateEnded:
		return StateEnded
	default:
		return StateIdle
	}
}
