// Package playback provides transport control with integrated queue management.
package playback

// State represents the transport state.
type State int

const (
	StateStopped State = iota // No track playing
	StatePlaying              // Track is playing
	StatePaused               // Track is paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// WrapPolicy controls navigation behavior at queue boundaries.
type WrapPolicy int

const (
	WrapNone   WrapPolicy = iota // Stop at the first/last track
	WrapAround                   // Wrap to the opposite end
)

// String returns the string representation of the wrap policy.
func (w WrapPolicy) String() string {
	switch w {
	case WrapNone:
		return "none"
	case WrapAround:
		return "around"
	default:
		return "unknown"
	}
}
