package playback

import (
	"time"

	"github.com/dirplay/dirplay/internal/domain/track"
)

// EventType represents a playback event type.
type EventType int

const (
	EventStateChanged    EventType = iota // Transport state changed
	EventTrackStarted                     // A new track was loaded and started
	EventPositionChanged                  // Playback position update
	EventQueueEnded                       // Playback ran past the last track
	EventPlaybackError                    // Engine reported an error
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStateChanged:
		return "state_changed"
	case EventTrackStarted:
		return "track_started"
	case EventPositionChanged:
		return "position_changed"
	case EventQueueEnded:
		return "queue_ended"
	case EventPlaybackError:
		return "playback_error"
	default:
		return "unknown"
	}
}

// Event represents a playback event delivered to UI subscribers.
type Event struct {
	Type    EventType
	Track   *track.Track  // Current track (nil when no track is selected)
	State   State         // Transport state at the time of the event
	Elapsed time.Duration // Elapsed playback time
	Total   time.Duration // Total track duration (zero if unknown)
	Reason  string        // Error description (EventPlaybackError only)
}
