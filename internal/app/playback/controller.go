package playback

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/dirplay/dirplay/internal/domain/track"
)

// Errors
var (
	ErrInvalidIndex    = errors.New("track index out of range")
	ErrNoCurrentTrack  = errors.New("no track selected")
	ErrNoAdjacentTrack = errors.New("queue is empty")
)

// Engine is the command interface to the media engine. All commands are
// fire-and-forget; results come back through the controller's signal
// methods, tagged with the generation of the load they belong to.
type Engine interface {
	Load(gen uint64, path string)
	Play()
	Pause()
	Stop()
	Seek(pos time.Duration)
}

// Config holds controller configuration.
type Config struct {
	Wrap WrapPolicy // Navigation behavior at queue boundaries
}

// Controller owns the playback queue and transport state. It translates
// user intents and engine signals into state transitions plus outbound
// engine commands, and emits events for UI subscribers.
type Controller struct {
	mu sync.Mutex

	engine Engine
	config Config

	queue   queue
	state   State
	elapsed time.Duration
	total   time.Duration

	// gen tags each Load command; engine signals carrying an older
	// generation belong to a superseded load and are discarded.
	gen uint64

	eventCh chan Event
	closed  bool
}

// New creates a new playback controller. An engine must be attached
// with AttachEngine before any command reaches the media layer.
func New(config Config) *Controller {
	return &Controller{
		config:  config,
		queue:   newQueue(),
		state:   StateStopped,
		eventCh: make(chan Event, 16),
	}
}

// AttachEngine wires the media engine. Called once by the composition
// root, before the controller is handed to the UI layer.
func (c *Controller) AttachEngine(e Engine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine = e
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// LoadQueue replaces the queue with the given tracks, selects the track
// at startIndex and starts playing it. An out-of-range startIndex fails
// with ErrInvalidIndex and leaves the previous state untouched.
func (c *Controller) LoadQueue(tracks []track.Track, startIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if startIndex < 0 || startIndex >= len(tracks) {
		return errors.Wrapf(ErrInvalidIndex, "index %d, queue length %d", startIndex, len(tracks))
	}

	c.queue.replace(tracks, startIndex)
	c.startCurrentLocked()
	return nil
}

// Play starts or resumes playback of the current track. No-op when
// already playing; fails with ErrNoCurrentTrack when no track is
// selected.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.queue.current()
	if !ok {
		return ErrNoCurrentTrack
	}
	if c.state == StatePlaying {
		return nil
	}

	if c.state == StateStopped {
		// The engine dropped its stream on Stop; reload before playing.
		c.gen++
		c.elapsed = 0
		c.total = cur.Duration
		if c.engine != nil {
			c.engine.Load(c.gen, cur.Path)
		}
	}
	if c.engine != nil {
		c.engine.Play()
	}
	c.state = StatePlaying
	c.sendLocked(c.eventLocked(EventStateChanged))
	return nil
}

// Pause pauses playback. Valid only while playing; no-op otherwise.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		return nil
	}
	if c.engine != nil {
		c.engine.Pause()
	}
	c.state = StatePaused
	c.sendLocked(c.eventLocked(EventStateChanged))
	return nil
}

// Stop stops playback from any state and resets the position to zero.
// The current track stays selected.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.sendLocked(c.eventLocked(EventStateChanged))
	return nil
}

// Next advances to the next track and plays it. At the end of a
// non-wrapping queue it stays on the current track and stops. Fails
// with ErrNoAdjacentTrack when the queue is empty.
func (c *Controller) Next() error {
	return c.step(1)
}

// Previous retreats to the previous track and plays it. At the start of
// a non-wrapping queue it stays on the current track and stops. Fails
// with ErrNoAdjacentTrack when the queue is empty.
func (c *Controller) Previous() error {
	return c.step(-1)
}

func (c *Controller) step(delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue.len() == 0 {
		return ErrNoAdjacentTrack
	}

	next, ok := c.queue.neighbor(delta, c.config.Wrap)
	if !ok {
		c.stopLocked()
		c.sendLocked(c.eventLocked(EventStateChanged))
		return nil
	}

	c.queue.index = next
	c.startCurrentLocked()
	return nil
}

// Seek issues a seek command for the current track. Valid only when a
// track is selected and playback is not stopped.
func (c *Controller) Seek(pos time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.queue.current(); !ok || c.state == StateStopped {
		return ErrNoCurrentTrack
	}
	if c.engine != nil {
		c.engine.Seek(pos)
	}
	return nil
}

// OnEndOfTrack handles the engine's end-of-media signal. Equivalent to
// Next, except running past the last track stops playback instead of
// failing.
func (c *Controller) OnEndOfTrack(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.staleLocked(gen, "end_of_track") {
		return
	}
	if _, ok := c.queue.current(); !ok {
		return
	}

	next, ok := c.queue.neighbor(1, c.config.Wrap)
	if !ok {
		// The ended load is done; trailing signals from it are stale.
		c.gen++
		c.state = StateStopped
		c.elapsed = 0
		c.sendLocked(c.eventLocked(EventQueueEnded))
		return
	}

	c.queue.index = next
	c.startCurrentLocked()
}

// OnError handles an engine error signal. Playback stops; the error is
// surfaced to subscribers and never terminates the controller. The
// failed track is not retried.
func (c *Controller) OnError(gen uint64, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.staleLocked(gen, "error") {
		return
	}

	zlog.Warn().Msgf("playback: engine error: %s", reason)
	c.gen++
	c.state = StateStopped
	c.elapsed = 0

	ev := c.eventLocked(EventPlaybackError)
	ev.Reason = reason
	c.sendLocked(ev)
}

// OnPosition handles an engine position update. Pure state update, no
// transition.
func (c *Controller) OnPosition(gen uint64, elapsed, total time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.staleLocked(gen, "position") {
		return
	}

	c.elapsed = elapsed
	if total > 0 {
		c.total = total
	}
	c.sendLocked(c.eventLocked(EventPositionChanged))
}

// State returns the current transport state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the selected track.
func (c *Controller) Current() (track.Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.queue.current()
	if !ok {
		return track.Track{}, false
	}
	return *cur, true
}

// Position returns the last known elapsed time and total duration.
func (c *Controller) Position() (elapsed, total time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed, c.total
}

// Tracks returns a copy of the queued tracks and the current index.
func (c *Controller) Tracks() ([]track.Track, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]track.Track, len(c.queue.tracks))
	copy(result, c.queue.tracks)
	return result, c.queue.index
}

// Close stops playback and closes the event channel.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.stopLocked()
	c.closed = true
	close(c.eventCh)
}

// startCurrentLocked loads and plays the selected track under a fresh
// generation. Must be called with lock held and a valid current index.
func (c *Controller) startCurrentLocked() {
	cur, ok := c.queue.current()
	if !ok {
		return
	}

	c.gen++
	c.elapsed = 0
	c.total = cur.Duration
	c.state = StatePlaying

	if c.engine != nil {
		c.engine.Load(c.gen, cur.Path)
		c.engine.Play()
	}

	zlog.Debug().Msgf("playback: starting track: title=%s gen=%d", cur.Title, c.gen)
	c.sendLocked(c.eventLocked(EventTrackStarted))
}

// stopLocked issues a Stop command and resets transport state. Bumping
// the generation marks any in-flight load superseded; its remaining
// signals are stale. Must be called with lock held.
func (c *Controller) stopLocked() {
	c.gen++
	if c.engine != nil {
		c.engine.Stop()
	}
	c.state = StateStopped
	c.elapsed = 0
}

// staleLocked reports whether a signal generation belongs to a
// superseded load. Must be called with lock held.
func (c *Controller) staleLocked(gen uint64, signal string) bool {
	if gen == c.gen {
		return false
	}
	zlog.Debug().Msgf("playback: discarding stale %s signal: gen=%d current=%d", signal, gen, c.gen)
	return true
}

// eventLocked builds an event snapshot of the current state.
// Must be called with lock held.
func (c *Controller) eventLocked(t EventType) Event {
	ev := Event{
		Type:    t,
		State:   c.state,
		Elapsed: c.elapsed,
		Total:   c.total,
	}
	if cur, ok := c.queue.current(); ok {
		trackCopy := *cur
		ev.Track = &trackCopy
	}
	return ev
}

// sendLocked sends an event without blocking. Must be called with lock
// held.
func (c *Controller) sendLocked(ev Event) {
	if c.closed {
		return
	}
	select {
	case c.eventCh <- ev:
	default:
		// Channel full, drop the event rather than block the caller.
	}
}
