package playback

import "github.com/dirplay/dirplay/internal/domain/track"

// queue is an ordered list of tracks with a current index.
// An index of -1 means no track is selected.
type queue struct {
	tracks []track.Track
	index  int
}

func newQueue() queue {
	return queue{index: -1}
}

// replace swaps in a new track list and selects the track at index.
// The caller must have validated the index.
func (q *queue) replace(tracks []track.Track, index int) {
	q.tracks = make([]track.Track, len(tracks))
	copy(q.tracks, tracks)
	q.index = index
}

// current returns the selected track, if any.
func (q *queue) current() (*track.Track, bool) {
	if q.index < 0 || q.index >= len(q.tracks) {
		return nil, false
	}
	return &q.tracks[q.index], true
}

// len returns the number of tracks in the queue.
func (q *queue) len() int {
	return len(q.tracks)
}

// neighbor returns the index delta steps away from the current index,
// applying the wrap policy. ok is false when the move would cross a
// boundary under WrapNone.
func (q *queue) neighbor(delta int, wrap WrapPolicy) (int, bool) {
	n := len(q.tracks)
	if n == 0 || q.index < 0 {
		return -1, false
	}
	next := q.index + delta
	if next >= 0 && next < n {
		return next, true
	}
	if wrap == WrapAround {
		return ((next % n) + n) % n, true
	}
	return -1, false
}
