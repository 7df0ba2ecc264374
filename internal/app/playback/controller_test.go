package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dirplay/dirplay/internal/domain/track"
)

// fakeEngine records issued commands for inspection.
type fakeEngine struct {
	mu       sync.Mutex
	commands []string
	lastGen  uint64
	lastPath string
}

func (f *fakeEngine) Load(gen uint64, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, "load")
	f.lastGen = gen
	f.lastPath = path
}

func (f *fakeEngine) Play()  { f.record("play") }
func (f *fakeEngine) Pause() { f.record("pause") }
func (f *fakeEngine) Stop()  { f.record("stop") }

func (f *fakeEngine) Seek(pos time.Duration) { f.record("seek") }

func (f *fakeEngine) record(cmd string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
}

func (f *fakeEngine) loadedGen() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastGen
}

func (f *fakeEngine) loadedPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPath
}

func newTestController(wrap WrapPolicy) (*Controller, *fakeEngine) {
	c := New(Config{Wrap: wrap})
	e := &fakeEngine{}
	c.AttachEngine(e)
	return c, e
}

func testTracks(paths ...string) []track.Track {
	tracks := make([]track.Track, len(paths))
	for i, p := range paths {
		tracks[i] = track.New(p)
	}
	return tracks
}

func TestController_LoadQueue(t *testing.T) {
	c, e := newTestController(WrapNone)
	defer c.Close()

	tracks := testTracks("/m/a.mp3", "/m/b.mp3", "/m/c.mp3")
	require.NoError(t, c.LoadQueue(tracks, 1))

	assert.Equal(t, StatePlaying, c.State())
	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "/m/b.mp3", cur.Path)
	assert.Equal(t, "/m/b.mp3", e.loadedPath())
	assert.Equal(t, []string{"load", "play"}, e.commands)
}

func TestController_LoadQueue_InvalidIndex(t *testing.T) {
	c, _ := newTestController(WrapNone)
	defer c.Close()

	tracks := testTracks("/m/a.mp3", "/m/b.mp3")
	require.NoError(t, c.LoadQueue(tracks, 0))

	tests := []struct {
		name   string
		tracks []track.Track
		index  int
	}{
		{name: "negative index", tracks: tracks, index: -1},
		{name: "index equals length", tracks: tracks, index: 2},
		{name: "empty queue", tracks: nil, index: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.LoadQueue(tt.tracks, tt.index)
			assert.ErrorIs(t, err, ErrInvalidIndex)

			// Prior state is untouched.
			assert.Equal(t, StatePlaying, c.State())
			cur, ok := c.Current()
			require.True(t, ok)
			assert.Equal(t, "/m/a.mp3", cur.Path)
		})
	}
}

func TestController_PlayPauseRoundTrip(t *testing.T) {
	c, _ := newTestController(WrapNone)
	defer c.Close()

	tracks := testTracks("/m/a.mp3")
	require.NoError(t, c.LoadQueue(tracks, 0))

	require.NoError(t, c.Pause())
	assert.Equal(t, StatePaused, c.State())

	require.NoError(t, c.Play())
	assert.Equal(t, StatePlaying, c.State())

	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "/m/a.mp3", cur.Path)
}

func TestController_Play_NoCurrentTrack(t *testing.T) {
	c, _ := newTestController(WrapNone)
	defer c.Close()

	assert.ErrorIs(t, c.Play(), ErrNoCurrentTrack)
}

func TestController_Play_AlreadyPlaying(t *testing.T) {
	c, e := newTestController(WrapNone)
	defer c.Close()

	require.NoError(t, c.LoadQueue(testTracks("/m/a.mp3"), 0))
	before := len(e.commands)

	require.NoError(t, c.Play())
	assert.Equal(t, before, len(e.commands), "no command issued when already playing")
}

func TestController_Pause_NotPlaying(t *testing.T) {
	c, e := newTestController(WrapNone)
	defer c.Close()

	require.NoError(t, c.Pause())
	assert.Equal(t, StateStopped, c.State())
	assert.Empty(t, e.commands)
}

func TestController_Stop(t *testing.T) {
	c, _ := newTestController(WrapNone)
	defer c.Close()

	require.NoError(t, c.LoadQueue(testTracks("/m/a.mp3"), 0))
	require.NoError(t, c.Stop())

	assert.Equal(t, StateStopped, c.State())
	elapsed, _ := c.Position()
	assert.Equal(t, time.Duration(0), elapsed)

	// Track stays selected; Play restarts it.
	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "/m/a.mp3", cur.Path)
	require.NoError(t, c.Play())
	assert.Equal(t, StatePlaying, c.State())
}

func TestController_Next_StopsAtEnd(t *testing.T) {
	c, _ := newTestController(WrapNone)
	defer c.Close()

	// N=3: exactly N-1 successful advances from the first track,
	// then the boundary call stops.
	require.NoError(t, c.LoadQueue(testTracks("/m/a.mp3", "/m/b.mp3", "/m/c.mp3"), 0))

	require.NoError(t, c.Next())
	assert.Equal(t, StatePlaying, c.State())
	require.NoError(t, c.Next())
	assert.Equal(t, StatePlaying, c.State())

	require.NoError(t, c.Next())
	assert.Equal(t, StateStopped, c.State())
	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "/m/c.mp3", cur.Path, "stays on the last track")
}

func TestController_Previous_StopsAtStart(t *testing.T) {
	c, _ := newTestController(WrapNone)
	defer c.Close()

	require.NoError(t, c.LoadQueue(testTracks("/m/a.mp3", "/m/b.mp3"), 0))
	require.NoError(t, c.Previous())

	assert.Equal(t, StateStopped, c.State())
	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "/m/a.mp3", cur.Path)
}

func TestController_Navigation_EmptyQueue(t *testing.T) {
	c, _ := newTestController(WrapNone)
	defer c.Close()

	assert.ErrorIs(t, c.Next(), ErrNoAdjacentTrack)
	assert.ErrorIs(t, c.Previous(), ErrNoAdjacentTrack)
}

func TestController_WrapAround(t *testing.T) {
	c, _ := newTestController(WrapAround)
	defer c.Close()

	require.NoError(t, c.LoadQueue(testTracks("/m/a.mp3", "/m/b.mp3", "/m/c.mp3"), 2))

	require.NoError(t, c.Next())
	assert.Equal(t, StatePlaying, c.State())
	cur, _ := c.Current()
	assert.Equal(t, "/m/a.mp3", cur.Path)

	require.NoError(t, c.Previous())
	cur, _ = c.Current()
	assert.Equal(t, "/m/c.mp3", cur.Path)
}

func TestController_EndOfTrackWalk(t *testing.T) {
	c, e := newTestController(WrapNone)
	defer c.Close()

	require.NoError(t, c.LoadQueue(testTracks("/m/a.mp3", "/m/b.mp3", "/m/c.mp3"), 0))

	c.OnEndOfTrack(e.loadedGen())
	assert.Equal(t, StatePlaying, c.State())
	cur, _ := c.Current()
	assert.Equal(t, "/m/b.mp3", cur.Path)

	c.OnEndOfTrack(e.loadedGen())
	assert.Equal(t, StatePlaying, c.State())
	cur, _ = c.Current()
	assert.Equal(t, "/m/c.mp3", cur.Path)

	c.OnEndOfTrack(e.loadedGen())
	assert.Equal(t, StateStopped, c.State())
	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "/m/c.mp3", cur.Path, "stays on the last track, no error")
}

func TestController_EndOfTrack_WrapAround(t *testing.T) {
	c, e := newTestController(WrapAround)
	defer c.Close()

	require.NoError(t, c.LoadQueue(testTracks("/m/a.mp3", "/m/b.mp3"), 1))

	c.OnEndOfTrack(e.loadedGen())
	assert.Equal(t, StatePlaying, c.State())
	cur, _ := c.Current()
	assert.Equal(t, "/m/a.mp3", cur.Path)
}

func TestController_StaleSignalsDiscarded(t *testing.T) {
	c, e := newTestController(WrapNone)
	defer c.Close()

	require.NoError(t, c.LoadQueue(testTracks("/m/a.mp3", "/m/b.mp3"), 0))
	staleGen := e.loadedGen()

	// A newer load supersedes the first one.
	require.NoError(t, c.LoadQueue(testTracks("/m/x.mp3", "/m/y.mp3"), 0))

	c.OnEndOfTrack(staleGen)
	c.OnError(staleGen, "decoder exploded")
	c.OnPosition(staleGen, 30*time.Second, time.Minute)

	assert.Equal(t, StatePlaying, c.State())
	cur, _ := c.Current()
	assert.Equal(t, "/m/x.mp3", cur.Path)
	elapsed, _ := c.Position()
	assert.Equal(t, time.Duration(0), elapsed)
}

func TestController_SignalsAfterStopDiscarded(t *testing.T) {
	c, e := newTestController(WrapNone)
	defer c.Close()

	require.NoError(t, c.LoadQueue(testTracks("/m/a.mp3", "/m/b.mp3"), 0))
	gen := e.loadedGen()
	require.NoError(t, c.Stop())
	before := len(e.commands)

	// The engine may still flush signals for the stopped load.
	c.OnEndOfTrack(gen)
	c.OnError(gen, "decoder exploded")
	c.OnPosition(gen, 30*time.Second, time.Minute)

	assert.Equal(t, StateStopped, c.State(), "a late end-of-track must not restart playback")
	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "/m/a.mp3", cur.Path)
	elapsed, _ := c.Position()
	assert.Equal(t, time.Duration(0), elapsed)
	assert.Equal(t, before, len(e.commands), "no engine command issued for stale signals")
}

func TestController_QueueEnded_TrailingSignalsDiscarded(t *testing.T) {
	c, e := newTestController(WrapNone)
	defer c.Close()

	require.NoError(t, c.LoadQueue(testTracks("/m/a.mp3"), 0))
	gen := e.loadedGen()

	c.OnEndOfTrack(gen)
	require.Equal(t, StateStopped, c.State())

	// Position reporter ticks racing the end of the stream.
	c.OnPosition(gen, 2*time.Second, 3*time.Second)
	assert.Equal(t, StateStopped, c.State())
	elapsed, _ := c.Position()
	assert.Equal(t, time.Duration(0), elapsed)
}

func TestController_OnError(t *testing.T) {
	c, e := newTestController(WrapNone)
	defer c.Close()

	require.NoError(t, c.LoadQueue(testTracks("/m/a.mp3"), 0))
	drain(c)

	c.OnError(e.loadedGen(), "file vanished")

	assert.Equal(t, StateStopped, c.State())
	ev := waitEvent(t, c, EventPlaybackError)
	assert.Equal(t, "file vanished", ev.Reason)
	assert.Equal(t, StateStopped, ev.State)
}

func TestController_OnPosition(t *testing.T) {
	c, e := newTestController(WrapNone)
	defer c.Close()

	require.NoError(t, c.LoadQueue(testTracks("/m/a.mp3"), 0))

	c.OnPosition(e.loadedGen(), 42*time.Second, 3*time.Minute)

	assert.Equal(t, StatePlaying, c.State(), "position update causes no transition")
	elapsed, total := c.Position()
	assert.Equal(t, 42*time.Second, elapsed)
	assert.Equal(t, 3*time.Minute, total)
}

func TestController_Seek(t *testing.T) {
	c, e := newTestController(WrapNone)
	defer c.Close()

	assert.ErrorIs(t, c.Seek(time.Second), ErrNoCurrentTrack)

	require.NoError(t, c.LoadQueue(testTracks("/m/a.mp3"), 0))
	require.NoError(t, c.Seek(30*time.Second))
	assert.Contains(t, e.commands, "seek")

	require.NoError(t, c.Stop())
	assert.ErrorIs(t, c.Seek(time.Second), ErrNoCurrentTrack)
}

func TestController_Events(t *testing.T) {
	c, _ := newTestController(WrapNone)
	defer c.Close()

	require.NoError(t, c.LoadQueue(testTracks("/m/a.mp3"), 0))

	ev := waitEvent(t, c, EventTrackStarted)
	assert.Equal(t, StatePlaying, ev.State)
	require.NotNil(t, ev.Track)
	assert.Equal(t, "a", ev.Track.Title)
}

// drain empties the controller's event channel.
func drain(c *Controller) {
	for {
		select {
		case <-c.Events():
		default:
			return
		}
	}
}

// waitEvent reads events until one of the wanted type arrives.
func waitEvent(t *testing.T, c *Controller, want EventType) Event {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case ev := <-c.Events():
			if ev.Type == want {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event received", want)
		}
	}
}
