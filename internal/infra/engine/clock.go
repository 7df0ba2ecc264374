package engine

import (
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/dirplay/dirplay/internal/infra/metadata"
)

// clockSettings configures the clock engine.
type clockSettings struct {
	// TimeScale compresses simulated playback: a scale of 60 plays a
	// one-minute track in one second. Used to speed up tests.
	TimeScale float64 `mapstructure:"time_scale"`
	// DefaultDurationSec is assumed for files whose duration cannot
	// be probed.
	DefaultDurationSec int `mapstructure:"default_duration_sec"`
}

func defaultClockSettings() clockSettings {
	return clockSettings{
		TimeScale:          1,
		DefaultDurationSec: 180,
	}
}

// clockEngine simulates playback on a wall-clock timer instead of
// producing audio. It reports position once per simulated second and
// signals end-of-track when the probed duration elapses. Useful for
// tests and for environments without an audio device.
type clockEngine struct {
	sig      Signals
	settings clockSettings

	mu      sync.Mutex
	gen     uint64
	elapsed time.Duration
	total   time.Duration
	playing bool
	stop    chan struct{}
}

func newClockEngine(sig Signals, settings clockSettings) *clockEngine {
	if settings.TimeScale <= 0 {
		settings.TimeScale = 1
	}
	if settings.DefaultDurationSec <= 0 {
		settings.DefaultDurationSec = 180
	}
	return &clockEngine{sig: sig, settings: settings}
}

func (e *clockEngine) Load(gen uint64, path string) {
	total := metadata.Probe(path).Duration
	if total <= 0 {
		total = time.Duration(e.settings.DefaultDurationSec) * time.Second
	}

	e.mu.Lock()
	e.stopLocked()
	e.gen = gen
	e.elapsed = 0
	e.total = total
	e.playing = false
	stop := make(chan struct{})
	e.stop = stop
	e.mu.Unlock()

	zlog.Debug().Msgf("engine: clock load: path=%s duration=%v gen=%d", path, total, gen)
	go e.run(gen, stop)
}

func (e *clockEngine) Play() {
	e.mu.Lock()
	e.playing = true
	e.mu.Unlock()
}

func (e *clockEngine) Pause() {
	e.mu.Lock()
	e.playing = false
	e.mu.Unlock()
}

func (e *clockEngine) Stop() {
	e.mu.Lock()
	e.stopLocked()
	e.mu.Unlock()
}

func (e *clockEngine) Seek(pos time.Duration) {
	e.mu.Lock()
	if pos < 0 {
		pos = 0
	}
	if pos > e.total {
		pos = e.total
	}
	e.elapsed = pos
	e.mu.Unlock()
}

func (e *clockEngine) Close() {
	e.Stop()
}

// SetVolume is a no-op: the clock engine produces no audio.
func (e *clockEngine) SetVolume(percent int) {}

// SetMuted is a no-op: the clock engine produces no audio.
func (e *clockEngine) SetMuted(muted bool) {}

// stopLocked cancels the running simulation. Must be called with lock
// held.
func (e *clockEngine) stopLocked() {
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
	e.playing = false
}

// run advances the simulation one virtual second per tick. Signals are
// delivered outside the engine lock.
func (e *clockEngine) run(gen uint64, stop chan struct{}) {
	interval := time.Duration(float64(time.Second) / e.settings.TimeScale)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.mu.Lock()
			if !e.playing || e.gen != gen {
				e.mu.Unlock()
				continue
			}
			e.elapsed += time.Second
			elapsed, total := e.elapsed, e.total
			ended := elapsed >= total
			if ended {
				e.stopLocked()
			}
			e.mu.Unlock()

			e.sig.OnPosition(gen, elapsed, total)
			if ended {
				e.sig.OnEndOfTrack(gen)
				return
			}
		}
	}
}
