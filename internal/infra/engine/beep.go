package engine

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	zlog "github.com/rs/zerolog/log"
)

// positionInterval is how often the beep engine reports playback
// position.
const positionInterval = time.Second

// speaker state is process-global in beep; initialize it once with the
// first track's sample rate and resample later tracks to it.
var (
	speakerOnce sync.Once
	speakerRate beep.SampleRate
	speakerErr  error
)

// beepEngine plays audio through the beep speaker. Decoders are
// selected by file extension; decode failures surface as engine error
// signals, never as synchronous errors.
type beepEngine struct {
	sig Signals

	mu       sync.Mutex
	gen      uint64
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	file     *os.File
	level    int
	muted    bool
	stopTick chan struct{}
}

func newBeepEngine(sig Signals) *beepEngine {
	return &beepEngine{sig: sig, level: 100}
}

func (e *beepEngine) Load(gen uint64, path string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.unloadLocked()
	e.gen = gen

	f, err := os.Open(path)
	if err != nil {
		e.errorLocked(gen, err.Error())
		return
	}

	var streamer beep.StreamSeekCloser
	var format beep.Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	default:
		f.Close()
		e.errorLocked(gen, "unsupported format: "+filepath.Ext(path))
		return
	}
	if err != nil {
		f.Close()
		e.errorLocked(gen, err.Error())
		return
	}

	speakerOnce.Do(func() {
		speakerRate = format.SampleRate
		speakerErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	if speakerErr != nil {
		streamer.Close()
		f.Close()
		e.errorLocked(gen, speakerErr.Error())
		return
	}

	e.file = f
	e.streamer = streamer
	e.format = format

	// Queue the stream paused; the controller issues Play separately.
	e.ctrl = &beep.Ctrl{Streamer: e.resampled(streamer, format), Paused: true}
	e.volume = &effects.Volume{
		Streamer: e.ctrl,
		Base:     2,
		Volume:   levelToVolume(e.level),
		Silent:   e.muted || e.level == 0,
	}

	sig := e.sig
	speaker.Play(beep.Seq(e.volume, beep.Callback(func() {
		// Runs on the speaker goroutine; hand off before touching
		// any lock.
		go sig.OnEndOfTrack(gen)
	})))

	stopTick := make(chan struct{})
	e.stopTick = stopTick
	go e.reportPosition(gen, streamer, format, stopTick)

	zlog.Debug().Msgf("engine: beep load: path=%s gen=%d rate=%d", path, gen, format.SampleRate)
}

func (e *beepEngine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil {
		return
	}
	speaker.Lock()
	e.ctrl.Paused = false
	speaker.Unlock()
}

func (e *beepEngine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil {
		return
	}
	speaker.Lock()
	e.ctrl.Paused = true
	speaker.Unlock()
}

func (e *beepEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unloadLocked()
}

func (e *beepEngine) Seek(pos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil || e.streamer.Len() == 0 {
		return
	}

	n := e.format.SampleRate.N(pos)
	if n < 0 {
		n = 0
	}
	if n >= e.streamer.Len() {
		n = e.streamer.Len() - 1
	}

	speaker.Lock()
	err := e.streamer.Seek(n)
	speaker.Unlock()
	if err != nil {
		zlog.Warn().Msgf("engine: seek failed: %v", err)
	}
}

func (e *beepEngine) Close() {
	e.Stop()
}

// SetVolume sets the output level (0-100).
func (e *beepEngine) SetVolume(percent int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	e.level = percent

	if e.volume == nil {
		return
	}
	speaker.Lock()
	e.volume.Volume = levelToVolume(percent)
	e.volume.Silent = e.muted || percent == 0
	speaker.Unlock()
}

// SetMuted silences the output without losing the level.
func (e *beepEngine) SetMuted(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.muted = muted
	if e.volume == nil {
		return
	}
	speaker.Lock()
	e.volume.Silent = muted || e.level == 0
	speaker.Unlock()
}

// unloadLocked drops the current stream and its position reporter.
// Must be called with lock held.
func (e *beepEngine) unloadLocked() {
	if e.stopTick != nil {
		close(e.stopTick)
		e.stopTick = nil
	}
	if e.ctrl != nil {
		speaker.Clear()
	}
	if e.streamer != nil {
		e.streamer.Close()
		e.streamer = nil
	}
	if e.file != nil {
		e.file.Close()
		e.file = nil
	}
	e.ctrl = nil
	e.volume = nil
}

// errorLocked signals a load failure. Delivered on a fresh goroutine so
// the controller can call back into the engine without re-entering the
// lock. Must be called with lock held.
func (e *beepEngine) errorLocked(gen uint64, reason string) {
	sig := e.sig
	go sig.OnError(gen, reason)
}

// resampled adapts a stream to the speaker's sample rate.
func (e *beepEngine) resampled(s beep.Streamer, format beep.Format) beep.Streamer {
	if speakerRate == 0 || format.SampleRate == speakerRate {
		return s
	}
	return beep.Resample(4, format.SampleRate, speakerRate, s)
}

// reportPosition periodically reads the stream position and forwards it
// as a position signal.
func (e *beepEngine) reportPosition(gen uint64, streamer beep.StreamSeekCloser, format beep.Format, stop chan struct{}) {
	ticker := time.NewTicker(positionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// Re-check under the engine lock that this stream is
			// still the loaded one before touching it.
			e.mu.Lock()
			if e.streamer != streamer {
				e.mu.Unlock()
				return
			}
			speaker.Lock()
			pos := streamer.Position()
			length := streamer.Len()
			speaker.Unlock()
			e.mu.Unlock()

			e.sig.OnPosition(gen, format.SampleRate.D(pos), format.SampleRate.D(length))
		}
	}
}

// levelToVolume converts a 0-100 level to beep's base-2 volume scale:
// 0 means unchanged, -1 half, -2 quarter.
func levelToVolume(percent int) float64 {
	if percent <= 0 {
		return -10
	}
	if percent >= 100 {
		return 0
	}
	return math.Log2(float64(percent) / 100)
}
