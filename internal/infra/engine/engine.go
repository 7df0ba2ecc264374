// Package engine provides media engine implementations behind the
// playback controller's command port.
package engine

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"

	"github.com/dirplay/dirplay/internal/app/playback"
	"github.com/dirplay/dirplay/internal/infra/config"
)

// Signals is the sink for engine results. Every signal carries the
// generation of the Load command it belongs to, so superseded loads can
// be told apart from the current one.
type Signals interface {
	OnEndOfTrack(gen uint64)
	OnError(gen uint64, reason string)
	OnPosition(gen uint64, elapsed, total time.Duration)
}

// Engine extends the playback command port with lifecycle management.
type Engine interface {
	playback.Engine
	Close()
}

// VolumeControl is implemented by engines with adjustable output.
// Volume bypasses the playback controller: it is an output property,
// not transport state.
type VolumeControl interface {
	SetVolume(percent int)
	SetMuted(muted bool)
}

// New builds the engine selected by cfg.
func New(cfg config.EngineConfig, sig Signals) (Engine, error) {
	switch cfg.Type {
	case "beep", "":
		return newBeepEngine(sig), nil
	case "clock":
		settings := defaultClockSettings()
		if err := decodeSettings(cfg.Settings, &settings); err != nil {
			return nil, errors.Wrap(err, "invalid clock engine settings")
		}
		return newClockEngine(sig, settings), nil
	default:
		return nil, errors.Newf("unknown engine type: %s", cfg.Type)
	}
}

// decodeSettings decodes an engine's settings map into its typed
// settings struct.
func decodeSettings(settings map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(settings)
}
