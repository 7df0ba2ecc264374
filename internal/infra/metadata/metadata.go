// Package metadata probes audio files for display tags and duration.
package metadata

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	zlog "github.com/rs/zerolog/log"
	"github.com/tcolgate/mp3"

	"github.com/dirplay/dirplay/internal/domain/track"
)

// Info holds the probed fields of an audio file.
type Info struct {
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
}

// Probe reads embedded tags and computes the duration of the file at
// path. Probing is best-effort: fields that cannot be determined are
// left zero, and failures never propagate to playback.
func Probe(path string) Info {
	var info Info

	if f, err := os.Open(path); err == nil {
		if m, err := tag.ReadFrom(f); err == nil {
			info.Title = m.Title()
			info.Artist = m.Artist()
			info.Album = m.Album()
		}
		f.Close()
	}

	dur, err := duration(path)
	if err != nil {
		zlog.Debug().Msgf("metadata: no duration for %s: %v", path, err)
	}
	info.Duration = dur

	return info
}

// Apply fills a track's display fields from a probe, keeping the
// path-derived title when the file carries no usable tags.
func Apply(t track.Track) track.Track {
	info := Probe(t.Path)
	if info.Title != "" {
		t.Title = info.Title
	}
	if info.Artist != "" {
		t.Artist = info.Artist
	}
	if info.Album != "" {
		t.Album = info.Album
	}
	if info.Duration > 0 {
		t.Duration = info.Duration
	}
	return t
}

// duration computes the playing time by format. Formats without a
// prober here report their duration through the engine instead.
func duration(path string) (time.Duration, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return durationMP3(path)
	case ".wav":
		return durationWAV(path)
	case ".flac":
		return durationFLAC(path)
	default:
		return 0, errors.Newf("no duration prober for %s", filepath.Ext(path))
	}
}

// durationMP3 sums frame durations across the whole file.
func durationMP3(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) || frames > 0 {
				break
			}
			return 0, err
		}
		total += fr.Duration()
		frames++
	}
	return total, nil
}

func durationWAV(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return wav.NewDecoder(f).Duration()
}

// durationFLAC reads the STREAMINFO metadata block.
func durationFLAC(path string) (time.Duration, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	si := stream.Info
	if si.SampleRate == 0 {
		return 0, errors.New("flac stream has no sample rate")
	}
	seconds := float64(si.NSamples) / float64(si.SampleRate)
	return time.Duration(seconds * float64(time.Second)), nil
}
