// Package track provides the Track domain entity.
package track

import (
	"path/filepath"
	"strings"
	"time"
)

// playableExtensions is the set of file extensions the player accepts.
// Matches are case-insensitive.
var playableExtensions = map[string]struct{}{
	".aac":  {},
	".aif":  {},
	".aiff": {},
	".flac": {},
	".mp3":  {},
	".ogg":  {},
	".wav":  {},
}

// Track represents a single playable audio file.
type Track struct {
	Path     string        // Absolute file path
	Title    string        // Display title (tag title or file stem)
	Artist   string        // Artist name (empty if unknown)
	Album    string        // Album name (empty if unknown)
	Duration time.Duration // Track duration (zero until probed or reported)
}

// New creates a Track for the given path with a display title
// derived from the file name.
func New(path string) Track {
	return Track{
		Path:  path,
		Title: TitleFromPath(path),
	}
}

// TitleFromPath derives a display title from a file path by
// stripping the directory and extension.
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsPlayable reports whether the file at path has a playable extension.
func IsPlayable(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := playableExtensions[ext]
	return ok
}

// String returns the track's display title.
func (t Track) String() string {
	return t.Title
}
