// Package browser provides directory listing and navigation for the
// file-browsing front end.
package browser

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/dirplay/dirplay/internal/domain/track"
)

// Errors
var (
	ErrNotDirectory = errors.New("not a directory")
	ErrNoSuchEntry  = errors.New("no such entry")
)

// Entry represents a single listed directory entry.
type Entry struct {
	Name  string // Base name
	Path  string // Absolute path
	IsDir bool
	Size  int64 // File size in bytes (zero for directories)
}

// Browser tracks the current location and produces ordered listings of
// it: directories first, then playable files, both sorted
// case-insensitively. Hidden entries and non-playable files are
// excluded.
type Browser struct {
	mu       sync.Mutex
	location string
	home     string
}

// New creates a browser at the given location. A location that is not a
// directory falls back to the user's home directory.
func New(location string) *Browser {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/"
	}

	b := &Browser{location: location, home: home}
	b.verifyLocked()
	return b
}

// Location returns the current directory.
func (b *Browser) Location() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.location
}

// List returns the ordered entries of the current location.
func (b *Browser) List() ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.verifyLocked()
	return listDir(b.location)
}

// Playlist returns the playable files of the current location, in
// listing order, as tracks.
func (b *Browser) Playlist() ([]track.Track, error) {
	entries, err := b.List()
	if err != nil {
		return nil, err
	}

	tracks := make([]track.Track, 0, len(entries))
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		tracks = append(tracks, track.New(e.Path))
	}
	return tracks, nil
}

// Enter descends into the named subdirectory of the current location.
func (b *Browser) Enter(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	target := filepath.Join(b.location, name)
	info, err := os.Stat(target)
	if err != nil {
		return errors.Wrapf(ErrNoSuchEntry, "%s", name)
	}
	if !info.IsDir() {
		return errors.Wrapf(ErrNotDirectory, "%s", name)
	}

	b.location = target
	return nil
}

// Up moves to the parent of the current location.
func (b *Browser) Up() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.location = filepath.Dir(b.location)
	b.verifyLocked()
}

// Home moves to the user's home directory.
func (b *Browser) Home() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.location = b.home
}

// verifyLocked falls back to the home directory when the current
// location no longer exists. Must be called with lock held.
func (b *Browser) verifyLocked() {
	info, err := os.Stat(b.location)
	if err == nil && info.IsDir() {
		return
	}
	zlog.Warn().Msgf("browser: location %s is not a directory, falling back to %s", b.location, b.home)
	b.location = b.home
}

// listDir reads and filters a directory's entries.
func listDir(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", dir)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !de.IsDir() && !track.IsPlayable(name) {
			continue
		}

		e := Entry{
			Name:  name,
			Path:  filepath.Join(dir, name),
			IsDir: de.IsDir(),
		}
		if !de.IsDir() {
			if info, err := de.Info(); err == nil {
				e.Size = info.Size()
			}
		}
		entries = append(entries, e)
	}

	// Directories first, then case-insensitive name order.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})

	return entries, nil
}
