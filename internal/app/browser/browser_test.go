package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDir builds a directory with a mix of playable files,
// directories, hidden entries and non-audio files.
func newTestDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	for _, name := range []string{"b.mp3", "A.flac", ".hidden.mp3", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "singles"), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Albums"), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0755))

	return dir
}

func TestBrowser_List(t *testing.T) {
	dir := newTestDir(t)
	b := New(dir)

	entries, err := b.List()
	require.NoError(t, err)

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}

	// Directories first, then files, case-insensitively sorted.
	// Hidden entries and non-audio files excluded.
	assert.Equal(t, []string{"Albums", "singles", "A.flac", "b.mp3"}, names)
	assert.True(t, entries[0].IsDir)
	assert.False(t, entries[2].IsDir)
	assert.Equal(t, int64(1), entries[2].Size)
}

func TestBrowser_Playlist(t *testing.T) {
	dir := newTestDir(t)
	b := New(dir)

	tracks, err := b.Playlist()
	require.NoError(t, err)

	require.Len(t, tracks, 2)
	assert.Equal(t, "A", tracks[0].Title)
	assert.Equal(t, "b", tracks[1].Title)
	assert.Equal(t, filepath.Join(dir, "A.flac"), tracks[0].Path)
}

func TestBrowser_Navigation(t *testing.T) {
	dir := newTestDir(t)
	b := New(dir)

	require.NoError(t, b.Enter("singles"))
	assert.Equal(t, filepath.Join(dir, "singles"), b.Location())

	b.Up()
	assert.Equal(t, dir, b.Location())

	assert.ErrorIs(t, b.Enter("missing"), ErrNoSuchEntry)
	assert.ErrorIs(t, b.Enter("b.mp3"), ErrNotDirectory)
}

func TestBrowser_InvalidLocationFallsBack(t *testing.T) {
	b := New("/definitely/not/a/real/path")

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, home, b.Location())
}

func TestBrowser_Home(t *testing.T) {
	dir := newTestDir(t)
	b := New(dir)
	b.Home()

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, home, b.Location())
}
