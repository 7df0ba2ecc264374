package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dirplay/dirplay/internal/domain/track"
)

func TestProbe_UnreadableFileIsZero(t *testing.T) {
	info := Probe(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Equal(t, Info{}, info)
}

func TestProbe_GarbageFileIsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.flac")
	require.NoError(t, os.WriteFile(path, []byte("this is not flac data"), 0644))

	info := Probe(path)
	assert.Empty(t, info.Title)
	assert.Zero(t, info.Duration)
}

func TestApply_KeepsPathDerivedTitle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "untitled song.ogg")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	tr := Apply(track.New(path))
	assert.Equal(t, "untitled song", tr.Title)
	assert.Empty(t, tr.Artist)
	assert.Zero(t, tr.Duration)
}
