package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.csv")

	m := NewManifest()
	m.Append("a.wav", 0)
	m.Append("b.wav", 1)
	m.Append("c.wav", 0)
	require.NoError(t, m.Save(path))

	loaded, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m.Entries, loaded.Entries, "row order must survive the round trip")
}

func TestLoadManifestSkipsInvalidRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.csv")
	csv := "filename,label\na.wav,0\nb.wav,2\nc.wav,drone\nd.wav,1\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err, "invalid rows must not fail the load")
	require.Len(t, m.Entries, 2)
	assert.Equal(t, Entry{Filename: "a.wav", Label: 0}, m.Entries[0])
	assert.Equal(t, Entry{Filename: "d.wav", Label: 1}, m.Entries[1])
}

func TestLoadManifestRejectsBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.csv")
	require.NoError(t, os.WriteFile(path, []byte("file,class\na.wav,0\n"), 0o644))

	_, err := LoadManifest(path)
	assert.Error(t, err)
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestManifestSetLabel(t *testing.T) {
	m := NewManifest()
	m.Append("a.wav", 0)

	m.SetLabel("a.wav", 1)
	require.Len(t, m.Entries, 1)
	assert.Equal(t, 1, m.Entries[0].Label)

	m.SetLabel("new.wav", 0)
	require.Len(t, m.Entries, 2)
	assert.Equal(t, "new.wav", m.Entries[1].Filename)
}

func TestManifestHasAndCounts(t *testing.T) {
	m := NewManifest()
	m.Append("a.wav", 0)
	m.Append("b.wav", 1)
	m.Append("c.wav", 1)

	assert.True(t, m.Has("a.wav"))
	assert.False(t, m.Has("z.wav"))

	noDrone, drone := m.Counts()
	assert.Equal(t, 1, noDrone)
	assert.Equal(t, 2, drone)
}
