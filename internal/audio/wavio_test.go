package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varta-systems/varta-go/internal/conf"
)

func TestSaveLoadWaveformRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "segment.wav")

	in := make([]float64, conf.SegmentSamples)
	for i := range in {
		in[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(conf.SampleRate))
	}

	require.NoError(t, SaveWaveform(path, in))

	out, err := LoadWaveform(path)
	require.NoError(t, err)
	require.Len(t, out, conf.SegmentSamples)

	// 16-bit quantization bounds the round-trip error.
	for i := 0; i < len(in); i += 997 {
		assert.InDelta(t, in[i], out[i], 1.0/32767*2)
	}
}

func TestLoadWaveformPadsShortFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.wav")

	in := make([]float64, conf.SegmentSamples/2)
	for i := range in {
		in[i] = 0.25
	}
	require.NoError(t, SaveWaveform(path, in))

	out, err := LoadWaveform(path)
	require.NoError(t, err)
	require.Len(t, out, conf.SegmentSamples)
	assert.InDelta(t, 0.25, out[0], 0.001)
	assert.Zero(t, out[conf.SegmentSamples-1], "tail must be zero padded")
}

func TestLoadWaveformRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-audio.wav")
	require.NoError(t, SaveWaveform(filepath.Join(dir, "seed.wav"), make([]float64, 10)))

	// A file that is not WAV at all.
	require.NoError(t, os.WriteFile(path, []byte("definitely not a wav file"), 0o644))
	_, err := LoadWaveform(path)
	assert.Error(t, err)

	_, err = LoadWaveform(filepath.Join(dir, "missing.wav"))
	assert.Error(t, err)
}

func TestSaveWaveformClipsOutOfRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hot.wav")

	in := make([]float64, conf.SegmentSamples)
	in[0] = 2.0
	in[1] = -2.0
	require.NoError(t, SaveWaveform(path, in))

	out, err := LoadWaveform(path)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out[0], 0.001)
	assert.InDelta(t, -1.0, out[1], 0.001)
}
