package labeler

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderWaveformWidthAndPeak(t *testing.T) {
	samples := make([]float64, 44100)
	for i := range samples {
		samples[i] = 0.8 * math.Sin(float64(i)*0.01)
	}
	// One loud spike that must render as the full block.
	samples[20000] = 1.0

	out := []rune(RenderWaveform(samples))
	require.Len(t, out, waveformColumns)
	assert.Contains(t, string(out), "█", "the tallest peak fills a full block")
}

func TestRenderWaveformSilence(t *testing.T) {
	out := RenderWaveform(make([]float64, 1000))
	assert.Equal(t, strings.Repeat(" ", waveformColumns), out)
}

func TestRenderWaveformShortAndEmptyInput(t *testing.T) {
	assert.Equal(t, "", RenderWaveform(nil))

	out := []rune(RenderWaveform([]float64{0.1, 1.0, 0.1}))
	assert.Len(t, out, 3, "short clips render one column per sample")
}

func TestRenderWaveformScalesWithAmplitude(t *testing.T) {
	samples := make([]float64, 600)
	for i := range samples {
		// First half quiet, second half loud.
		if i < 300 {
			samples[i] = 0.1
		} else {
			samples[i] = 1.0
		}
	}
	out := []rune(RenderWaveform(samples))
	require.Len(t, out, waveformColumns)
	assert.Less(t, blockHeight(out[5]), blockHeight(out[55]),
		"quieter columns must render shorter blocks")
}

func blockHeight(r rune) int {
	for i, b := range waveformBlocks {
		if b == r {
			return i
		}
	}
	return -1
}
