package features

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varta-systems/varta-go/internal/conf"
)

func TestExtractRejectsWrongLength(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract(make([]float64, conf.SegmentSamples-1))
	assert.Error(t, err)
	_, err = e.Extract(make([]float64, conf.SegmentSamples+1))
	assert.Error(t, err)
}

func TestExtractShapeAndBounds(t *testing.T) {
	e := NewExtractor()
	rng := rand.New(rand.NewSource(1))

	samples := make([]float64, conf.SegmentSamples)
	for i := range samples {
		samples[i] = rng.Float64()*2 - 1
	}

	out, err := e.Extract(samples)
	require.NoError(t, err)
	require.Len(t, out, TensorSize)

	for i, v := range out {
		require.False(t, math.IsNaN(v), "NaN at %d", i)
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0)
	}
}

func TestExtractSilenceIsAllZero(t *testing.T) {
	e := NewExtractor()
	out, err := e.Extract(make([]float64, conf.SegmentSamples))
	require.NoError(t, err)

	for i, v := range out {
		require.Zero(t, v, "silent input must produce an all-zero tensor, got %v at %d", v, i)
	}
}

func TestExtractToneConcentratesEnergy(t *testing.T) {
	e := NewExtractor()

	// 440 Hz tone. The loudest cell normalizes to ~1 and the energy must sit
	// in the low mel bins.
	samples := make([]float64, conf.SegmentSamples)
	for i := range samples {
		samples[i] = 0.8 * math.Sin(2*math.Pi*440*float64(i)/float64(conf.SampleRate))
	}

	out, err := e.Extract(samples)
	require.NoError(t, err)

	var maxV float64
	maxBin := 0
	for i, v := range out {
		if v > maxV {
			maxV = v
			maxBin = i % conf.MelBins
		}
	}
	assert.Greater(t, maxV, 0.99, "loudest cell must normalize to ~1")
	assert.Less(t, maxBin, conf.MelBins/4, "440 Hz belongs in the low mel bins")
}

func TestExtractIsDeterministic(t *testing.T) {
	e := NewExtractor()
	rng := rand.New(rand.NewSource(7))
	samples := make([]float64, conf.SegmentSamples)
	for i := range samples {
		samples[i] = rng.Float64()*2 - 1
	}

	a, err := e.Extract(samples)
	require.NoError(t, err)
	b, err := e.Extract(samples)
	require.NoError(t, err)
	assert.Equal(t, a, b, "extractor scratch reuse must not leak between calls")
}

func TestNumFrames(t *testing.T) {
	assert.Equal(t, 0, NumFrames(conf.NFFT-1))
	assert.Equal(t, 1, NumFrames(conf.NFFT))
	assert.Equal(t, 2, NumFrames(conf.NFFT+conf.HopLength))
	// One full segment yields more frames than the tensor keeps; the time
	// axis truncates to conf.TimeFrames.
	assert.Equal(t, 83, NumFrames(conf.SegmentSamples))
}

func TestMelScaleRoundTrip(t *testing.T) {
	for _, hz := range []float64{conf.FreqMin, 440, 1000, 4000, conf.FreqMax} {
		assert.InDelta(t, hz, melToHz(hzToMel(hz)), 1e-6)
	}
	// HTK reference point: 1000 Hz is about 1000 mel.
	assert.InDelta(t, 999.99, hzToMel(1000), 1.0)
}

func TestMelFilterbankCoversBand(t *testing.T) {
	filters := melFilterbank()
	require.Len(t, filters, conf.MelBins)

	// The narrowest low-frequency triangles may straddle no FFT bin at this
	// resolution; the bulk of the bank must still be populated.
	populated := 0
	prevFirst := -1
	for _, filter := range filters {
		if len(filter) == 0 {
			continue
		}
		populated++
		for _, fw := range filter {
			assert.Greater(t, fw.weight, 0.0)
			assert.LessOrEqual(t, fw.weight, 1.0)
			assert.LessOrEqual(t, fw.bin, conf.NFFT/2)
		}
		// Filters march upward in frequency.
		assert.GreaterOrEqual(t, filter[0].bin, prevFirst)
		prevFirst = filter[0].bin
	}
	assert.GreaterOrEqual(t, populated, conf.MelBins*9/10)
}
