package export

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varta-systems/varta-go/internal/audio"
	"github.com/varta-systems/varta-go/internal/conf"
	"github.com/varta-systems/varta-go/internal/features"
)

func TestSyntheticCalibrationShapeAndRange(t *testing.T) {
	cal := NewSyntheticCalibration(1)
	tensors := cal.Tensors(5)
	require.Len(t, tensors, 5)
	for _, tensor := range tensors {
		require.Len(t, tensor, features.TensorSize)
		for _, v := range tensor {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.Less(t, v, 1.0)
		}
	}
}

func TestDatasetCalibrationSamplesWithReplacement(t *testing.T) {
	feats := [][]float64{
		make([]float64, features.TensorSize),
		make([]float64, features.TensorSize),
	}
	cal, err := NewDatasetCalibration(feats, 3)
	require.NoError(t, err)

	tensors := cal.Tensors(10)
	require.Len(t, tensors, 10, "small sets must still yield the requested count")

	_, err = NewDatasetCalibration(nil, 3)
	assert.Error(t, err)
}

func TestLoadCalibrationDir(t *testing.T) {
	dir := t.TempDir()
	for i, name := range []string{"a.wav", "b.wav"} {
		samples := make([]float64, conf.SegmentSamples)
		for j := range samples {
			samples[j] = 0.4 * math.Sin(2*math.Pi*float64(300+i*150)*float64(j)/float64(conf.SampleRate))
		}
		require.NoError(t, audio.SaveWaveform(filepath.Join(dir, name), samples))
	}

	feats, err := LoadCalibrationDir(dir)
	require.NoError(t, err)
	require.Len(t, feats, 2)
	for _, f := range feats {
		assert.Len(t, f, features.TensorSize)
	}
}

func TestLoadCalibrationDirEmpty(t *testing.T) {
	_, err := LoadCalibrationDir(t.TempDir())
	assert.Error(t, err)
}
