package export

import (
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"

	"github.com/varta-systems/varta-go/internal/audio"
	"github.com/varta-systems/varta-go/internal/features"
)

// calibrationTensors is how many representative inputs are fed through the
// network when estimating activation ranges.
const calibrationTensors = 100

// Calibration supplies representative model inputs for activation range
// estimation. Each tensor is one flattened feature matrix of
// features.TensorSize values in [0, 1].
type Calibration interface {
	Tensors(n int) [][]float64
}

// DatasetCalibration draws calibration inputs from real extracted features.
type DatasetCalibration struct {
	feats [][]float64
	rng   *rand.Rand
}

// NewDatasetCalibration samples from feats with the given seed. Sampling is
// with replacement so small datasets still yield the requested count.
func NewDatasetCalibration(feats [][]float64, seed int64) (*DatasetCalibration, error) {
	if len(feats) == 0 {
		return nil, fmt.Errorf("calibration feature set is empty")
	}
	return &DatasetCalibration{feats: feats, rng: rand.New(rand.NewSource(seed))}, nil
}

func (c *DatasetCalibration) Tensors(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = c.feats[c.rng.Intn(len(c.feats))]
	}
	return out
}

// LoadCalibrationDir extracts features from every WAV under dir. Labels are
// irrelevant for range estimation, so no manifest is consulted; unreadable
// files are logged and skipped.
func LoadCalibrationDir(dir string) ([][]float64, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.wav"))
	if err != nil {
		return nil, fmt.Errorf("scanning calibration directory: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no WAV files in calibration directory %s", dir)
	}

	extractor := features.NewExtractor()
	feats := make([][]float64, 0, len(matches))
	for _, path := range matches {
		samples, err := audio.LoadWaveform(path)
		if err != nil {
			slog.Warn("skipping unreadable calibration file", "file", path, "error", err)
			continue
		}
		t, err := extractor.Extract(samples)
		if err != nil {
			slog.Warn("skipping calibration file", "file", path, "error", err)
			continue
		}
		feats = append(feats, t)
	}
	if len(feats) == 0 {
		return nil, fmt.Errorf("no usable calibration files in %s", dir)
	}
	return feats, nil
}

// SyntheticCalibration draws uniform-random tensors of the model input shape.
// Random noise is a poor stand-in for real spectrograms; activation scales
// derived from it are approximate, so construction logs the degradation.
type SyntheticCalibration struct {
	rng *rand.Rand
}

func NewSyntheticCalibration(seed int64) *SyntheticCalibration {
	slog.Warn("no calibration dataset available, using uniform-random tensors; activation scales will be approximate")
	return &SyntheticCalibration{rng: rand.New(rand.NewSource(seed))}
}

func (c *SyntheticCalibration) Tensors(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		t := make([]float64, features.TensorSize)
		for j := range t {
			t[j] = c.rng.Float64()
		}
		out[i] = t
	}
	return out
}
