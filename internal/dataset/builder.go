package dataset

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/varta-systems/varta-go/internal/audio"
	"github.com/varta-systems/varta-go/internal/features"
)

// Dataset holds aligned feature tensors and integer labels. It is built fresh
// per training run and never mutated after splitting.
type Dataset struct {
	X [][]float64 // each features.TensorSize values
	Y []int
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.X)
}

// Subset returns a new Dataset containing the rows at the given indices. The
// feature slices are shared, not copied.
func (d *Dataset) Subset(indices []int) *Dataset {
	sub := &Dataset{
		X: make([][]float64, len(indices)),
		Y: make([]int, len(indices)),
	}
	for i, idx := range indices {
		sub.X[i] = d.X[idx]
		sub.Y[i] = d.Y[idx]
	}
	return sub
}

// BuildOptions configures dataset construction.
type BuildOptions struct {
	Augment bool  // derive four extra waveforms per source sample
	Seed    int64 // seed for augmentation randomness
}

// Build loads every manifest entry from dir in manifest order, extracts
// features and returns the aligned arrays. Missing or unreadable files and
// failed extractions are logged and skipped; an entirely empty result is an
// error because training cannot proceed.
func Build(m *Manifest, dir string, opts BuildOptions) (*Dataset, error) {
	extractor := features.NewExtractor()
	rng := rand.New(rand.NewSource(opts.Seed))
	ds := &Dataset{}

	skipped := 0
	for _, entry := range m.Entries {
		path := filepath.Join(dir, entry.Filename)
		if _, err := os.Stat(path); err != nil {
			slog.Warn("manifest references missing file, skipping", "filename", entry.Filename)
			skipped++
			continue
		}

		wave, err := audio.LoadWaveform(path)
		if err != nil {
			slog.Warn("failed to load waveform, skipping", "filename", entry.Filename, "error", err)
			skipped++
			continue
		}

		waves := [][]float64{wave}
		if opts.Augment {
			waves = append(waves, Augment(wave, rng)...)
		}

		for _, w := range waves {
			feat, err := extractor.Extract(w)
			if err != nil {
				slog.Warn("feature extraction failed, skipping", "filename", entry.Filename, "error", err)
				continue
			}
			ds.X = append(ds.X, feat)
			ds.Y = append(ds.Y, entry.Label)
		}
	}

	if ds.Len() == 0 {
		return nil, fmt.Errorf("no valid samples found in %s (%d entries skipped)", dir, skipped)
	}

	if skipped > 0 {
		slog.Warn("some manifest entries were skipped", "skipped", skipped, "loaded", ds.Len())
	}
	slog.Info("dataset built", "samples", ds.Len(), "augmented", opts.Augment)

	return ds, nil
}
