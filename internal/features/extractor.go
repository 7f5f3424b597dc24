// Package features converts fixed-duration waveforms into the normalized
// mel spectrogram tensors the model consumes.
//
// The parameters in internal/conf are frozen: training and on-device
// inference must compute identical spectrograms, so any change here
// invalidates previously trained weights.
package features

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/varta-systems/varta-go/internal/conf"
)

const (
	// amin floors power values before the log, matching the reference
	// pipeline's dB conversion.
	amin = 1e-10
	// normEpsilon guards the min-max denominator on zero-range input.
	normEpsilon = 1e-8
)

// TensorSize is the element count of one feature tensor, laid out row-major
// as (time frame, mel bin) with an implicit trailing channel dimension of 1.
const TensorSize = conf.TimeFrames * conf.MelBins

// Extractor computes normalized log-mel spectrogram tensors. It precomputes
// the analysis window and mel filterbank once and is safe for reuse across
// samples (not across goroutines: it reuses scratch buffers).
type Extractor struct {
	window  []float64
	filters [][]filterWeight
	frame   []complex128 // scratch
	power   []float64    // scratch, NFFT/2+1 bins
}

type filterWeight struct {
	bin    int
	weight float64
}

// NewExtractor builds an Extractor with the fixed pipeline parameters.
func NewExtractor() *Extractor {
	return &Extractor{
		window:  window.Hann(conf.NFFT),
		filters: melFilterbank(),
		frame:   make([]complex128, conf.NFFT),
		power:   make([]float64, conf.NFFT/2+1),
	}
}

// NumFrames returns the spectrogram frame count for a waveform of n samples
// before padding or truncation of the time axis.
func NumFrames(n int) int {
	if n < conf.NFFT {
		return 0
	}
	return 1 + (n-conf.NFFT)/conf.HopLength
}

// Extract converts a waveform of exactly conf.SegmentSamples samples into a
// feature tensor of TensorSize values in [0, 1]: mel power spectrogram,
// power-to-dB referenced to the spectrogram maximum, min-max normalization
// with an epsilon-guarded denominator, and a time axis padded or truncated to
// conf.TimeFrames frames.
func (e *Extractor) Extract(samples []float64) ([]float64, error) {
	if len(samples) != conf.SegmentSamples {
		return nil, fmt.Errorf("waveform must be exactly %d samples, got %d",
			conf.SegmentSamples, len(samples))
	}

	frames := NumFrames(len(samples))
	mel := make([][]float64, frames)

	maxPower := 0.0
	for t := 0; t < frames; t++ {
		start := t * conf.HopLength
		for j := 0; j < conf.NFFT; j++ {
			e.frame[j] = complex(samples[start+j]*e.window[j], 0)
		}
		spectrum := fft.FFT(e.frame)
		for k := 0; k <= conf.NFFT/2; k++ {
			re, im := real(spectrum[k]), imag(spectrum[k])
			e.power[k] = re*re + im*im
		}

		mel[t] = make([]float64, conf.MelBins)
		for m, filter := range e.filters {
			var sum float64
			for _, fw := range filter {
				sum += fw.weight * e.power[fw.bin]
			}
			mel[t][m] = sum
			if sum > maxPower {
				maxPower = sum
			}
		}
	}

	// Power to dB referenced to the spectrogram's own maximum.
	logRef := math.Log10(math.Max(maxPower, amin))
	dbMin, dbMax := math.Inf(1), math.Inf(-1)
	for t := range mel {
		for m := range mel[t] {
			db := 10 * (math.Log10(math.Max(mel[t][m], amin)) - logRef)
			mel[t][m] = db
			if db < dbMin {
				dbMin = db
			}
			if db > dbMax {
				dbMax = db
			}
		}
	}

	// Min-max normalize to [0, 1]; the epsilon keeps silent input (zero
	// dynamic range) finite and exactly zero valued.
	out := make([]float64, TensorSize)
	denom := dbMax - dbMin + normEpsilon
	limit := frames
	if limit > conf.TimeFrames {
		limit = conf.TimeFrames
	}
	for t := 0; t < limit; t++ {
		for m := 0; m < conf.MelBins; m++ {
			out[t*conf.MelBins+m] = (mel[t][m] - dbMin) / denom
		}
	}
	// Frames beyond the spectrogram length stay zero (time axis padding).

	return out, nil
}
