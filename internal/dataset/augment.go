package dataset

import (
	"math"
	"math/rand"

	"github.com/varta-systems/varta-go/internal/audio"
	"github.com/varta-systems/varta-go/internal/conf"
)

const (
	maxShiftSamples = conf.SampleRate / 10 // ±10% of one second
	noiseStdDev     = 0.005
	maxPitchSteps   = 2.0 // semitones
	minStretchRate  = 0.9
	maxStretchRate  = 1.1
)

// Augment derives four waveforms from one source: a circular time shift,
// added Gaussian noise, a small pitch shift and a small time stretch. Each
// derived waveform has the fixed segment length and inherits the source
// label.
func Augment(w []float64, rng *rand.Rand) [][]float64 {
	return [][]float64{
		timeShift(w, rng),
		addNoise(w, rng),
		pitchShift(w, rng),
		timeStretch(w, rng),
	}
}

// timeShift rolls the waveform circularly by a random offset in
// [-maxShiftSamples, maxShiftSamples].
func timeShift(w []float64, rng *rand.Rand) []float64 {
	shift := rng.Intn(2*maxShiftSamples+1) - maxShiftSamples
	n := len(w)
	out := make([]float64, n)
	for i := range w {
		out[((i+shift)%n+n)%n] = w[i]
	}
	return out
}

// addNoise adds zero-mean Gaussian noise with a fixed small deviation.
func addNoise(w []float64, rng *rand.Rand) []float64 {
	out := make([]float64, len(w))
	for i, v := range w {
		out[i] = v + rng.NormFloat64()*noiseStdDev
	}
	return out
}

// pitchShift shifts pitch by a random amount in ±maxPitchSteps semitones by
// resampling, then restores the fixed length. Resampling changes duration
// along with pitch; the tail the rate change exposes is zero padded away.
func pitchShift(w []float64, rng *rand.Rand) []float64 {
	steps := rng.Float64()*2*maxPitchSteps - maxPitchSteps
	factor := math.Pow(2, steps/12.0)
	// Playing the clip factor times faster raises pitch by the same factor.
	resampled, err := audio.Resample(w, conf.SampleRate, int(float64(conf.SampleRate)/factor))
	if err != nil {
		return audio.FixLength(w, len(w))
	}
	return audio.FixLength(resampled, len(w))
}

// timeStretch changes playback rate by a random factor in
// [minStretchRate, maxStretchRate], then truncates or zero pads back to the
// fixed length. This is plain resampling, not a phase-vocoder stretch, so
// the variant's pitch moves with the rate; the offsets are small enough that
// the result still reads as a tempo change.
func timeStretch(w []float64, rng *rand.Rand) []float64 {
	rate := minStretchRate + rng.Float64()*(maxStretchRate-minStretchRate)
	resampled, err := audio.Resample(w, conf.SampleRate, int(float64(conf.SampleRate)/rate))
	if err != nil {
		return audio.FixLength(w, len(w))
	}
	return audio.FixLength(resampled, len(w))
}
