package features

import (
	"math"

	"github.com/varta-systems/varta-go/internal/conf"
)

// hzToMel converts a frequency in Hz to the mel scale.
func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// melToHz converts a mel value back to Hz.
func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// melFilterbank builds conf.MelBins triangular filters spanning
// [conf.FreqMin, conf.FreqMax], each filter stored as its non-zero FFT bin
// weights.
func melFilterbank() [][]filterWeight {
	melMin := hzToMel(conf.FreqMin)
	melMax := hzToMel(conf.FreqMax)

	// Band edges: MelBins filters need MelBins+2 points.
	edges := make([]float64, conf.MelBins+2)
	for i := range edges {
		m := melMin + (melMax-melMin)*float64(i)/float64(conf.MelBins+1)
		edges[i] = melToHz(m)
	}

	binHz := float64(conf.SampleRate) / float64(conf.NFFT)
	filters := make([][]filterWeight, conf.MelBins)

	for m := 0; m < conf.MelBins; m++ {
		lower, center, upper := edges[m], edges[m+1], edges[m+2]
		var filter []filterWeight
		for k := 0; k <= conf.NFFT/2; k++ {
			f := float64(k) * binHz
			var w float64
			switch {
			case f <= lower || f >= upper:
				continue
			case f <= center:
				w = (f - lower) / (center - lower)
			default:
				w = (upper - f) / (upper - center)
			}
			if w > 0 {
				filter = append(filter, filterWeight{bin: k, weight: w})
			}
		}
		filters[m] = filter
	}

	return filters
}
