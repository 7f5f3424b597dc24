package labeler

import "math"

// waveformColumns is the width of the terminal waveform preview.
const waveformColumns = 60

var waveformBlocks = []rune(" ▁▂▃▄▅▆▇█")

// RenderWaveform draws a peak-amplitude preview of the waveform using unicode
// block characters, one column per slice of the clip. The tallest peak fills
// the full block; silence renders as spaces.
func RenderWaveform(samples []float64) string {
	if len(samples) == 0 {
		return ""
	}

	cols := waveformColumns
	if len(samples) < cols {
		cols = len(samples)
	}
	window := len(samples) / cols

	peaks := make([]float64, cols)
	var maxPeak float64
	for i := 0; i < cols; i++ {
		start := i * window
		end := start + window
		if i == cols-1 {
			end = len(samples)
		}
		for _, v := range samples[start:end] {
			if a := math.Abs(v); a > peaks[i] {
				peaks[i] = a
			}
		}
		if peaks[i] > maxPeak {
			maxPeak = peaks[i]
		}
	}
	if maxPeak == 0 {
		maxPeak = 1
	}

	out := make([]rune, cols)
	for i, p := range peaks {
		h := int(p / maxPeak * float64(len(waveformBlocks)-1))
		out[i] = waveformBlocks[h]
	}
	return string(out)
}
