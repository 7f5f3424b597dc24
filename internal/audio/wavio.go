package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/varta-systems/varta-go/internal/conf"
)

// SaveWaveform writes the samples as a 16-bit PCM mono WAV file at the
// configured sample rate, creating parent directories as needed.
func SaveWaveform(filePath string, samples []float64) error {
	if err := os.MkdirAll(filepath.Dir(filePath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	outFile, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer outFile.Close()

	enc := wav.NewEncoder(outFile, conf.SampleRate, conf.BitDepth, conf.NumChannels, 1)

	intSamples := make([]int, len(samples))
	for i, v := range samples {
		s := int(v * 32767.0)
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		intSamples[i] = s
	}

	buf := &audio.IntBuffer{
		Data:   intSamples,
		Format: &audio.Format{SampleRate: conf.SampleRate, NumChannels: conf.NumChannels},
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write to WAV encoder: %w", err)
	}

	return enc.Close()
}

// LoadWaveform reads a WAV file and returns exactly conf.SegmentSamples mono
// samples at conf.SampleRate: multi-channel input is mixed down, foreign
// sample rates are resampled, and the result is zero padded or truncated to
// the fixed segment length.
func LoadWaveform(filePath string) ([]float64, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.New("invalid WAV file format")
	}

	divisor, err := sampleDivisor(int(decoder.BitDepth))
	if err != nil {
		return nil, err
	}
	numChans := int(decoder.NumChans)
	if numChans != 1 && numChans != 2 {
		return nil, fmt.Errorf("unsupported number of channels: %d", numChans)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode PCM data: %w", err)
	}

	// Mix down to mono while normalizing to [-1, 1].
	frames := len(buf.Data) / numChans
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < numChans; ch++ {
			sum += float64(buf.Data[i*numChans+ch]) / divisor
		}
		samples[i] = sum / float64(numChans)
	}

	if int(decoder.SampleRate) != conf.SampleRate {
		samples, err = Resample(samples, int(decoder.SampleRate), conf.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("failed to resample from %d Hz: %w", decoder.SampleRate, err)
		}
	}

	return FixLength(samples, conf.SegmentSamples), nil
}
