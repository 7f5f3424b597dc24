package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Capture.Duration = 300
	s.Training.Epochs = 100
	s.Training.BatchSize = 32
	s.Training.LearningRate = 0.001
	return s
}

func TestValidateSettings(t *testing.T) {
	require.NoError(t, ValidateSettings(validSettings()))

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero duration", func(s *Settings) { s.Capture.Duration = 0 }},
		{"negative epochs", func(s *Settings) { s.Training.Epochs = -1 }},
		{"zero batch size", func(s *Settings) { s.Training.BatchSize = 0 }},
		{"zero learning rate", func(s *Settings) { s.Training.LearningRate = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := validSettings()
			tc.mutate(s)
			assert.Error(t, ValidateSettings(s))
		})
	}
}

func TestPipelineConstantsAreConsistent(t *testing.T) {
	// The fixed analysis parameters must agree with each other; the model
	// topology and exported artifact shapes depend on these identities.
	assert.Equal(t, SampleRate, SegmentSamples, "segments are one second")
	assert.Equal(t, 0, NFFT%HopLength)
	assert.Less(t, float64(FreqMax), float64(SampleRate)/2, "mel band must fit under Nyquist")
	assert.Equal(t, "no_drone", ClassNames[0])
	assert.Equal(t, "drone", ClassNames[1])
}
