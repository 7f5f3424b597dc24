// conf/consts.go hard coded pipeline constants
package conf

const (
	SampleRate     = 44100 // Sample rate of captured and training audio
	BitDepth       = 16    // Bit depth of captured audio
	NumChannels    = 1     // Captured audio is always mono
	SegmentSeconds = 1.0   // Length of one labeled segment in seconds

	// SegmentSamples is the exact sample count of every waveform entering
	// the feature extractor. Shorter inputs are zero padded, longer inputs
	// truncated.
	SegmentSamples = int(SampleRate * SegmentSeconds)

	// Feature extraction parameters. These are frozen: changing any of them
	// invalidates every trained model, because on-device inference computes
	// the same spectrogram with the same constants.
	NFFT       = 2048
	HopLength  = 512
	MelBins    = 128
	FreqMin    = 50.0
	FreqMax    = 8000.0
	TimeFrames = 32

	NumClasses = 2 // no_drone (0) and drone (1)

	// ManifestFile is the label manifest written next to captured segments.
	ManifestFile = "labels.csv"
)

// ClassNames maps integer labels to their display names, indexed by label.
var ClassNames = [NumClasses]string{"no_drone", "drone"}
