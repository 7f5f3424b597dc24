// conf/config.go settings loading and validation
package conf

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Settings holds all user configurable options, populated from the optional
// config.yaml and overridden by command line flags.
type Settings struct {
	Debug bool // true to enable debug logging

	Main struct {
		Log struct {
			Enabled bool   // true to write a structured JSON log file
			Path    string // path of the log file
		}
	}

	Capture struct {
		Source   string // capture device name or ID substring, empty for system default
		Duration int    // recording duration in seconds
		Output   string // directory segments and the manifest are written to
	}

	Label struct {
		Input    string // directory containing captured segments
		Playback bool   // false disables audio playback during labeling
	}

	Training struct {
		Data         string  // directory containing labeled waveforms
		Labels       string  // path to the label manifest CSV
		Output       string  // directory for checkpoints, the final model and reports
		Epochs       int     // maximum number of training epochs
		BatchSize    int     // minibatch size
		LearningRate float64 // initial Adam learning rate
		Augment      bool    // true to expand the dataset with derived waveforms
		Seed         int64   // seed for splits, shuffling and weight init
	}

	Export struct {
		Model       string // path to the trained model file
		Output      string // directory the artifact and header are written to
		Header      bool   // true to also emit the C byte array header
		Quantize    bool   // false exports float32 weights without quantization
		Calibration string // directory of calibration waveforms, empty for synthetic inputs
		ArrayName   string // identifier of the generated byte array
	}
}

// Load reads the configuration file and returns the populated settings.
func Load() (*Settings, error) {
	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/varta")

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file is fine, defaults and flags cover everything.
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// ValidateSettings checks settings values that no flag default can make valid.
func ValidateSettings(s *Settings) error {
	if s.Capture.Duration <= 0 {
		return fmt.Errorf("capture duration must be positive, got %d", s.Capture.Duration)
	}
	if s.Training.Epochs <= 0 {
		return fmt.Errorf("training epochs must be positive, got %d", s.Training.Epochs)
	}
	if s.Training.BatchSize <= 0 {
		return fmt.Errorf("training batch size must be positive, got %d", s.Training.BatchSize)
	}
	if s.Training.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", s.Training.LearningRate)
	}
	return nil
}
