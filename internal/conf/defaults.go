// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.log.enabled", false)
	viper.SetDefault("main.log.path", "varta.log")

	viper.SetDefault("capture.source", "")
	viper.SetDefault("capture.duration", 300)
	viper.SetDefault("capture.output", "samples")

	viper.SetDefault("label.input", "samples")
	viper.SetDefault("label.playback", true)

	viper.SetDefault("training.data", "samples")
	viper.SetDefault("training.labels", "samples/labels.csv")
	viper.SetDefault("training.output", "output")
	viper.SetDefault("training.epochs", 100)
	viper.SetDefault("training.batchsize", 32)
	viper.SetDefault("training.learningrate", 0.001)
	viper.SetDefault("training.augment", false)
	viper.SetDefault("training.seed", 42)

	viper.SetDefault("export.model", "output/checkpoints/best.gob")
	viper.SetDefault("export.output", "models")
	viper.SetDefault("export.header", false)
	viper.SetDefault("export.quantize", true)
	viper.SetDefault("export.calibration", "")
	viper.SetDefault("export.arrayname", "drone_detector_vqm")
}
