// Package export serializes a trained model into the deployment artifact.
package export

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/varta-systems/varta-go/internal/conf"
	"github.com/varta-systems/varta-go/internal/export"
)

func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the trained model as a quantized artifact",
		Long: "Folds batch normalization into the convolutions, quantizes weights to int8, " +
			"writes the verified artifact and optionally a C header for firmware builds.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(settings)
		},
	}

	cmd.Flags().StringVarP(&settings.Export.Model, "model", "m", settings.Export.Model,
		"path to the trained model file")
	cmd.Flags().StringVarP(&settings.Export.Output, "output", "o", settings.Export.Output,
		"directory the artifact and header are written to")
	cmd.Flags().BoolVar(&settings.Export.Quantize, "quantize", settings.Export.Quantize,
		"quantize weights to int8 (false keeps float32)")
	cmd.Flags().BoolVar(&settings.Export.Header, "header", settings.Export.Header,
		"also generate the C byte array header")
	cmd.Flags().StringVar(&settings.Export.Calibration, "calibration", settings.Export.Calibration,
		"directory of calibration waveforms, empty for synthetic inputs")
	cmd.Flags().StringVar(&settings.Export.ArrayName, "arrayname", settings.Export.ArrayName,
		"identifier of the generated C byte array")

	return cmd
}

func runExport(settings *conf.Settings) error {
	opts := export.Options{
		ModelPath: settings.Export.Model,
		OutputDir: settings.Export.Output,
		Quantize:  settings.Export.Quantize,
		Header:    settings.Export.Header,
		ArrayName: settings.Export.ArrayName,
	}

	if opts.Quantize {
		cal, err := calibrationSource(settings)
		if err != nil {
			return err
		}
		opts.Calibration = cal
	}

	path, err := export.Run(opts)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %s\n", path)
	return nil
}

// calibrationSource prefers real captured waveforms; without them activation
// ranges are estimated from synthetic noise.
func calibrationSource(settings *conf.Settings) (export.Calibration, error) {
	if dir := settings.Export.Calibration; dir != "" {
		feats, err := export.LoadCalibrationDir(dir)
		if err != nil {
			return nil, fmt.Errorf("loading calibration data: %w", err)
		}
		return export.NewDatasetCalibration(feats, settings.Training.Seed)
	}
	return export.NewSyntheticCalibration(settings.Training.Seed), nil
}
