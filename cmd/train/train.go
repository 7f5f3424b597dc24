// Package train fits the classifier on the labeled dataset.
package train

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/varta-systems/varta-go/internal/conf"
	"github.com/varta-systems/varta-go/internal/dataset"
	"github.com/varta-systems/varta-go/internal/training"
)

func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the drone classifier on labeled segments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(settings)
		},
	}

	cmd.Flags().StringVar(&settings.Training.Data, "data", settings.Training.Data,
		"directory containing labeled waveforms")
	cmd.Flags().StringVar(&settings.Training.Labels, "labels", settings.Training.Labels,
		"path to the label manifest CSV")
	cmd.Flags().StringVarP(&settings.Training.Output, "output", "o", settings.Training.Output,
		"directory for checkpoints and the final model")
	cmd.Flags().IntVar(&settings.Training.Epochs, "epochs", settings.Training.Epochs,
		"maximum number of training epochs")
	cmd.Flags().IntVar(&settings.Training.BatchSize, "batchsize", settings.Training.BatchSize,
		"minibatch size")
	cmd.Flags().Float64Var(&settings.Training.LearningRate, "learningrate", settings.Training.LearningRate,
		"initial Adam learning rate")
	cmd.Flags().BoolVar(&settings.Training.Augment, "augment", settings.Training.Augment,
		"expand the dataset with shifted, noised and stretched variants")
	cmd.Flags().Int64Var(&settings.Training.Seed, "seed", settings.Training.Seed,
		"seed for splits, shuffling and weight init")

	return cmd
}

func runTrain(settings *conf.Settings) error {
	manifest, err := dataset.LoadManifest(settings.Training.Labels)
	if err != nil {
		return fmt.Errorf("loading labels: %w", err)
	}

	ds, err := dataset.Build(manifest, settings.Training.Data, dataset.BuildOptions{
		Augment: settings.Training.Augment,
		Seed:    settings.Training.Seed,
	})
	if err != nil {
		return fmt.Errorf("building dataset: %w", err)
	}

	cfg := training.DefaultConfig()
	cfg.Epochs = settings.Training.Epochs
	cfg.BatchSize = settings.Training.BatchSize
	cfg.LearningRate = settings.Training.LearningRate
	cfg.Seed = settings.Training.Seed
	cfg.OutputDir = settings.Training.Output

	result, err := training.Train(ds, cfg)
	if err != nil {
		return err
	}

	fmt.Println(result.Test.Report())
	fmt.Printf("Best checkpoint: %s\n", result.CheckpointPath)
	fmt.Printf("Final model:     %s\n", result.FinalModelPath)
	return nil
}
