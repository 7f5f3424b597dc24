// Package label implements offline relabeling of captured segments.
package label

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/varta-systems/varta-go/internal/audio"
	"github.com/varta-systems/varta-go/internal/conf"
	"github.com/varta-systems/varta-go/internal/labeler"
)

var statsOnly bool

func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "label",
		Short: "Review and label captured segments interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLabel(settings)
		},
	}

	cmd.Flags().StringVarP(&settings.Label.Input, "input", "i", settings.Label.Input,
		"directory containing captured segments")
	cmd.Flags().BoolVar(&settings.Label.Playback, "playback", settings.Label.Playback,
		"play each clip through the default output device")
	cmd.Flags().BoolVar(&statsOnly, "stats", false, "print label distribution and exit")

	return cmd
}

func runLabel(settings *conf.Settings) error {
	dir := settings.Label.Input
	manifestPath := filepath.Join(dir, conf.ManifestFile)

	if statsOnly {
		return labeler.Stats(os.Stdout, dir, manifestPath)
	}

	session := &labeler.Session{
		Dir:          dir,
		ManifestPath: manifestPath,
		In:           os.Stdin,
		Out:          os.Stdout,
	}

	if settings.Label.Playback {
		player, err := audio.NewPlayer()
		if err != nil {
			slog.Warn("audio playback unavailable, labeling from waveforms only", "error", err)
		} else {
			defer player.Close()
			session.Player = player
		}
	}

	return session.Run()
}
