// Package collect implements live capture with interactive segment marking.
package collect

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/varta-systems/varta-go/internal/audio"
	"github.com/varta-systems/varta-go/internal/conf"
	"github.com/varta-systems/varta-go/internal/dataset"
	"github.com/varta-systems/varta-go/internal/hotkey"
)

func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Record labeled audio segments from a capture device",
		Long: "Records fixed-length segments from the selected capture device. " +
			"Press space to mark the segment being recorded as drone, q to stop early.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(settings)
		},
	}

	cmd.Flags().StringVarP(&settings.Capture.Source, "source", "s", settings.Capture.Source,
		"capture device name or ID substring, empty for system default")
	cmd.Flags().IntVar(&settings.Capture.Duration, "duration", settings.Capture.Duration,
		"recording duration in seconds")
	cmd.Flags().StringVarP(&settings.Capture.Output, "output", "o", settings.Capture.Output,
		"directory segments and the label manifest are written to")

	return cmd
}

func runCollect(settings *conf.Settings) error {
	outputDir := settings.Capture.Output
	manifestPath := filepath.Join(outputDir, conf.ManifestFile)

	manifest, err := loadOrCreateManifest(manifestPath)
	if err != nil {
		return err
	}

	var manifestMu sync.Mutex
	writer := audio.NewSegmentWriter(outputDir)
	writer.OnWritten = func(filename string, label int) {
		manifestMu.Lock()
		manifest.Append(filename, label)
		manifestMu.Unlock()
		slog.Debug("segment stored", "file", filename, "label", conf.ClassNames[label])
	}

	segmenter := audio.NewSegmenter(conf.SegmentSamples, writer)

	quit := make(chan struct{})
	var quitOnce sync.Once
	stop := func() { quitOnce.Do(func() { close(quit) }) }

	// Ctrl-C stops the run cleanly; the manifest still gets flushed.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		stop()
	}()

	if hotkey.Available() {
		restore, err := hotkey.Listen(segmenter.Mark, stop)
		if err != nil {
			slog.Warn("hotkey setup failed, segments will be unmarked", "error", err)
		} else {
			defer restore()
			fmt.Println("Recording. Press space to mark a drone segment, q to stop.")
		}
	} else {
		slog.Warn("stdin is not a terminal, interactive marking disabled; all segments will be labeled no_drone")
	}

	opts := audio.CaptureOptions{
		Source:   settings.Capture.Source,
		Duration: time.Duration(settings.Capture.Duration) * time.Second,
		Debug:    settings.Debug,
	}
	captureErr := audio.Capture(opts, segmenter, quit)

	// Flush whatever was captured even when the device failed mid-run.
	manifestMu.Lock()
	saveErr := manifest.Save(manifestPath)
	noDrone, drone := manifest.Counts()
	manifestMu.Unlock()

	if captureErr != nil {
		return captureErr
	}
	if saveErr != nil {
		return fmt.Errorf("saving manifest: %w", saveErr)
	}

	slog.Info("capture finished",
		"segments", segmenter.Count(),
		"drone", drone,
		"no_drone", noDrone,
		"manifest", manifestPath)
	return nil
}

func loadOrCreateManifest(path string) (*dataset.Manifest, error) {
	manifest, err := dataset.LoadManifest(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return dataset.NewManifest(), nil
		}
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	slog.Info("resuming existing manifest", "path", path, "entries", len(manifest.Entries))
	return manifest, nil
}
