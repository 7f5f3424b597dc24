// Package labeler implements the interactive relabeling session over a
// directory of captured segments and their manifest.
package labeler

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/varta-systems/varta-go/internal/audio"
	"github.com/varta-systems/varta-go/internal/conf"
	"github.com/varta-systems/varta-go/internal/dataset"
)

// Player plays one waveform and blocks until it finishes. audio.Player
// satisfies this; tests substitute a recorder.
type Player interface {
	Play(samples []float64) error
}

// Session drives one labeling run over Dir. Player may be nil, in which case
// clips are not played and the waveform rendering is the only preview.
type Session struct {
	Dir          string
	ManifestPath string
	Player       Player
	In           io.Reader
	Out          io.Writer
}

// ScanSegments returns the canonical WAV filenames under dir in sorted order.
func ScanSegments(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.wav"))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	sort.Strings(names)
	return names, nil
}

// Run prompts for a label for every segment missing from the manifest. The
// manifest is rewritten on quit and at completion; skipped files stay
// unlabeled.
func (s *Session) Run() error {
	manifest, err := s.loadManifest()
	if err != nil {
		return err
	}

	files, err := ScanSegments(s.Dir)
	if err != nil {
		return err
	}

	var unlabeled []string
	for _, f := range files {
		if !manifest.Has(f) {
			unlabeled = append(unlabeled, f)
		}
	}

	fmt.Fprintf(s.Out, "Loaded %d existing labels\n", len(manifest.Entries))
	fmt.Fprintf(s.Out, "Found %d audio files, %d unlabeled\n\n", len(files), len(unlabeled))

	if len(unlabeled) == 0 {
		fmt.Fprintln(s.Out, "All files are already labeled.")
		return nil
	}

	fmt.Fprintln(s.Out, "Commands: 1=drone  0=no_drone  r=replay  s=skip  q=quit and save")

	reader := bufio.NewReader(s.In)
	labeled := 0

	for i, name := range unlabeled {
		fmt.Fprintf(s.Out, "\n[%d/%d] %s\n", i+1, len(unlabeled), name)

		samples, err := audio.LoadWaveform(filepath.Join(s.Dir, name))
		if err != nil {
			slog.Warn("could not read segment, skipping", "file", name, "error", err)
			continue
		}

		fmt.Fprintf(s.Out, "  Waveform: %s\n", RenderWaveform(samples))
		s.play(name, samples)

		quit, wrote := s.promptOne(reader, manifest, name, samples)
		if wrote {
			labeled++
		}
		if quit {
			break
		}
	}

	if err := manifest.Save(s.ManifestPath); err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}
	fmt.Fprintf(s.Out, "\nSaved %d labels to %s (%d labeled this session)\n",
		len(manifest.Entries), s.ManifestPath, labeled)
	return nil
}

// promptOne loops until the segment is labeled, skipped, or the session is
// quit. It reports whether the session should end and whether a label was
// written.
func (s *Session) promptOne(reader *bufio.Reader, manifest *dataset.Manifest, name string, samples []float64) (quit, wrote bool) {
	for {
		fmt.Fprint(s.Out, "  Label (1=drone, 0=no_drone, r=replay, s=skip, q=quit): ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			// Input exhausted; treat as quit so the manifest still gets saved.
			return true, false
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "1", "d", "drone":
			manifest.SetLabel(name, 1)
			fmt.Fprintf(s.Out, "  -> labeled %s\n", conf.ClassNames[1])
			return false, true
		case "0", "n", "no", "nodrone":
			manifest.SetLabel(name, 0)
			fmt.Fprintf(s.Out, "  -> labeled %s\n", conf.ClassNames[0])
			return false, true
		case "r":
			s.play(name, samples)
		case "s":
			fmt.Fprintln(s.Out, "  -> skipped")
			return false, false
		case "q":
			return true, false
		default:
			fmt.Fprintln(s.Out, "  Invalid input. Use 1/d, 0/n, r, s, or q")
		}
	}
}

func (s *Session) play(name string, samples []float64) {
	if s.Player == nil {
		return
	}
	if err := s.Player.Play(samples); err != nil {
		slog.Warn("playback failed", "file", name, "error", err)
	}
}

func (s *Session) loadManifest() (*dataset.Manifest, error) {
	manifest, err := dataset.LoadManifest(s.ManifestPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return dataset.NewManifest(), nil
		}
		return nil, err
	}
	return manifest, nil
}

// Stats prints the label distribution over dir's segments.
func Stats(out io.Writer, dir, manifestPath string) error {
	manifest, err := dataset.LoadManifest(manifestPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		manifest = dataset.NewManifest()
	}
	files, err := ScanSegments(dir)
	if err != nil {
		return err
	}

	noDrone, drone := manifest.Counts()
	unlabeled := len(files) - len(manifest.Entries)
	if unlabeled < 0 {
		unlabeled = 0
	}

	fmt.Fprintln(out, "Dataset statistics")
	fmt.Fprintf(out, "  Total audio files: %d\n", len(files))
	fmt.Fprintf(out, "  Labeled:           %d\n", len(manifest.Entries))
	fmt.Fprintf(out, "    %-16s %d\n", conf.ClassNames[1]+":", drone)
	fmt.Fprintf(out, "    %-16s %d\n", conf.ClassNames[0]+":", noDrone)
	fmt.Fprintf(out, "  Unlabeled:         %d\n", unlabeled)
	return nil
}
