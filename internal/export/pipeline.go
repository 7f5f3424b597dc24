package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/varta-systems/varta-go/internal/nn"
)

// Output filenames inside the export directory.
const (
	ArtifactFile = "drone_detector.vqm"
	HeaderFile   = "model_data.h"
)

// Options configures one export run.
type Options struct {
	ModelPath   string      // trained model checkpoint to export
	OutputDir   string      // destination for the artifact and header
	Quantize    bool        // false keeps float32 weights
	Header      bool        // also emit the C byte array header
	Calibration Calibration // activation range source, required when quantizing
	ArrayName   string      // identifier of the generated C array
}

// Run loads the trained model, folds and serializes it, verifies the written
// bytes and optionally emits the C header. It returns the artifact path.
func Run(opts Options) (string, error) {
	model, err := nn.LoadModel(opts.ModelPath)
	if err != nil {
		return "", fmt.Errorf("loading model %s: %w", opts.ModelPath, err)
	}
	slog.Info("model loaded", "path", opts.ModelPath, "parameters", model.NumParams())

	fm, err := Fold(model)
	if err != nil {
		return "", fmt.Errorf("folding batch norm: %w", err)
	}

	var actScales []float32
	if opts.Quantize {
		if opts.Calibration == nil {
			return "", fmt.Errorf("quantization requires a calibration source")
		}
		actScales = ActivationScales(fm, opts.Calibration)
		slog.Debug("activation scales computed", "stages", len(actScales))
	}

	artifact := BuildArtifact(fm, actScales, opts.Quantize)

	var buf bytes.Buffer
	if err := artifact.Encode(&buf); err != nil {
		return "", fmt.Errorf("encoding artifact: %w", err)
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	artifactPath := filepath.Join(opts.OutputDir, ArtifactFile)
	if err := os.WriteFile(artifactPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	slog.Info("artifact written", "path", artifactPath,
		"size_kb", fmt.Sprintf("%.1f", float64(buf.Len())/1024),
		"quantized", opts.Quantize)

	// Verify what actually landed on disk, not the in-memory buffer.
	raw, err := os.ReadFile(artifactPath)
	if err != nil {
		return "", fmt.Errorf("re-reading artifact: %w", err)
	}
	if err := Verify(raw); err != nil {
		return "", fmt.Errorf("artifact verification failed: %w", err)
	}
	slog.Info("artifact verified", "path", artifactPath)

	if opts.Header {
		header := GenerateHeader(raw, ArtifactFile, opts.ArrayName)
		headerPath := filepath.Join(opts.OutputDir, HeaderFile)
		if err := os.WriteFile(headerPath, []byte(header), 0o644); err != nil {
			return "", fmt.Errorf("writing header: %w", err)
		}
		slog.Info("header written", "path", headerPath, "array", opts.ArrayName)
	}

	return artifactPath, nil
}
