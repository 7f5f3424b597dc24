package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varta-systems/varta-go/internal/nn"
)

func TestVerifyAcceptsFreshArtifact(t *testing.T) {
	a := quantizedArtifact(t)
	var buf bytes.Buffer
	require.NoError(t, a.Encode(&buf))

	assert.NoError(t, Verify(buf.Bytes()))
}

func TestVerifyRejectsCorruptArtifacts(t *testing.T) {
	a := quantizedArtifact(t)
	var buf bytes.Buffer
	require.NoError(t, a.Encode(&buf))
	raw := buf.Bytes()

	bad := append([]byte{}, raw...)
	bad[0] = 'Z'
	assert.Error(t, Verify(bad), "bad magic")

	assert.Error(t, Verify(raw[:len(raw)/3]), "truncated stream")

	// Declare a wrong input shape: the first input dim lives right after
	// magic(4) + version(2) + dtype(1) + ndims(1).
	bad = append([]byte{}, raw...)
	bad[8] = 9
	assert.Error(t, Verify(bad), "wrong input shape")
}

func TestRunProducesVerifiedArtifactAndHeader(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "final_model.gob")
	require.NoError(t, nn.New(42).Save(modelPath))

	outDir := filepath.Join(dir, "models")
	artifactPath, err := Run(Options{
		ModelPath:   modelPath,
		OutputDir:   outDir,
		Quantize:    true,
		Header:      true,
		Calibration: NewSyntheticCalibration(42),
		ArrayName:   "drone_detector_vqm",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, ArtifactFile), artifactPath)

	raw, err := os.ReadFile(artifactPath)
	require.NoError(t, err)
	require.NoError(t, Verify(raw))

	header, err := os.ReadFile(filepath.Join(outDir, HeaderFile))
	require.NoError(t, err)
	assert.Equal(t, raw, parseHeaderBytes(t, string(header)),
		"embedded bytes must match the artifact on disk")
}

func TestRunWithoutQuantizationSkipsCalibration(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.gob")
	require.NoError(t, nn.New(1).Save(modelPath))

	artifactPath, err := Run(Options{
		ModelPath: modelPath,
		OutputDir: filepath.Join(dir, "out"),
		Quantize:  false,
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(artifactPath)
	require.NoError(t, err)
	a, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	w, err := a.Tensor("conv1/w")
	require.NoError(t, err)
	assert.Equal(t, DTypeFloat32, w.DType)
	assert.Empty(t, a.ActScales)
}

func TestRunRequiresCalibrationWhenQuantizing(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.gob")
	require.NoError(t, nn.New(1).Save(modelPath))

	_, err := Run(Options{
		ModelPath: modelPath,
		OutputDir: filepath.Join(dir, "out"),
		Quantize:  true,
	})
	assert.ErrorContains(t, err, "calibration")
}

func TestRunFailsOnMissingModel(t *testing.T) {
	_, err := Run(Options{
		ModelPath: filepath.Join(t.TempDir(), "missing.gob"),
		OutputDir: t.TempDir(),
	})
	assert.Error(t, err)
}
