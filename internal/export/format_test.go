package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varta-systems/varta-go/internal/nn"
)

func quantizedArtifact(t *testing.T) *Artifact {
	t.Helper()
	fm, err := Fold(nn.New(42))
	require.NoError(t, err)
	scales := ActivationScales(fm, NewSyntheticCalibration(1))
	return BuildArtifact(fm, scales, true)
}

func TestEncodeDecodeRoundTripIsBitExact(t *testing.T) {
	a := quantizedArtifact(t)

	var buf bytes.Buffer
	require.NoError(t, a.Encode(&buf))
	first := append([]byte{}, buf.Bytes()...)

	decoded, err := Decode(bytes.NewReader(first))
	require.NoError(t, err)

	assert.Equal(t, a.InputShape, decoded.InputShape)
	assert.Equal(t, a.OutputShape, decoded.OutputShape)
	assert.Equal(t, a.ActScales, decoded.ActScales)
	require.Len(t, decoded.Tensors, len(a.Tensors))
	for i := range a.Tensors {
		assert.Equal(t, a.Tensors[i], decoded.Tensors[i], "tensor %d", i)
	}

	var buf2 bytes.Buffer
	require.NoError(t, decoded.Encode(&buf2))
	assert.Equal(t, first, buf2.Bytes(), "re-encoding must reproduce the bytes")
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	a := quantizedArtifact(t)
	var buf bytes.Buffer
	require.NoError(t, a.Encode(&buf))

	raw := buf.Bytes()
	raw[0] = 'X'
	_, err := Decode(bytes.NewReader(raw))
	assert.ErrorContains(t, err, "magic")
}

func TestDecodeRejectsTruncation(t *testing.T) {
	a := quantizedArtifact(t)
	var buf bytes.Buffer
	require.NoError(t, a.Encode(&buf))

	raw := buf.Bytes()
	for _, cut := range []int{3, 10, len(raw) / 2, len(raw) - 1} {
		_, err := Decode(bytes.NewReader(raw[:cut]))
		assert.Error(t, err, "truncation at %d must fail", cut)
	}
}

func TestFloatArtifactKeepsFloat32Weights(t *testing.T) {
	fm, err := Fold(nn.New(42))
	require.NoError(t, err)
	a := BuildArtifact(fm, nil, false)

	w, err := a.Tensor("conv1/w")
	require.NoError(t, err)
	assert.Equal(t, DTypeFloat32, w.DType)
	assert.NotEmpty(t, w.F32)
	assert.Empty(t, w.Int8)

	var buf bytes.Buffer
	require.NoError(t, a.Encode(&buf))
	decoded, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, w.F32, decodedTensor(t, decoded, "conv1/w").F32)
}

func decodedTensor(t *testing.T, a *Artifact, name string) *TensorData {
	t.Helper()
	td, err := a.Tensor(name)
	require.NoError(t, err)
	return td
}

func TestArtifactTensorLookup(t *testing.T) {
	a := quantizedArtifact(t)

	names := []string{
		"conv1/w", "conv1/b", "conv2/w", "conv2/b", "conv3/w", "conv3/b",
		"fc1/w", "fc1/b", "fc2/w", "fc2/b",
	}
	require.Len(t, a.Tensors, len(names))
	for _, name := range names {
		_, err := a.Tensor(name)
		assert.NoError(t, err)
	}
	_, err := a.Tensor("conv9/w")
	assert.Error(t, err)
}
