package export

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"

	"github.com/varta-systems/varta-go/internal/conf"
	"github.com/varta-systems/varta-go/internal/features"
)

// Verify re-reads a serialized artifact and proves it is usable: the header
// must declare the expected input and output tensors, every weight must
// dequantize into a layer of the expected shape, and one synthetic inference
// must produce a valid 2-class probability vector. Any failure is fatal to
// the export; a broken artifact must never reach a device.
func Verify(raw []byte) error {
	a, err := Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decoding artifact: %w", err)
	}

	wantIn := []int32{1, int32(conf.TimeFrames), int32(conf.MelBins), 1}
	if !dimsEqual(a.InputShape, wantIn) {
		return fmt.Errorf("input shape %v, want %v", a.InputShape, wantIn)
	}
	wantOut := []int32{1, int32(conf.NumClasses)}
	if !dimsEqual(a.OutputShape, wantOut) {
		return fmt.Errorf("output shape %v, want %v", a.OutputShape, wantOut)
	}

	fm, err := ReconstructModel(a)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(1))
	in := make([]float64, features.TensorSize)
	for i := range in {
		in[i] = rng.Float64()
	}
	probs, err := fm.Infer(in)
	if err != nil {
		return fmt.Errorf("synthetic inference: %w", err)
	}
	if len(probs) != conf.NumClasses {
		return fmt.Errorf("inference produced %d outputs, want %d", len(probs), conf.NumClasses)
	}
	var sum float64
	for _, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("inference produced invalid probability %v", p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("inference probabilities sum to %v, want 1", sum)
	}
	return nil
}

// ReconstructModel rebuilds the float view of an artifact by dequantizing
// each weight tensor, validating names and shapes along the way.
func ReconstructModel(a *Artifact) (*FoldedModel, error) {
	fm := &FoldedModel{}
	for _, c := range []struct {
		dst  *ConvLayer
		name string
	}{
		{&fm.Conv1, "conv1"},
		{&fm.Conv2, "conv2"},
		{&fm.Conv3, "conv3"},
	} {
		w, err := a.Tensor(c.name + "/w")
		if err != nil {
			return nil, err
		}
		b, err := a.Tensor(c.name + "/b")
		if err != nil {
			return nil, err
		}
		if len(w.Dims) != 4 {
			return nil, fmt.Errorf("tensor %s has rank %d, want 4", w.Name, len(w.Dims))
		}
		if b.DType != DTypeFloat32 {
			return nil, fmt.Errorf("tensor %s has element type %d, want float32", b.Name, b.DType)
		}
		if w.Dims[2] != w.Dims[3] {
			return nil, fmt.Errorf("tensor %s kernel is %dx%d, want square", w.Name, w.Dims[2], w.Dims[3])
		}
		if int(w.Dims[0]) != len(b.F32) {
			return nil, fmt.Errorf("layer %s has %d filters but %d biases", c.name, w.Dims[0], len(b.F32))
		}
		weights, err := weightValues(w)
		if err != nil {
			return nil, err
		}
		*c.dst = ConvLayer{
			Name: c.name,
			OutC: int(w.Dims[0]), InC: int(w.Dims[1]), K: int(w.Dims[2]),
			W: weights,
			B: toFloat64(b.F32),
		}
	}

	for _, d := range []struct {
		dst  *DenseLayer
		name string
	}{
		{&fm.FC1, "fc1"},
		{&fm.FC2, "fc2"},
	} {
		w, err := a.Tensor(d.name + "/w")
		if err != nil {
			return nil, err
		}
		b, err := a.Tensor(d.name + "/b")
		if err != nil {
			return nil, err
		}
		if len(w.Dims) != 2 {
			return nil, fmt.Errorf("tensor %s has rank %d, want 2", w.Name, len(w.Dims))
		}
		if b.DType != DTypeFloat32 {
			return nil, fmt.Errorf("tensor %s has element type %d, want float32", b.Name, b.DType)
		}
		if int(w.Dims[0]) != len(b.F32) {
			return nil, fmt.Errorf("layer %s has %d outputs but %d biases", d.name, w.Dims[0], len(b.F32))
		}
		weights, err := weightValues(w)
		if err != nil {
			return nil, err
		}
		*d.dst = DenseLayer{
			Name: d.name,
			Out:  int(w.Dims[0]), In: int(w.Dims[1]),
			W: weights,
			B: toFloat64(b.F32),
		}
	}

	if fm.Conv1.InC != 1 || fm.FC2.Out != conf.NumClasses {
		return nil, fmt.Errorf("artifact topology does not match the detector (conv1 in=%d, fc2 out=%d)",
			fm.Conv1.InC, fm.FC2.Out)
	}
	if fm.FC1.In != fm.Conv3.OutC || fm.FC2.In != fm.FC1.Out {
		return nil, fmt.Errorf("artifact layer widths are inconsistent")
	}
	return fm, nil
}

// weightValues returns a weight tensor as float64, dequantizing int8 entries.
func weightValues(t *TensorData) ([]float64, error) {
	switch t.DType {
	case DTypeInt8:
		return Dequantize(t.Int8, t.Scale), nil
	case DTypeFloat32:
		return toFloat64(t.F32), nil
	default:
		return nil, fmt.Errorf("tensor %s has unknown element type %d", t.Name, t.DType)
	}
}

func dimsEqual(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
