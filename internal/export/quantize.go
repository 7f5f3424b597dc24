package export

import (
	"fmt"
	"math"

	"github.com/varta-systems/varta-go/internal/nn"
)

// ConvLayer holds a folded convolution: the batch norm that followed it in
// training has been absorbed into the weights and bias.
type ConvLayer struct {
	Name       string
	InC, OutC  int
	K          int
	W          []float64 // OutC x InC x K x K
	B          []float64 // OutC
}

// DenseLayer is a fully connected layer, weights out x in row-major.
type DenseLayer struct {
	Name    string
	In, Out int
	W       []float64
	B       []float64
}

// FoldedModel is the inference-only view of a trained model with batch norm
// statistics folded away: conv → ReLU → pool, conv → ReLU → pool,
// conv → ReLU → global average pool, dense → ReLU, dense → softmax.
type FoldedModel struct {
	Conv1, Conv2, Conv3 ConvLayer
	FC1, FC2            DenseLayer
}

// Fold absorbs each batch norm into its preceding convolution:
//
//	w' = w * gamma / sqrt(var + eps)
//	b' = (b - mean) * gamma / sqrt(var + eps) + beta
//
// using the running statistics accumulated during training, so the folded
// model reproduces the trained model's inference output.
func Fold(m *nn.Model) (*FoldedModel, error) {
	snap := m.Snapshot()

	fm := &FoldedModel{}
	convs := []struct {
		dst      *ConvLayer
		conv, bn string
		inC      int
	}{
		{&fm.Conv1, "conv1", "bn1", 1},
		{&fm.Conv2, "conv2", "bn2", 16},
		{&fm.Conv3, "conv3", "bn3", 32},
	}
	for _, c := range convs {
		folded, err := foldConv(snap, c.conv, c.bn, c.inC)
		if err != nil {
			return nil, err
		}
		*c.dst = folded
	}

	var err error
	if fm.FC1, err = denseFromSnapshot(snap, "fc1", 64); err != nil {
		return nil, err
	}
	if fm.FC2, err = denseFromSnapshot(snap, "fc2", 32); err != nil {
		return nil, err
	}
	return fm, nil
}

func foldConv(snap map[string][]float64, convName, bnName string, inC int) (ConvLayer, error) {
	w, err := snapParam(snap, convName+"/w")
	if err != nil {
		return ConvLayer{}, err
	}
	b, err := snapParam(snap, convName+"/b")
	if err != nil {
		return ConvLayer{}, err
	}
	gamma, err := snapParam(snap, bnName+"/gamma")
	if err != nil {
		return ConvLayer{}, err
	}
	beta, err := snapParam(snap, bnName+"/beta")
	if err != nil {
		return ConvLayer{}, err
	}
	mean, err := snapParam(snap, bnName+"/mean")
	if err != nil {
		return ConvLayer{}, err
	}
	variance, err := snapParam(snap, bnName+"/var")
	if err != nil {
		return ConvLayer{}, err
	}

	outC := len(b)
	perFilter := len(w) / outC
	k := int(math.Round(math.Sqrt(float64(perFilter / inC))))
	if outC*inC*k*k != len(w) {
		return ConvLayer{}, fmt.Errorf("%s/w has %d values, inconsistent with %d filters over %d channels",
			convName, len(w), outC, inC)
	}

	out := ConvLayer{
		Name: convName,
		InC:  inC, OutC: outC, K: k,
		W: make([]float64, len(w)),
		B: make([]float64, outC),
	}
	for oc := 0; oc < outC; oc++ {
		scale := gamma[oc] / math.Sqrt(variance[oc]+nn.BatchNormEpsilon)
		for i := 0; i < perFilter; i++ {
			out.W[oc*perFilter+i] = w[oc*perFilter+i] * scale
		}
		out.B[oc] = (b[oc]-mean[oc])*scale + beta[oc]
	}
	return out, nil
}

func denseFromSnapshot(snap map[string][]float64, name string, in int) (DenseLayer, error) {
	w, err := snapParam(snap, name+"/w")
	if err != nil {
		return DenseLayer{}, err
	}
	b, err := snapParam(snap, name+"/b")
	if err != nil {
		return DenseLayer{}, err
	}
	if len(w) != len(b)*in {
		return DenseLayer{}, fmt.Errorf("%s/w has %d values, expected %d", name, len(w), len(b)*in)
	}
	d := DenseLayer{Name: name, In: in, Out: len(b), W: make([]float64, len(w)), B: make([]float64, len(b))}
	copy(d.W, w)
	copy(d.B, b)
	return d, nil
}

func snapParam(snap map[string][]float64, name string) ([]float64, error) {
	p, ok := snap[name]
	if !ok {
		return nil, fmt.Errorf("model snapshot is missing parameter %s", name)
	}
	return p, nil
}

// QuantizeWeights maps a float weight tensor to int8 with a symmetric
// per-tensor scale: scale = max|w|/127, q = round(w/scale). All-zero tensors
// get scale 1 so dequantization stays well defined.
func QuantizeWeights(w []float64) ([]int8, float32) {
	var maxAbs float64
	for _, v := range w {
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
		}
	}
	scale := maxAbs / 127.0
	if scale == 0 {
		scale = 1
	}
	q := make([]int8, len(w))
	for i, v := range w {
		r := math.Round(v / scale)
		if r > 127 {
			r = 127
		} else if r < -128 {
			r = -128
		}
		q[i] = int8(r)
	}
	return q, float32(scale)
}

// Dequantize reverses QuantizeWeights.
func Dequantize(q []int8, scale float32) []float64 {
	out := make([]float64, len(q))
	s := float64(scale)
	for i, v := range q {
		out[i] = float64(v) * s
	}
	return out
}

// ActivationScales runs the calibration tensors through the folded model and
// records the largest absolute activation seen after each layer, expressed as
// an int8 scale. Stored for the on-device runtime; the Go verifier runs in
// float and does not consume them.
func ActivationScales(fm *FoldedModel, cal Calibration) []float32 {
	maxes := make([]float64, 5)
	for _, in := range cal.Tensors(calibrationTensors) {
		acts := fm.activations(in)
		for i, a := range acts {
			for _, v := range a {
				if abs := math.Abs(v); abs > maxes[i] {
					maxes[i] = abs
				}
			}
		}
	}
	scales := make([]float32, len(maxes))
	for i, m := range maxes {
		if m == 0 {
			m = 1
		}
		scales[i] = float32(m / 127.0)
	}
	return scales
}
