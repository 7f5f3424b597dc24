package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/varta-systems/varta-go/internal/conf"
)

// Channel widths of the three convolutional blocks and the dense head. Fixed
// for the embedded target; there are no configuration knobs on topology.
const (
	conv1Channels = 16
	conv2Channels = 32
	conv3Channels = 64
	denseUnits    = 32
	dropoutRate   = 0.3
	kernelSize    = 3
)

// Model is the fixed-topology convolutional classifier: three conv blocks
// (conv → batch norm → ReLU → pooling, the last one global), a 32-unit dense
// layer with dropout, and a 2-way softmax head.
type Model struct {
	layers []layer
	rng    *rand.Rand
}

// New constructs the model with Glorot-initialized weights drawn from the
// given seed.
func New(seed int64) *Model {
	rng := rand.New(rand.NewSource(seed))
	m := &Model{rng: rng}
	m.layers = []layer{
		newConv2D("conv1", 1, conv1Channels, kernelSize, rng),
		newBatchNorm("bn1", conv1Channels),
		&relu{},
		&maxPool2{},
		newConv2D("conv2", conv1Channels, conv2Channels, kernelSize, rng),
		newBatchNorm("bn2", conv2Channels),
		&relu{},
		&maxPool2{},
		newConv2D("conv3", conv2Channels, conv3Channels, kernelSize, rng),
		newBatchNorm("bn3", conv3Channels),
		&relu{},
		&globalAvgPool{},
		newDense("fc1", conv3Channels, denseUnits, rng),
		&relu{},
		&dropout{rate: dropoutRate, rng: rng},
		newDense("fc2", denseUnits, conf.NumClasses, rng),
	}
	return m
}

// Forward runs the network and returns class probabilities of shape
// (N, NumClasses, 1, 1). Input shape must be (N, 1, TimeFrames, MelBins).
func (m *Model) Forward(x *Tensor, train bool) *Tensor {
	h := x
	for _, l := range m.layers {
		h = l.forward(h, train)
	}
	return softmax(h)
}

// Backward propagates the loss gradient with respect to the logits (as
// produced by SparseCrossEntropy) through all layers, accumulating parameter
// gradients.
func (m *Model) Backward(dLogits *Tensor) {
	d := dLogits
	for i := len(m.layers) - 1; i >= 0; i-- {
		d = m.layers[i].backward(d)
	}
}

// Params returns all parameters including batch norm running statistics.
func (m *Model) Params() []*Param {
	var out []*Param
	for _, l := range m.layers {
		out = append(out, l.params()...)
	}
	return out
}

// ZeroGrad clears all accumulated gradients.
func (m *Model) ZeroGrad() {
	for _, p := range m.Params() {
		p.ZeroGrad()
	}
}

// NumParams returns the trainable parameter count.
func (m *Model) NumParams() int {
	total := 0
	for _, p := range m.Params() {
		if p.Trainable {
			total += len(p.Data)
		}
	}
	return total
}

// Snapshot returns a deep copy of every parameter, keyed by name.
func (m *Model) Snapshot() map[string][]float64 {
	snap := make(map[string][]float64)
	for _, p := range m.Params() {
		c := make([]float64, len(p.Data))
		copy(c, p.Data)
		snap[p.Name] = c
	}
	return snap
}

// Restore loads a snapshot produced by Snapshot.
func (m *Model) Restore(snap map[string][]float64) error {
	for _, p := range m.Params() {
		src, ok := snap[p.Name]
		if !ok {
			return fmt.Errorf("snapshot is missing parameter %s", p.Name)
		}
		if len(src) != len(p.Data) {
			return fmt.Errorf("parameter %s has %d values, snapshot has %d",
				p.Name, len(p.Data), len(src))
		}
		copy(p.Data, src)
	}
	return nil
}

// softmax converts logits (N, NumClasses, 1, 1) to probabilities, shifted by
// the row maximum for numeric stability.
func softmax(logits *Tensor) *Tensor {
	out := NewTensor(logits.N, logits.C, 1, 1)
	for n := 0; n < logits.N; n++ {
		row := logits.Sample(n)
		maxV := row[0]
		for _, v := range row[1:] {
			if v > maxV {
				maxV = v
			}
		}
		var sum float64
		o := out.Sample(n)
		for i, v := range row {
			o[i] = math.Exp(v - maxV)
			sum += o[i]
		}
		for i := range o {
			o[i] /= sum
		}
	}
	return out
}
