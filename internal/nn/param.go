package nn

// Param is a named parameter tensor with its gradient accumulator.
// Non-trainable params (batch norm running statistics) are carried in
// checkpoints and snapshots but skipped by the optimizer.
type Param struct {
	Name      string
	Data      []float64
	Grad      []float64
	Trainable bool
}

func newParam(name string, size int, trainable bool) *Param {
	return &Param{
		Name:      name,
		Data:      make([]float64, size),
		Grad:      make([]float64, size),
		Trainable: trainable,
	}
}

// ZeroGrad clears the accumulated gradient.
func (p *Param) ZeroGrad() {
	for i := range p.Grad {
		p.Grad[i] = 0
	}
}
