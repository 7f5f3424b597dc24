package nn

import "math"

// Adam is the Adam optimizer with bias-corrected moment estimates. LR may be
// lowered between steps by the training loop's plateau schedule.
type Adam struct {
	LR float64

	beta1, beta2, eps float64
	t                 int
	m, v              map[string][]float64
}

// NewAdam returns an Adam optimizer with the standard moment decay rates.
func NewAdam(lr float64) *Adam {
	return &Adam{
		LR:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-7,
		m:     make(map[string][]float64),
		v:     make(map[string][]float64),
	}
}

// Step applies one update to every trainable parameter from its accumulated
// gradient. Non-trainable parameters (running statistics) are untouched.
func (a *Adam) Step(params []*Param) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))

	for _, p := range params {
		if !p.Trainable {
			continue
		}
		m, ok := a.m[p.Name]
		if !ok {
			m = make([]float64, len(p.Data))
			a.m[p.Name] = m
			a.v[p.Name] = make([]float64, len(p.Data))
		}
		v := a.v[p.Name]

		for i, g := range p.Grad {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g
			v[i] = a.beta2*v[i] + (1-a.beta2)*g*g
			mHat := m[i] / c1
			vHat := v[i] / c2
			p.Data[i] -= a.LR * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}
