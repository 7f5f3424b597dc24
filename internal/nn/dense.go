package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// dense is a fully connected layer over the flattened input features.
type dense struct {
	name    string
	in, out int
	w       *Param // out x in, row-major
	b       *Param
	x       *Tensor
}

func newDense(name string, in, out int, rng *rand.Rand) *dense {
	d := &dense{
		name: name,
		in:   in, out: out,
		w: newParam(name+"/w", out*in, true),
		b: newParam(name+"/b", out, true),
	}
	limit := math.Sqrt(6.0 / float64(in+out))
	for i := range d.w.Data {
		d.w.Data[i] = (rng.Float64()*2 - 1) * limit
	}
	return d
}

func (d *dense) forward(x *Tensor, train bool) *Tensor {
	d.x = x
	xm := mat.NewDense(x.N, d.in, x.Data)
	wm := mat.NewDense(d.out, d.in, d.w.Data)

	var y mat.Dense
	y.Mul(xm, wm.T()) // N x out
	yd := y.RawMatrix().Data

	outT := NewTensor(x.N, d.out, 1, 1)
	for n := 0; n < x.N; n++ {
		for o := 0; o < d.out; o++ {
			outT.Data[n*d.out+o] = yd[n*d.out+o] + d.b.Data[o]
		}
	}
	return outT
}

func (d *dense) backward(dy *Tensor) *Tensor {
	x := d.x
	dyn := mat.NewDense(x.N, d.out, dy.Data)
	xm := mat.NewDense(x.N, d.in, x.Data)
	wm := mat.NewDense(d.out, d.in, d.w.Data)

	// dW = dYᵀ * X
	var dw mat.Dense
	dw.Mul(dyn.T(), xm)
	dwd := dw.RawMatrix().Data
	for i := range d.w.Grad {
		d.w.Grad[i] += dwd[i]
	}

	// db = column sums of dY
	for n := 0; n < x.N; n++ {
		for o := 0; o < d.out; o++ {
			d.b.Grad[o] += dy.Data[n*d.out+o]
		}
	}

	// dX = dY * W
	var dxm mat.Dense
	dxm.Mul(dyn, wm)
	dx := NewTensor(x.N, x.C, x.H, x.W)
	copy(dx.Data, dxm.RawMatrix().Data)
	return dx
}

func (d *dense) params() []*Param {
	return []*Param{d.w, d.b}
}
