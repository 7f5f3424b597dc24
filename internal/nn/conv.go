package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// conv2D is a stride-1, same-padding 2-D convolution. The forward pass uses
// im2col so the per-sample convolution becomes one matrix product.
type conv2D struct {
	name       string
	inC, outC  int
	k          int // kernel edge, odd
	w          *Param
	b          *Param
	x          *Tensor
	cols       []*mat.Dense
}

func newConv2D(name string, inC, outC, k int, rng *rand.Rand) *conv2D {
	c := &conv2D{
		name: name,
		inC:  inC, outC: outC, k: k,
		w: newParam(name+"/w", outC*inC*k*k, true),
		b: newParam(name+"/b", outC, true),
	}
	// Glorot uniform, the reference framework's default kernel init.
	fanIn := float64(inC * k * k)
	fanOut := float64(outC * k * k)
	limit := math.Sqrt(6.0 / (fanIn + fanOut))
	for i := range c.w.Data {
		c.w.Data[i] = (rng.Float64()*2 - 1) * limit
	}
	return c
}

// im2col unfolds sample n of x into a (inC*k*k) x (H*W) matrix where column
// (oh*W+ow) holds the receptive field of output position (oh, ow).
func (c *conv2D) im2col(x *Tensor, n int) *mat.Dense {
	h, w := x.H, x.W
	pad := c.k / 2
	rows := c.inC * c.k * c.k
	cols := mat.NewDense(rows, h*w, nil)
	data := cols.RawMatrix().Data

	for ci := 0; ci < c.inC; ci++ {
		for ki := 0; ki < c.k; ki++ {
			for kj := 0; kj < c.k; kj++ {
				row := (ci*c.k+ki)*c.k + kj
				base := row * h * w
				for oh := 0; oh < h; oh++ {
					ih := oh + ki - pad
					if ih < 0 || ih >= h {
						continue
					}
					for ow := 0; ow < w; ow++ {
						iw := ow + kj - pad
						if iw < 0 || iw >= w {
							continue
						}
						data[base+oh*w+ow] = x.At(n, ci, ih, iw)
					}
				}
			}
		}
	}
	return cols
}

// col2im scatter-adds the column gradient back into the input gradient of
// sample n.
func (c *conv2D) col2im(dcols *mat.Dense, dx *Tensor, n int) {
	h, w := dx.H, dx.W
	pad := c.k / 2
	data := dcols.RawMatrix().Data

	for ci := 0; ci < c.inC; ci++ {
		for ki := 0; ki < c.k; ki++ {
			for kj := 0; kj < c.k; kj++ {
				row := (ci*c.k+ki)*c.k + kj
				base := row * h * w
				for oh := 0; oh < h; oh++ {
					ih := oh + ki - pad
					if ih < 0 || ih >= h {
						continue
					}
					for ow := 0; ow < w; ow++ {
						iw := ow + kj - pad
						if iw < 0 || iw >= w {
							continue
						}
						dx.Data[dx.Idx(n, ci, ih, iw)] += data[base+oh*w+ow]
					}
				}
			}
		}
	}
}

func (c *conv2D) forward(x *Tensor, train bool) *Tensor {
	out := NewTensor(x.N, c.outC, x.H, x.W)
	wm := mat.NewDense(c.outC, c.inC*c.k*c.k, c.w.Data)
	hw := x.H * x.W

	c.x = x
	c.cols = make([]*mat.Dense, x.N)

	for n := 0; n < x.N; n++ {
		cols := c.im2col(x, n)
		c.cols[n] = cols

		var prod mat.Dense
		prod.Mul(wm, cols) // outC x (H*W)
		pd := prod.RawMatrix().Data

		outSample := out.Sample(n)
		for oc := 0; oc < c.outC; oc++ {
			bias := c.b.Data[oc]
			for i := 0; i < hw; i++ {
				outSample[oc*hw+i] = pd[oc*hw+i] + bias
			}
		}
	}
	return out
}

func (c *conv2D) backward(dy *Tensor) *Tensor {
	x := c.x
	hw := x.H * x.W
	wm := mat.NewDense(c.outC, c.inC*c.k*c.k, c.w.Data)
	dx := NewTensor(x.N, x.C, x.H, x.W)

	for n := 0; n < x.N; n++ {
		dyn := mat.NewDense(c.outC, hw, dy.Sample(n))

		// Weight gradient: dW += dY_n * cols_nᵀ
		var dw mat.Dense
		dw.Mul(dyn, c.cols[n].T())
		dwd := dw.RawMatrix().Data
		for i := range c.w.Grad {
			c.w.Grad[i] += dwd[i]
		}

		// Bias gradient: row sums of dY_n.
		dynd := dyn.RawMatrix().Data
		for oc := 0; oc < c.outC; oc++ {
			var sum float64
			for i := 0; i < hw; i++ {
				sum += dynd[oc*hw+i]
			}
			c.b.Grad[oc] += sum
		}

		// Input gradient: dcols = Wᵀ * dY_n, scattered back.
		var dcols mat.Dense
		dcols.Mul(wm.T(), dyn)
		c.col2im(&dcols, dx, n)
	}
	return dx
}

func (c *conv2D) params() []*Param {
	return []*Param{c.w, c.b}
}
