package nn

import "math/rand"

// layer is one stage of the network. backward must be called after forward
// with train=true and consumes the caches forward left behind.
type layer interface {
	forward(x *Tensor, train bool) *Tensor
	backward(dy *Tensor) *Tensor
	params() []*Param
}

// relu is the rectifier.
type relu struct {
	mask []bool
}

func (r *relu) forward(x *Tensor, train bool) *Tensor {
	out := NewTensor(x.N, x.C, x.H, x.W)
	if train {
		r.mask = make([]bool, len(x.Data))
	}
	for i, v := range x.Data {
		if v > 0 {
			out.Data[i] = v
			if train {
				r.mask[i] = true
			}
		}
	}
	return out
}

func (r *relu) backward(dy *Tensor) *Tensor {
	dx := NewTensor(dy.N, dy.C, dy.H, dy.W)
	for i, pass := range r.mask {
		if pass {
			dx.Data[i] = dy.Data[i]
		}
	}
	return dx
}

func (r *relu) params() []*Param { return nil }

// maxPool2 is a 2x2, stride-2 max pooling. Input H and W must be even.
type maxPool2 struct {
	argmax             []int // flat input index per output element
	inN, inC, inH, inW int
}

func (p *maxPool2) forward(x *Tensor, train bool) *Tensor {
	outH, outW := x.H/2, x.W/2
	out := NewTensor(x.N, x.C, outH, outW)
	p.inN, p.inC, p.inH, p.inW = x.N, x.C, x.H, x.W
	p.argmax = make([]int, len(out.Data))

	oi := 0
	for n := 0; n < x.N; n++ {
		for c := 0; c < x.C; c++ {
			for oh := 0; oh < outH; oh++ {
				for ow := 0; ow < outW; ow++ {
					best := x.Idx(n, c, oh*2, ow*2)
					bestV := x.Data[best]
					for di := 0; di < 2; di++ {
						for dj := 0; dj < 2; dj++ {
							idx := x.Idx(n, c, oh*2+di, ow*2+dj)
							if x.Data[idx] > bestV {
								bestV = x.Data[idx]
								best = idx
							}
						}
					}
					out.Data[oi] = bestV
					p.argmax[oi] = best
					oi++
				}
			}
		}
	}
	return out
}

func (p *maxPool2) backward(dy *Tensor) *Tensor {
	dx := NewTensor(p.inN, p.inC, p.inH, p.inW)
	for oi, idx := range p.argmax {
		dx.Data[idx] += dy.Data[oi]
	}
	return dx
}

func (p *maxPool2) params() []*Param { return nil }

// globalAvgPool collapses the spatial dimensions to a per-channel mean.
type globalAvgPool struct {
	inH, inW int
}

func (g *globalAvgPool) forward(x *Tensor, train bool) *Tensor {
	g.inH, g.inW = x.H, x.W
	out := NewTensor(x.N, x.C, 1, 1)
	hw := float64(x.H * x.W)
	for n := 0; n < x.N; n++ {
		for c := 0; c < x.C; c++ {
			base := x.Idx(n, c, 0, 0)
			var sum float64
			for i := 0; i < x.H*x.W; i++ {
				sum += x.Data[base+i]
			}
			out.Set(n, c, 0, 0, sum/hw)
		}
	}
	return out
}

func (g *globalAvgPool) backward(dy *Tensor) *Tensor {
	dx := NewTensor(dy.N, dy.C, g.inH, g.inW)
	hw := float64(g.inH * g.inW)
	for n := 0; n < dy.N; n++ {
		for c := 0; c < dy.C; c++ {
			grad := dy.At(n, c, 0, 0) / hw
			base := dx.Idx(n, c, 0, 0)
			for i := 0; i < g.inH*g.inW; i++ {
				dx.Data[base+i] = grad
			}
		}
	}
	return dx
}

func (g *globalAvgPool) params() []*Param { return nil }

// dropout zeroes activations with probability rate during training, scaling
// the survivors so inference needs no adjustment.
type dropout struct {
	rate float64
	rng  *rand.Rand
	mask []float64
}

func (d *dropout) forward(x *Tensor, train bool) *Tensor {
	if !train {
		out := NewTensor(x.N, x.C, x.H, x.W)
		copy(out.Data, x.Data)
		return out
	}
	out := NewTensor(x.N, x.C, x.H, x.W)
	d.mask = make([]float64, len(x.Data))
	keep := 1.0 - d.rate
	for i := range x.Data {
		if d.rng.Float64() < keep {
			d.mask[i] = 1.0 / keep
			out.Data[i] = x.Data[i] * d.mask[i]
		}
	}
	return out
}

func (d *dropout) backward(dy *Tensor) *Tensor {
	dx := NewTensor(dy.N, dy.C, dy.H, dy.W)
	for i := range dy.Data {
		dx.Data[i] = dy.Data[i] * d.mask[i]
	}
	return dx
}

func (d *dropout) params() []*Param { return nil }
