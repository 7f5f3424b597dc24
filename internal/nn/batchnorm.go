package nn

import "math"

// Batch norm defaults matching the reference framework. BatchNormEpsilon is
// exported so the export pipeline can fold running statistics into the
// preceding convolution with the same stabilizer.
const (
	BatchNormEpsilon = 1e-3
	bnMomentum       = 0.99
)

// batchNorm normalizes each channel over the batch and spatial dimensions.
type batchNorm struct {
	name     string
	channels int

	gamma, beta      *Param
	runMean, runVar  *Param // non-trainable, updated with batch statistics

	// caches for backward
	xhat   []float64
	invStd []float64
	m      int // N*H*W, elements per channel in the last batch
	shape  [4]int
}

func newBatchNorm(name string, channels int) *batchNorm {
	bn := &batchNorm{
		name:     name,
		channels: channels,
		gamma:    newParam(name+"/gamma", channels, true),
		beta:     newParam(name+"/beta", channels, true),
		runMean:  newParam(name+"/mean", channels, false),
		runVar:   newParam(name+"/var", channels, false),
	}
	for i := 0; i < channels; i++ {
		bn.gamma.Data[i] = 1
		bn.runVar.Data[i] = 1
	}
	return bn
}

func (bn *batchNorm) forward(x *Tensor, train bool) *Tensor {
	out := NewTensor(x.N, x.C, x.H, x.W)
	hw := x.H * x.W

	if !train {
		for c := 0; c < bn.channels; c++ {
			scale := bn.gamma.Data[c] / math.Sqrt(bn.runVar.Data[c]+BatchNormEpsilon)
			shift := bn.beta.Data[c] - bn.runMean.Data[c]*scale
			for n := 0; n < x.N; n++ {
				base := x.Idx(n, c, 0, 0)
				for i := 0; i < hw; i++ {
					out.Data[base+i] = x.Data[base+i]*scale + shift
				}
			}
		}
		return out
	}

	m := x.N * hw
	bn.m = m
	bn.shape = [4]int{x.N, x.C, x.H, x.W}
	bn.xhat = make([]float64, len(x.Data))
	bn.invStd = make([]float64, bn.channels)

	for c := 0; c < bn.channels; c++ {
		var mean float64
		for n := 0; n < x.N; n++ {
			base := x.Idx(n, c, 0, 0)
			for i := 0; i < hw; i++ {
				mean += x.Data[base+i]
			}
		}
		mean /= float64(m)

		var variance float64
		for n := 0; n < x.N; n++ {
			base := x.Idx(n, c, 0, 0)
			for i := 0; i < hw; i++ {
				d := x.Data[base+i] - mean
				variance += d * d
			}
		}
		variance /= float64(m)

		invStd := 1.0 / math.Sqrt(variance+BatchNormEpsilon)
		bn.invStd[c] = invStd

		gamma, beta := bn.gamma.Data[c], bn.beta.Data[c]
		for n := 0; n < x.N; n++ {
			base := x.Idx(n, c, 0, 0)
			for i := 0; i < hw; i++ {
				xh := (x.Data[base+i] - mean) * invStd
				bn.xhat[base+i] = xh
				out.Data[base+i] = gamma*xh + beta
			}
		}

		bn.runMean.Data[c] = bnMomentum*bn.runMean.Data[c] + (1-bnMomentum)*mean
		bn.runVar.Data[c] = bnMomentum*bn.runVar.Data[c] + (1-bnMomentum)*variance
	}
	return out
}

func (bn *batchNorm) backward(dy *Tensor) *Tensor {
	n4, _, h, w := bn.shape[0], bn.shape[1], bn.shape[2], bn.shape[3]
	hw := h * w
	m := float64(bn.m)
	dx := NewTensor(n4, bn.channels, h, w)

	for c := 0; c < bn.channels; c++ {
		var dgamma, dbeta float64
		for n := 0; n < n4; n++ {
			base := dy.Idx(n, c, 0, 0)
			for i := 0; i < hw; i++ {
				dgamma += dy.Data[base+i] * bn.xhat[base+i]
				dbeta += dy.Data[base+i]
			}
		}
		bn.gamma.Grad[c] += dgamma
		bn.beta.Grad[c] += dbeta

		k := bn.gamma.Data[c] * bn.invStd[c] / m
		for n := 0; n < n4; n++ {
			base := dy.Idx(n, c, 0, 0)
			for i := 0; i < hw; i++ {
				dx.Data[base+i] = k * (m*dy.Data[base+i] - dbeta - bn.xhat[base+i]*dgamma)
			}
		}
	}
	return dx
}

func (bn *batchNorm) params() []*Param {
	return []*Param{bn.gamma, bn.beta, bn.runMean, bn.runVar}
}
