package export

import (
	"fmt"
	"math"

	"github.com/varta-systems/varta-go/internal/conf"
	"github.com/varta-systems/varta-go/internal/features"
)

// Infer runs one flattened feature tensor through the folded model and
// returns the 2-class probability vector. This float path is the reference
// the artifact verifier checks against; the int8 arithmetic lives on the
// device.
func (fm *FoldedModel) Infer(in []float64) ([]float64, error) {
	if len(in) != features.TensorSize {
		return nil, fmt.Errorf("input has %d values, want %d", len(in), features.TensorSize)
	}
	acts := fm.activations(in)
	return acts[len(acts)-1], nil
}

// activations returns the output of each stage: the three conv blocks after
// pooling, the hidden dense layer, and the softmax output. Calibration uses
// the per-stage maxima; Infer uses only the final entry.
func (fm *FoldedModel) activations(in []float64) [][]float64 {
	h, w := conf.TimeFrames, conf.MelBins

	a1 := convReLU(&fm.Conv1, in, h, w)
	a1 = maxPool2(a1, fm.Conv1.OutC, h, w)
	h, w = h/2, w/2

	a2 := convReLU(&fm.Conv2, a1, h, w)
	a2 = maxPool2(a2, fm.Conv2.OutC, h, w)
	h, w = h/2, w/2

	a3 := convReLU(&fm.Conv3, a2, h, w)
	pooled := globalAvgPool(a3, fm.Conv3.OutC, h, w)

	hid := denseReLU(&fm.FC1, pooled)
	probs := softmax(denseLinear(&fm.FC2, hid))

	return [][]float64{a1, a2, pooled, hid, probs}
}

// convReLU applies a stride-1 same-padding convolution followed by ReLU.
// Input and output are channel-major (c*h*w + row*w + col).
func convReLU(c *ConvLayer, in []float64, h, w int) []float64 {
	out := make([]float64, c.OutC*h*w)
	pad := c.K / 2
	for oc := 0; oc < c.OutC; oc++ {
		for oh := 0; oh < h; oh++ {
			for ow := 0; ow < w; ow++ {
				sum := c.B[oc]
				for ic := 0; ic < c.InC; ic++ {
					for ki := 0; ki < c.K; ki++ {
						ih := oh + ki - pad
						if ih < 0 || ih >= h {
							continue
						}
						for kj := 0; kj < c.K; kj++ {
							iw := ow + kj - pad
							if iw < 0 || iw >= w {
								continue
							}
							wv := c.W[((oc*c.InC+ic)*c.K+ki)*c.K+kj]
							sum += wv * in[ic*h*w+ih*w+iw]
						}
					}
				}
				if sum < 0 {
					sum = 0
				}
				out[oc*h*w+oh*w+ow] = sum
			}
		}
	}
	return out
}

func maxPool2(in []float64, chans, h, w int) []float64 {
	oh, ow := h/2, w/2
	out := make([]float64, chans*oh*ow)
	for c := 0; c < chans; c++ {
		for i := 0; i < oh; i++ {
			for j := 0; j < ow; j++ {
				m := in[c*h*w+(2*i)*w+2*j]
				for di := 0; di < 2; di++ {
					for dj := 0; dj < 2; dj++ {
						if v := in[c*h*w+(2*i+di)*w+2*j+dj]; v > m {
							m = v
						}
					}
				}
				out[c*oh*ow+i*ow+j] = m
			}
		}
	}
	return out
}

func globalAvgPool(in []float64, chans, h, w int) []float64 {
	out := make([]float64, chans)
	for c := 0; c < chans; c++ {
		var sum float64
		for i := 0; i < h*w; i++ {
			sum += in[c*h*w+i]
		}
		out[c] = sum / float64(h*w)
	}
	return out
}

func denseLinear(d *DenseLayer, in []float64) []float64 {
	out := make([]float64, d.Out)
	for o := 0; o < d.Out; o++ {
		sum := d.B[o]
		for i := 0; i < d.In; i++ {
			sum += d.W[o*d.In+i] * in[i]
		}
		out[o] = sum
	}
	return out
}

func denseReLU(d *DenseLayer, in []float64) []float64 {
	out := denseLinear(d, in)
	for i, v := range out {
		if v < 0 {
			out[i] = 0
		}
	}
	return out
}

func softmax(logits []float64) []float64 {
	maxV := logits[0]
	for _, v := range logits[1:] {
		if v > maxV {
			maxV = v
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - maxV)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
