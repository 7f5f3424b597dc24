// Package nn implements the fixed convolutional architecture of the drone
// classifier, with forward and backward passes suitable for training on CPU.
package nn

// Tensor is a dense 4-D array in NCHW layout. Vectors use H=W=1.
type Tensor struct {
	Data       []float64
	N, C, H, W int
}

// NewTensor allocates a zeroed tensor of the given shape.
func NewTensor(n, c, h, w int) *Tensor {
	return &Tensor{
		Data: make([]float64, n*c*h*w),
		N:    n, C: c, H: h, W: w,
	}
}

// Idx returns the flat index of element (n, c, h, w).
func (t *Tensor) Idx(n, c, h, w int) int {
	return ((n*t.C+c)*t.H+h)*t.W + w
}

// At returns the element at (n, c, h, w).
func (t *Tensor) At(n, c, h, w int) float64 {
	return t.Data[t.Idx(n, c, h, w)]
}

// Set stores v at (n, c, h, w).
func (t *Tensor) Set(n, c, h, w int, v float64) {
	t.Data[t.Idx(n, c, h, w)] = v
}

// SampleSize returns the element count of one sample (C*H*W).
func (t *Tensor) SampleSize() int {
	return t.C * t.H * t.W
}

// Sample returns the contiguous data slice of sample n.
func (t *Tensor) Sample(n int) []float64 {
	s := t.SampleSize()
	return t.Data[n*s : (n+1)*s]
}

// ShapeEq reports whether both tensors have the same shape.
func (t *Tensor) ShapeEq(o *Tensor) bool {
	return t.N == o.N && t.C == o.C && t.H == o.H && t.W == o.W
}
