package nn

import "math"

// SparseCrossEntropy computes the mean negative log likelihood of the true
// labels under probs (as returned by Forward) and the gradient of that loss
// with respect to the pre-softmax logits, ready for Backward.
func SparseCrossEntropy(probs *Tensor, y []int) (loss float64, dLogits *Tensor) {
	n := probs.N
	classes := probs.C
	dLogits = NewTensor(n, classes, 1, 1)

	for i := 0; i < n; i++ {
		row := probs.Sample(i)
		p := row[y[i]]
		if p < 1e-12 {
			p = 1e-12
		}
		loss += -math.Log(p)

		d := dLogits.Sample(i)
		for c := 0; c < classes; c++ {
			d[c] = row[c] / float64(n)
		}
		d[y[i]] -= 1.0 / float64(n)
	}

	return loss / float64(n), dLogits
}

// Argmax returns the predicted class indices of a probability tensor.
func Argmax(probs *Tensor) []int {
	out := make([]int, probs.N)
	for n := 0; n < probs.N; n++ {
		row := probs.Sample(n)
		best := 0
		for c := 1; c < len(row); c++ {
			if row[c] > row[best] {
				best = c
			}
		}
		out[n] = best
	}
	return out
}
