// Package training runs supervised optimization of the classifier with early
// stopping, learning rate decay and checkpointing.
package training

import (
	"fmt"
	"strings"

	"github.com/varta-systems/varta-go/internal/conf"
	"github.com/varta-systems/varta-go/internal/dataset"
	"github.com/varta-systems/varta-go/internal/nn"
)

// Evaluation holds the observational metrics of one pass over a dataset
// split. Nothing here feeds back into training.
type Evaluation struct {
	Loss      float64
	Accuracy  float64
	Confusion [conf.NumClasses][conf.NumClasses]int // [true][predicted]
	Precision [conf.NumClasses]float64
	Recall    [conf.NumClasses]float64
	F1        [conf.NumClasses]float64
	Support   [conf.NumClasses]int
}

// evaluate runs the model in inference mode over the split in minibatches.
func evaluate(m *nn.Model, ds *dataset.Dataset, batchSize int) *Evaluation {
	ev := &Evaluation{}
	var totalLoss float64
	var correct int

	for start := 0; start < ds.Len(); start += batchSize {
		end := start + batchSize
		if end > ds.Len() {
			end = ds.Len()
		}
		batch, labels := makeBatch(ds, seqIndices(start, end))
		probs := m.Forward(batch, false)
		loss, _ := nn.SparseCrossEntropy(probs, labels)
		totalLoss += loss * float64(end-start)

		for i, pred := range nn.Argmax(probs) {
			ev.Confusion[labels[i]][pred]++
			if pred == labels[i] {
				correct++
			}
		}
	}

	n := ds.Len()
	ev.Loss = totalLoss / float64(n)
	ev.Accuracy = float64(correct) / float64(n)

	for c := 0; c < conf.NumClasses; c++ {
		var predicted, actual int
		for o := 0; o < conf.NumClasses; o++ {
			predicted += ev.Confusion[o][c]
			actual += ev.Confusion[c][o]
		}
		ev.Support[c] = actual
		tp := float64(ev.Confusion[c][c])
		if predicted > 0 {
			ev.Precision[c] = tp / float64(predicted)
		}
		if actual > 0 {
			ev.Recall[c] = tp / float64(actual)
		}
		if ev.Precision[c]+ev.Recall[c] > 0 {
			ev.F1[c] = 2 * ev.Precision[c] * ev.Recall[c] / (ev.Precision[c] + ev.Recall[c])
		}
	}

	return ev
}

// Report formats per-class precision/recall/F1 and the confusion matrix.
func (e *Evaluation) Report() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%12s %9s %9s %9s %9s\n", "", "precision", "recall", "f1-score", "support")
	for c := 0; c < conf.NumClasses; c++ {
		fmt.Fprintf(&b, "%12s %9.4f %9.4f %9.4f %9d\n",
			conf.ClassNames[c], e.Precision[c], e.Recall[c], e.F1[c], e.Support[c])
	}

	b.WriteString("\nConfusion matrix (rows: true, cols: predicted):\n")
	fmt.Fprintf(&b, "%12s", "")
	for c := 0; c < conf.NumClasses; c++ {
		fmt.Fprintf(&b, " %9s", conf.ClassNames[c])
	}
	b.WriteByte('\n')
	for t := 0; t < conf.NumClasses; t++ {
		fmt.Fprintf(&b, "%12s", conf.ClassNames[t])
		for p := 0; p < conf.NumClasses; p++ {
			fmt.Fprintf(&b, " %9d", e.Confusion[t][p])
		}
		b.WriteByte('\n')
	}

	return b.String()
}

func seqIndices(start, end int) []int {
	out := make([]int, end-start)
	for i := range out {
		out[i] = start + i
	}
	return out
}
