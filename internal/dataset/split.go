package dataset

import (
	"math"
	"math/rand"
	"sort"

	"github.com/varta-systems/varta-go/internal/conf"
)

// StratifiedSplit partitions sample indices into a held-out set of roughly
// frac of each class and the remainder, preserving class proportions up to
// integer rounding. The same seed always yields the same partition. Both
// returned index slices are sorted, so subsets keep manifest order.
func StratifiedSplit(y []int, frac float64, seed int64) (held, rest []int) {
	rng := rand.New(rand.NewSource(seed))

	for class := 0; class < conf.NumClasses; class++ {
		var bucket []int
		for i, label := range y {
			if label == class {
				bucket = append(bucket, i)
			}
		}
		rng.Shuffle(len(bucket), func(i, j int) {
			bucket[i], bucket[j] = bucket[j], bucket[i]
		})

		n := int(math.Round(frac * float64(len(bucket))))
		held = append(held, bucket[:n]...)
		rest = append(rest, bucket[n:]...)
	}

	sort.Ints(held)
	sort.Ints(rest)
	return held, rest
}
