// Package alias implements Walker's alias method: after an O(n log n) build,
// indices are drawn with probability proportional to their weight in O(1).
package alias

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/google/btree"
	"github.com/royalcat/spatialsample/samplemodel"
)

// Table holds, for every bucket i, the probability of keeping i on a biased
// coin flip and the alias returned otherwise.
type Table struct {
	prob  []float64
	alias []int
}

type entry struct {
	prob  float64
	index int
}

func entryLess(a, b entry) bool {
	if a.prob != b.prob {
		return a.prob < b.prob
	}
	return a.index < b.index
}

// New builds the table from non-negative weights. Weights are normalised so
// that they sum to len(weights).
func New(weights []float64) (*Table, error) {
	n := len(weights)
	if n == 0 {
		return nil, fmt.Errorf("%w: no weights", samplemodel.ErrInvalidArgument)
	}

	total := 0.0
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: weight %d is %v", samplemodel.ErrInvalidArgument, i, w)
		}
		total += w
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: weights sum to zero", samplemodel.ErrInvalidArgument)
	}

	t := &Table{
		prob:  make([]float64, n),
		alias: make([]int, n),
	}

	// sorted multiset keyed by the current normalised weight
	set := btree.NewG(16, entryLess)
	for i, w := range weights {
		set.ReplaceOrInsert(entry{prob: w * float64(n) / total, index: i})
	}

	for set.Len() > 1 {
		minEntry, _ := set.DeleteMin()
		maxEntry, _ := set.DeleteMax()

		t.prob[minEntry.index] = minEntry.prob
		t.alias[minEntry.index] = maxEntry.index

		maxEntry.prob -= 1 - minEntry.prob
		set.ReplaceOrInsert(maxEntry)
	}

	// the last entry carries what is left of the mass, 1 up to rounding
	last, _ := set.DeleteMin()
	t.prob[last.index] = 1
	t.alias[last.index] = last.index

	return t, nil
}

func (t *Table) Len() int {
	return len(t.prob)
}

func (t *Table) Probability(i int) float64 {
	return t.prob[i]
}

func (t *Table) Alias(i int) int {
	return t.alias[i]
}

// Draw picks a bucket uniformly and flips a coin biased by its probability.
func (t *Table) Draw(rng *rand.Rand) int {
	i := rng.IntN(len(t.prob))
	if rng.Float64() < t.prob[i] {
		return i
	}
	return t.alias[i]
}

func (t *Table) Sample(rng *rand.Rand, count int) ([]int, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: negative sample size %d", samplemodel.ErrInvalidArgument, count)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", samplemodel.ErrInvalidArgument)
	}

	out := make([]int, count)
	for i := range out {
		out[i] = t.Draw(rng)
	}
	return out, nil
}

func (t *Table) String() string {
	var sb strings.Builder
	sb.WriteString("Alias Table\n")
	for i := range t.prob {
		fmt.Fprintf(&sb, "i: %d  alias: %d  prob: %.4f\n", i, t.alias[i], t.prob[i])
	}
	return sb.String()
}
