package alias_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/royalcat/spatialsample/alias"
	"github.com/royalcat/spatialsample/samplemodel"
)

// reconstruct returns the exact distribution a table encodes.
func reconstruct(table *alias.Table) []float64 {
	n := table.Len()
	mass := make([]float64, n)
	for i := 0; i < n; i++ {
		p := table.Probability(i)
		mass[i] += p / float64(n)
		mass[table.Alias(i)] += (1 - p) / float64(n)
	}
	return mass
}

func TestTableReproducesWeights(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))

	cases := [][]float64{
		{1},
		{1, 1, 1, 1, 1},
		{4, 1, 1, 1, 1},
		{0, 3, 0, 1},
		{0.001, 1000, 2.5, 7, 7, 7},
	}
	random := make([]float64, 257)
	for i := range random {
		random[i] = rng.Float64() * 100
	}
	cases = append(cases, random)

	for _, weights := range cases {
		table, err := alias.New(weights)
		if err != nil {
			t.Fatal(err)
		}
		total := 0.0
		for _, w := range weights {
			total += w
		}
		for i, m := range reconstruct(table) {
			if math.Abs(m-weights[i]/total) > 1e-12 {
				t.Fatalf("weights %v: bucket %d has mass %v, expected %v", weights, i, m, weights[i]/total)
			}
		}
		for i := 0; i < table.Len(); i++ {
			if p := table.Probability(i); p < -1e-12 || p > 1+1e-12 {
				t.Fatalf("bucket %d probability %v outside [0, 1]", i, p)
			}
		}
	}
}

func frequencies(t *testing.T, weights []float64, draws int) []float64 {
	t.Helper()
	table, err := alias.New(weights)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := table.Sample(rand.New(rand.NewPCG(21, 22)), draws)
	if err != nil {
		t.Fatal(err)
	}
	if len(idx) != draws {
		t.Fatalf("expected %d draws, got %d", draws, len(idx))
	}
	freq := make([]float64, len(weights))
	for _, i := range idx {
		freq[i]++
	}
	for i := range freq {
		freq[i] /= float64(draws)
	}
	return freq
}

func TestUniformWeights(t *testing.T) {
	freq := frequencies(t, []float64{1, 1, 1, 1, 1}, 100_000)
	for i, f := range freq {
		if math.Abs(f-0.2) > 0.01 {
			t.Fatalf("index %d drawn with frequency %.4f, expected 0.2", i, f)
		}
	}
}

func TestSkewedWeights(t *testing.T) {
	freq := frequencies(t, []float64{4, 1, 1, 1, 1}, 100_000)
	for i := 1; i < len(freq); i++ {
		ratio := freq[0] / freq[i]
		if math.Abs(ratio-4) > 0.3 {
			t.Fatalf("index 0 drawn %.2f times as often as index %d, expected 4", ratio, i)
		}
	}
}

func TestZeroWeightNeverDrawn(t *testing.T) {
	freq := frequencies(t, []float64{0, 2, 0, 2}, 50_000)
	if freq[0] != 0 || freq[2] != 0 {
		t.Fatalf("zero weight buckets drawn: %v", freq)
	}
}

func TestNewErrors(t *testing.T) {
	for _, weights := range [][]float64{
		nil,
		{0, 0},
		{1, -1},
		{math.NaN()},
		{math.Inf(1), 1},
	} {
		if _, err := alias.New(weights); !errors.Is(err, samplemodel.ErrInvalidArgument) {
			t.Fatalf("weights %v: expected invalid argument, got %v", weights, err)
		}
	}

	table, err := alias.New([]float64{1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := table.Sample(rand.New(rand.NewPCG(1, 1)), -1); !errors.Is(err, samplemodel.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for negative count, got %v", err)
	}
}

func BenchmarkDraw(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 1))
	weights := make([]float64, 10_000)
	for i := range weights {
		weights[i] = rng.Float64()
	}
	table, err := alias.New(weights)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		table.Draw(rng)
	}
}
