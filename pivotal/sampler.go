// Package pivotal draws spatially balanced samples with the local pivotal
// method: neighbouring units repeatedly compete for inclusion probability
// until every unit is either selected or excluded.
package pivotal

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/paulmach/orb"
	"github.com/royalcat/spatialsample/kdtree"
	"github.com/royalcat/spatialsample/samplemodel"
)

type Sampler struct {
	rng      *rand.Rand
	cutoff   float64
	maxIter  int
	leafSize int
	log      *slog.Logger
}

type Result struct {
	// Selected holds the indices of sampled units in candidate order.
	Selected []int
	// Iterations is the number of draws made from the active set.
	Iterations int
	// Converged is false when the iteration budget ran out before every
	// unit reached a terminal status.
	Converged bool
}

func New(rng *rand.Rand, opts ...Option) (*Sampler, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", samplemodel.ErrInvalidArgument)
	}

	options := loadOptions(opts...)
	if !(options.cutoff > 0.5 && options.cutoff <= 1) {
		return nil, fmt.Errorf("%w: cutoff %v outside (0.5, 1]", samplemodel.ErrInvalidArgument, options.cutoff)
	}
	if options.maxIter < 0 {
		return nil, fmt.Errorf("%w: negative iteration limit %d", samplemodel.ErrInvalidArgument, options.maxIter)
	}
	if options.leafSize < 0 {
		return nil, fmt.Errorf("%w: negative leaf size %d", samplemodel.ErrInvalidArgument, options.leafSize)
	}

	return &Sampler{
		rng:      rng,
		cutoff:   options.cutoff,
		maxIter:  options.maxIter,
		leafSize: options.leafSize,
		log:      options.logger.With("component", "pivotal"),
	}, nil
}

// Sample returns at most size of the candidates, spread out across space.
func (s *Sampler) Sample(candidates []orb.Point, size int) ([]orb.Point, error) {
	if err := validate(len(candidates), size); err != nil {
		return nil, err
	}
	if size == 0 {
		return []orb.Point{}, nil
	}
	if size >= len(candidates) {
		return append([]orb.Point(nil), candidates...), nil
	}

	units, err := samplemodel.NewUnits(candidates, float64(size)/float64(len(candidates)))
	if err != nil {
		return nil, err
	}

	res, err := s.SampleUnits(units, size)
	if err != nil {
		return nil, err
	}
	return samplemodel.Points(units, res.Selected), nil
}

// SampleUnits runs the pivotal contest on a caller-owned unit arena. Every
// unit is reset to Undefined with probability size/len(units); statuses and
// probabilities are left in their final state on return.
func (s *Sampler) SampleUnits(units []samplemodel.Unit, size int) (Result, error) {
	n := len(units)
	if err := validate(n, size); err != nil {
		return Result{}, err
	}

	if size == 0 {
		return Result{Selected: []int{}, Converged: true}, nil
	}
	if size >= n {
		all := make([]int, n)
		for i := range units {
			all[i] = i
			units[i].Prob, units[i].Status = 1, samplemodel.Selected
		}
		return Result{Selected: all, Converged: true}, nil
	}

	initProb := float64(size) / float64(n)
	for i := range units {
		units[i].Prob, units[i].Status = initProb, samplemodel.Undefined
	}

	tree, err := kdtree.FromUnits(units, s.leafSize)
	if err != nil {
		return Result{}, err
	}

	maxIter := s.maxIter
	if maxIter == 0 {
		maxIter = 10 * n
	}

	active := newActiveSet(n)

	iter := 0
	for ; iter < maxIter && active.Len() > 0; iter++ {
		i := active.Random(s.rng)

		if units[i].IsTerminal() {
			active.Remove(i)
			continue
		}

		j, err := tree.SearchNearestUnit(s.rng, i, units, true)
		if errors.Is(err, samplemodel.ErrNotFound) {
			// last undefined unit, nothing left to compete with
			active.Remove(i)
			continue
		}
		if err != nil {
			return Result{}, err
		}

		s.UpdateProbability(&units[i], &units[j])

		if units[i].IsTerminal() {
			active.Remove(i)
		}
		if units[j].IsTerminal() {
			active.Remove(j)
		}
	}

	converged := active.Len() == 0

	// units that never fully converged are kept when more likely than not
	selected := make([]int, 0, size)
	for i := range units {
		if units[i].Prob > 0.5 {
			selected = append(selected, i)
		}
	}

	if !converged {
		s.log.Warn("sample did not converge", "iterations", iter, "active", active.Len())
	}
	s.log.Debug("sampling complete",
		"candidates", n,
		"size", size,
		"selected", len(selected),
		"iterations", iter,
		"converged", converged,
	)

	return Result{Selected: selected, Iterations: iter, Converged: converged}, nil
}

// UpdateProbability lets two units bet their inclusion probability on a
// weighted coin. The pair's total probability is conserved and each unit's
// expected probability is unchanged. Afterwards a unit at or above the cutoff
// is selected and one at or below 1-cutoff is excluded.
func (s *Sampler) UpdateProbability(a, b *samplemodel.Unit) {
	p2 := b.Prob
	total := a.Prob + p2

	switch {
	case total <= 0:
		a.Prob, b.Prob = 0, 0
	case total < 1:
		if s.rng.Float64() > p2/total {
			a.Prob = total
		} else {
			a.Prob = 0
		}
		b.Prob = total - a.Prob
	case total >= 2:
		a.Prob, b.Prob = 1, 1
	default:
		if s.rng.Float64() <= (1-p2)/(2-total) {
			a.Prob = 1
		} else {
			a.Prob = total - 1
		}
		b.Prob = total - a.Prob
	}

	s.settle(a)
	s.settle(b)
}

func (s *Sampler) settle(u *samplemodel.Unit) {
	if u.Prob >= s.cutoff {
		u.Select()
	} else if u.Prob <= 1-s.cutoff {
		u.Exclude()
	}
}

func validate(n, size int) error {
	if n == 0 {
		return fmt.Errorf("%w: empty candidate list", samplemodel.ErrInvalidArgument)
	}
	if size < 0 {
		return fmt.Errorf("%w: negative sample size %d", samplemodel.ErrInvalidArgument, size)
	}
	return nil
}

// activeSet is an unordered set of unit indices with O(1) random draw and
// removal.
type activeSet struct {
	items []int
	slots []int // unit index -> position in items, -1 once removed
}

func newActiveSet(n int) *activeSet {
	a := &activeSet{
		items: make([]int, n),
		slots: make([]int, n),
	}
	for i := range n {
		a.items[i] = i
		a.slots[i] = i
	}
	return a
}

func (a *activeSet) Len() int {
	return len(a.items)
}

func (a *activeSet) Random(rng *rand.Rand) int {
	return a.items[rng.IntN(len(a.items))]
}

func (a *activeSet) Remove(i int) {
	slot := a.slots[i]
	if slot < 0 {
		return
	}
	last := len(a.items) - 1
	moved := a.items[last]
	a.items[slot] = moved
	a.slots[moved] = slot
	a.items = a.items[:last]
	a.slots[i] = -1
}
