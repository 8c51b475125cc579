package kdtree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/paulmach/orb"
	"github.com/royalcat/spatialsample/samplemodel"
)

const DefaultLeafSize = 40

// KDTree is a read-only 2D k-d tree over a fixed point list.
//
// The tree owns no unit state: it stores positions of the original points
// (idxs) and their coordinates in tree order. A range [left, right] holding
// more than LeafSize points is split at its median position
// left+count/2, on x at even depth and y at odd depth; smaller ranges are
// unordered leaf buckets.
type KDTree struct {
	LeafSize int

	idxs   []int     // tree order -> original index
	pos    []int     // original index -> tree order
	coords []float64 // interleaved x, y in tree order
}

// Admissible reports whether the point with the given original index may be
// returned by a search.
type Admissible func(i int) bool

func New(points []orb.Point, leafSize int) (*KDTree, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no points to index", samplemodel.ErrInvalidArgument)
	}
	if leafSize < 0 {
		return nil, fmt.Errorf("%w: negative leaf size %d", samplemodel.ErrInvalidArgument, leafSize)
	}
	if leafSize == 0 {
		leafSize = DefaultLeafSize
	}
	for i, p := range points {
		if !isFinite(p[0]) || !isFinite(p[1]) {
			return nil, fmt.Errorf("%w: point %d has non-finite coordinates %v", samplemodel.ErrInvalidArgument, i, p)
		}
	}

	t := &KDTree{LeafSize: leafSize}
	t.buildIndex(points)
	return t, nil
}

// FromUnits indexes the coordinates of a unit arena.
func FromUnits(units []samplemodel.Unit, leafSize int) (*KDTree, error) {
	points := make([]orb.Point, len(units))
	for i := range units {
		points[i] = units[i].Point()
	}
	return New(points, leafSize)
}

func (t *KDTree) Len() int {
	return len(t.idxs)
}

// Point returns the coordinates of the point with original index i.
// Out of range indexes yield NaN coordinates.
func (t *KDTree) Point(i int) orb.Point {
	if i < 0 || i >= len(t.pos) {
		return orb.Point{math.NaN(), math.NaN()}
	}
	pos := t.pos[i]
	return orb.Point{t.coords[2*pos], t.coords[2*pos+1]}
}

func (t *KDTree) built() error {
	if t == nil || len(t.idxs) == 0 {
		return fmt.Errorf("%w: index queried before being built", samplemodel.ErrInvariantViolation)
	}
	return nil
}

// SearchNearest returns the original index of the admissible point nearest to
// (x, y). Exact distance ties are resolved uniformly at random with rng; a nil
// rng keeps the first point found. A nil admissible accepts every point.
func (t *KDTree) SearchNearest(rng *rand.Rand, x, y float64, admissible Admissible) (int, error) {
	if err := t.built(); err != nil {
		return -1, err
	}

	s := nearestSearch{
		tree:       t,
		qx:         x,
		qy:         y,
		admissible: admissible,
		rng:        rng,
		best:       -1,
		bestDist:   math.Inf(1),
	}
	s.visit(0, len(t.idxs)-1, 0)

	if s.best < 0 {
		return -1, fmt.Errorf("%w: no admissible neighbour of (%g, %g)", samplemodel.ErrNotFound, x, y)
	}
	return s.best, nil
}

// SearchNearestUnit finds the nearest neighbour of units[self], never
// returning self itself even when another unit shares its coordinates. With
// onlyUndefined, units that are already Selected or Excluded are skipped.
func (t *KDTree) SearchNearestUnit(rng *rand.Rand, self int, units []samplemodel.Unit, onlyUndefined bool) (int, error) {
	if self < 0 || self >= len(units) {
		return -1, fmt.Errorf("%w: unit %d out of range", samplemodel.ErrInvalidArgument, self)
	}
	admissible := ExcludeIndex(self)
	if onlyUndefined {
		admissible = All(admissible, OnlyUndefined(units))
	}
	return t.SearchNearest(rng, units[self].X, units[self].Y, admissible)
}

// FindByValue locates the stored point nearest to (x, y) within tolerance.
func (t *KDTree) FindByValue(x, y, tolerance float64) (int, error) {
	if err := t.built(); err != nil {
		return -1, err
	}

	found := -1
	foundDist := math.Inf(1)
	t.Within(x, y, tolerance, func(i int, p orb.Point) bool {
		if d := sqDist(p[0], p[1], x, y); d < foundDist {
			found, foundDist = i, d
		}
		return true
	})

	if found < 0 {
		return -1, fmt.Errorf("%w: no point within %g of (%g, %g)", samplemodel.ErrNotFound, tolerance, x, y)
	}
	return found, nil
}

// Within calls handler for every point within radius of (qx, qy) until the
// handler returns false.
func (t *KDTree) Within(qx, qy float64, radius float64, handler func(i int, p orb.Point) bool) {
	if len(t.idxs) == 0 {
		return
	}

	stack := []int{0, len(t.idxs) - 1, 0}
	r2 := radius * radius

	for len(stack) > 0 {
		axis := stack[len(stack)-1]
		right := stack[len(stack)-2]
		left := stack[len(stack)-3]
		stack = stack[:len(stack)-3]

		if left > right {
			continue
		}

		if right-left+1 <= t.LeafSize {
			for i := left; i <= right; i++ {
				x, y := t.coords[2*i], t.coords[2*i+1]
				if sqDist(x, y, qx, qy) <= r2 {
					if !handler(t.idxs[i], orb.Point{x, y}) {
						return
					}
				}
			}
			continue
		}

		m := median(left, right)
		x, y := t.coords[2*m], t.coords[2*m+1]

		if sqDist(x, y, qx, qy) <= r2 {
			if !handler(t.idxs[m], orb.Point{x, y}) {
				return
			}
		}

		nextAxis := 1 - axis

		if (axis == 0 && qx-radius <= x) || (axis != 0 && qy-radius <= y) {
			stack = append(stack, left, m-1, nextAxis)
		}

		if (axis == 0 && qx+radius >= x) || (axis != 0 && qy+radius >= y) {
			stack = append(stack, m+1, right, nextAxis)
		}
	}
}

func ExcludeIndex(self int) Admissible {
	return func(i int) bool { return i != self }
}

// OnlyUndefined admits units that have not been Selected or Excluded yet.
func OnlyUndefined(units []samplemodel.Unit) Admissible {
	return func(i int) bool { return units[i].Status == samplemodel.Undefined }
}

func All(preds ...Admissible) Admissible {
	return func(i int) bool {
		for _, p := range preds {
			if p != nil && !p(i) {
				return false
			}
		}
		return true
	}
}

type nearestSearch struct {
	tree       *KDTree
	qx, qy     float64
	admissible Admissible
	rng        *rand.Rand

	best     int
	bestDist float64
	ties     int
}

func (s *nearestSearch) visit(left, right, axis int) {
	if left > right {
		return
	}

	t := s.tree
	if right-left+1 <= t.LeafSize {
		for i := left; i <= right; i++ {
			s.consider(i)
		}
		return
	}

	m := median(left, right)
	s.consider(m)

	split := t.coords[2*m+axis]
	q := s.qx
	if axis != 0 {
		q = s.qy
	}

	// both children can hold the nearest point when the query lies within
	// the current best distance of the split line
	nearL, nearR, farL, farR := left, m-1, m+1, right
	if q >= split {
		nearL, nearR, farL, farR = m+1, right, left, m-1
	}

	s.visit(nearL, nearR, 1-axis)

	lineDist := (q - split) * (q - split)
	if lineDist <= s.bestDist {
		s.visit(farL, farR, 1-axis)
	}
}

func (s *nearestSearch) consider(pos int) {
	id := s.tree.idxs[pos]
	if s.admissible != nil && !s.admissible(id) {
		return
	}

	d := sqDist(s.tree.coords[2*pos], s.tree.coords[2*pos+1], s.qx, s.qy)
	switch {
	case d < s.bestDist:
		s.best, s.bestDist, s.ties = id, d, 1
	case d == s.bestDist:
		// reservoir over all tied points keeps each equally likely
		s.ties++
		if s.rng != nil && s.rng.IntN(s.ties) == 0 {
			s.best = id
		}
	}
}

////////////////////////////////////////////////////////////////
/// Building
////////////////////////////////////////////////////////////////

func (t *KDTree) buildIndex(points []orb.Point) {
	t.idxs = make([]int, len(points))
	for i := range points {
		t.idxs[i] = i
	}

	t.sort(points, 0, len(t.idxs)-1, 0)

	t.pos = make([]int, len(points))
	t.coords = make([]float64, 2*len(points))
	for pos, i := range t.idxs {
		t.pos[i] = pos
		t.coords[2*pos] = points[i][0]
		t.coords[2*pos+1] = points[i][1]
	}
}

func (t *KDTree) sort(points []orb.Point, left, right, axis int) {
	if right-left+1 <= t.LeafSize {
		return
	}

	other := 1 - axis
	slices.SortFunc(t.idxs[left:right+1], func(a, b int) int {
		pa, pb := points[a], points[b]
		if pa[axis] != pb[axis] {
			return cmpFloat(pa[axis], pb[axis])
		}
		if pa[other] != pb[other] {
			return cmpFloat(pa[other], pb[other])
		}
		return a - b
	})

	m := median(left, right)
	t.sort(points, left, m-1, other)
	t.sort(points, m+1, right, other)
}

func median(left, right int) int {
	return left + (right-left+1)/2
}

func cmpFloat(a, b float64) int {
	if a < b {
		return -1
	}
	return 1
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func sqDist(ax, ay, bx, by float64) float64 {
	dx := ax - bx
	dy := ay - by
	return dx*dx + dy*dy
}
