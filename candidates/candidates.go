// Package candidates draws candidate locations inside an area of interest.
// Candidates are the input of the pivotal sampler, which thins them down to a
// spatially balanced sample.
package candidates

import (
	"fmt"
	"math"
	mrand "math/rand"
	"math/rand/v2"

	"github.com/fogleman/poissondisc"
	"github.com/paulmach/orb"
	"github.com/royalcat/spatialsample/alias"
	"github.com/royalcat/spatialsample/aoi"
	"github.com/royalcat/spatialsample/samplemodel"
)

type Method string

const (
	MethodUniform Method = "uniform"
	MethodPoisson Method = "poisson"
	MethodGrid    Method = "grid"
)

func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodUniform, MethodPoisson, MethodGrid:
		return m, nil
	case "":
		return MethodUniform, nil
	}
	return "", fmt.Errorf("%w: unknown candidate method %q", samplemodel.ErrInvalidArgument, s)
}

// maxAttempts bounds rejection sampling per point
const maxAttempts = 10_000

// poissonTries is the number of attempts per active point in poisson disc sampling
const poissonTries = 30

// poissonDensity is the number of points per unit area a maximal poisson disc
// fill with distance 1 holds, roughly
const poissonDensity = 0.7

// scanFactor bounds the nodes visited over the AOI bound relative to the
// candidate limit
const scanFactor = 4

const DefaultMaxCandidates = 1_000_000

type Generator struct {
	area  *aoi.AOI
	rng   *rand.Rand
	polys *alias.Table

	maxCandidates int
}

type Option func(*Generator)

// WithMaxCandidates caps the number of candidates a single call may produce.
// Default: DefaultMaxCandidates
func WithMaxCandidates(n int) Option {
	return func(g *Generator) {
		g.maxCandidates = n
	}
}

func New(area *aoi.AOI, rng *rand.Rand, opts ...Option) (*Generator, error) {
	if area == nil {
		return nil, fmt.Errorf("%w: no area of interest", samplemodel.ErrInvalidArgument)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", samplemodel.ErrInvalidArgument)
	}

	polys, err := alias.New(area.Areas())
	if err != nil {
		return nil, fmt.Errorf("error weighting polygons: %w", err)
	}

	g := &Generator{area: area, rng: rng, polys: polys, maxCandidates: DefaultMaxCandidates}
	for _, o := range opts {
		o(g)
	}
	if g.maxCandidates <= 0 {
		return nil, fmt.Errorf("%w: candidate limit must be positive, got %d", samplemodel.ErrInvalidArgument, g.maxCandidates)
	}
	return g, nil
}

func (g *Generator) checkCount(n int) error {
	if n > g.maxCandidates {
		return fmt.Errorf("%w: %d candidates requested, more than %d", samplemodel.ErrInvalidArgument, n, g.maxCandidates)
	}
	return nil
}

// checkDensity rejects a spacing before any point is placed. kept estimates
// the candidates inside the area, scanned the nodes visited over its bound.
func (g *Generator) checkDensity(method Method, kept, scanned float64) error {
	// one extra candidate absorbs rounding when the spacing was derived from the limit
	limit := float64(g.maxCandidates) + 1
	if !(kept <= limit) || !(scanned <= scanFactor*limit) {
		return fmt.Errorf("%w: %s spacing yields about %.3g candidates, more than %d",
			samplemodel.ErrInvalidArgument, method, math.Max(kept, scanned/scanFactor), g.maxCandidates)
	}
	return nil
}

func isSpacing(d float64) bool {
	return d > 0 && !math.IsInf(d, 1)
}

// Generate dispatches to the generator for method. For uniform sampling n is
// the number of candidates; for poisson and grid sampling spacing is the
// minimum distance or cell size, derived from n when zero.
func (g *Generator) Generate(method Method, n int, spacing float64) ([]orb.Point, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative candidate count %d", samplemodel.ErrInvalidArgument, n)
	}
	if spacing < 0 || math.IsNaN(spacing) || math.IsInf(spacing, 1) {
		return nil, fmt.Errorf("%w: invalid spacing %v", samplemodel.ErrInvalidArgument, spacing)
	}
	if err := g.checkCount(n); err != nil {
		return nil, err
	}

	switch method {
	case MethodUniform, "":
		return g.Uniform(n)
	case MethodPoisson:
		if spacing == 0 {
			// a maximal poisson disc packing holds roughly 0.7/r² points per unit area
			spacing = math.Sqrt(poissonDensity * g.area.Area() / float64(max(n, 1)))
		}
		return g.Poisson(spacing)
	case MethodGrid:
		if spacing == 0 {
			spacing = math.Sqrt(g.area.Area() / float64(max(n, 1)))
		}
		return g.Grid(spacing, spacing)
	}
	return nil, fmt.Errorf("%w: unknown candidate method %q", samplemodel.ErrInvalidArgument, method)
}

// Uniform draws n points with uniform density over the area: a polygon is
// picked with probability proportional to its area, then a point is
// rejection sampled inside it.
func (g *Generator) Uniform(n int) ([]orb.Point, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative candidate count %d", samplemodel.ErrInvalidArgument, n)
	}
	if err := g.checkCount(n); err != nil {
		return nil, err
	}

	polygons := g.area.Polygons()
	points := make([]orb.Point, 0, n)
	for range n {
		i := g.polys.Draw(g.rng)
		bound := polygons[i].Bound()

		found := false
		for range maxAttempts {
			p := orb.Point{
				bound.Min[0] + g.rng.Float64()*(bound.Max[0]-bound.Min[0]),
				bound.Min[1] + g.rng.Float64()*(bound.Max[1]-bound.Min[1]),
			}
			if g.area.PolygonContains(i, p) {
				points = append(points, p)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: polygon %d covers too little of its bound to sample", samplemodel.ErrInvalidArgument, i)
		}
	}
	return points, nil
}

// Poisson fills the area with points no closer than minDist to each other.
func (g *Generator) Poisson(minDist float64) ([]orb.Point, error) {
	if !isSpacing(minDist) {
		return nil, fmt.Errorf("%w: poisson distance must be positive, got %v", samplemodel.ErrInvalidArgument, minDist)
	}

	bound := g.area.Bound()
	perArea := poissonDensity / (minDist * minDist)
	if err := g.checkDensity(MethodPoisson, g.area.Area()*perArea, boundArea(bound)*perArea); err != nil {
		return nil, err
	}

	rnd := mrand.New(mrand.NewSource(int64(g.rng.Uint64())))
	points := poissondisc.Sample(bound.Min.X(), bound.Min.Y(), bound.Max.X(), bound.Max.Y(), minDist, poissonTries, rnd)

	pointsInside := make([]orb.Point, 0, len(points))
	for _, p := range points {
		point := orb.Point{p.X, p.Y}
		if g.area.Contains(point) {
			pointsInside = append(pointsInside, point)
		}
	}
	return pointsInside, nil
}

// Grid lays a regular grid with a random origin over the area and keeps the
// nodes that fall inside.
func (g *Generator) Grid(dx, dy float64) ([]orb.Point, error) {
	if !isSpacing(dx) || !isSpacing(dy) {
		return nil, fmt.Errorf("%w: grid spacing must be positive, got %v x %v", samplemodel.ErrInvalidArgument, dx, dy)
	}

	bound := g.area.Bound()
	kept := g.area.Area() / (dx * dy)
	scanned := (bound.Max.X()-bound.Min.X())/dx + 1
	scanned *= (bound.Max.Y()-bound.Min.Y())/dy + 1
	if err := g.checkDensity(MethodGrid, kept, scanned); err != nil {
		return nil, err
	}

	x0 := bound.Min.X() + g.rng.Float64()*dx
	y0 := bound.Min.Y() + g.rng.Float64()*dy

	cols := int((bound.Max.X()-x0)/dx) + 1
	rows := int((bound.Max.Y()-y0)/dy) + 1

	points := make([]orb.Point, 0, min(cols*rows, int(kept)+1))
	for i := range cols {
		for j := range rows {
			p := orb.Point{x0 + float64(i)*dx, y0 + float64(j)*dy}
			if g.area.Contains(p) {
				points = append(points, p)
			}
		}
	}
	return points, nil
}

func boundArea(b orb.Bound) float64 {
	return (b.Max.X() - b.Min.X()) * (b.Max.Y() - b.Min.Y())
}
