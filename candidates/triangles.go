package candidates

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/paulmach/orb"
	"github.com/royalcat/spatialsample/alias"
	"github.com/royalcat/spatialsample/samplemodel"
)

// Triangle is one face of a polygon triangulation.
type Triangle [3]orb.Point

// SignedArea is half the 2D cross product of the edges leaving the first
// vertex; positive for counter-clockwise triangles.
func (t Triangle) SignedArea() float64 {
	ux, uy := t[1][0]-t[0][0], t[1][1]-t[0][1]
	vx, vy := t[2][0]-t[0][0], t[2][1]-t[0][1]
	return (ux*vy - uy*vx) / 2
}

func (t Triangle) Area() float64 {
	return math.Abs(t.SignedArea())
}

// RandomPoint returns a uniformly distributed point inside the triangle. Two
// random edge scales span a parallelogram; points landing in its far half are
// reflected back into the triangle.
func (t Triangle) RandomPoint(rng *rand.Rand) orb.Point {
	s1, s2 := rng.Float64(), rng.Float64()
	if s1+s2 > 1 {
		s1, s2 = 1-s1, 1-s2
	}
	return orb.Point{
		t[0][0] + s1*(t[1][0]-t[0][0]) + s2*(t[2][0]-t[0][0]),
		t[0][1] + s1*(t[1][1]-t[0][1]) + s2*(t[2][1]-t[0][1]),
	}
}

// TrianglesFromMultiPolygon reads a triangulation encoded as polygons whose
// outer ring has exactly three distinct vertices.
func TrianglesFromMultiPolygon(mp orb.MultiPolygon) ([]Triangle, error) {
	tris := make([]Triangle, 0, len(mp))
	for i, poly := range mp {
		if len(poly) != 1 {
			return nil, fmt.Errorf("%w: polygon %d has holes, not a triangle", samplemodel.ErrInvalidArgument, i)
		}
		ring := poly[0]
		if len(ring) == 4 && ring.Closed() {
			ring = ring[:3]
		}
		if len(ring) != 3 {
			return nil, fmt.Errorf("%w: polygon %d has %d vertices, not a triangle", samplemodel.ErrInvalidArgument, i, len(ring))
		}
		tris = append(tris, Triangle{ring[0], ring[1], ring[2]})
	}
	return tris, nil
}

// FromTriangles draws n points with uniform density over a triangulated area:
// a triangle is picked with probability proportional to its area, then a point
// is placed uniformly inside it.
func FromTriangles(rng *rand.Rand, tris []Triangle, n int) ([]orb.Point, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", samplemodel.ErrInvalidArgument)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative candidate count %d", samplemodel.ErrInvalidArgument, n)
	}

	areas := make([]float64, len(tris))
	for i, tri := range tris {
		areas[i] = tri.Area()
	}
	table, err := alias.New(areas)
	if err != nil {
		return nil, fmt.Errorf("error weighting triangles: %w", err)
	}

	idx, err := table.Sample(rng, n)
	if err != nil {
		return nil, err
	}

	points := make([]orb.Point, len(idx))
	for i, t := range idx {
		points[i] = tris[t].RandomPoint(rng)
	}
	return points, nil
}

// FromTriangles draws n points over a triangulation of the generator's area
// using the generator's random source.
func (g *Generator) FromTriangles(tris []Triangle, n int) ([]orb.Point, error) {
	if err := g.checkCount(n); err != nil {
		return nil, err
	}
	return FromTriangles(g.rng, tris, n)
}
