// Package aoi holds the area of interest candidates are drawn from.
package aoi

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/royalcat/spatialsample/samplemodel"
	"github.com/tidwall/qtree"
)

// AOI is a read-only polygonal area. Polygon bounds are kept in a quad tree so
// containment checks only run the ring test on polygons whose bound matches.
type AOI struct {
	polygons []orb.Polygon
	areas    []float64
	area     float64
	bound    orb.Bound
	qt       qtree.QTree
}

// New accepts a Polygon or MultiPolygon. Ring orientation and holes are
// expected to be normalised already.
func New(g orb.Geometry) (*AOI, error) {
	var polygons []orb.Polygon
	switch g := g.(type) {
	case orb.Polygon:
		polygons = []orb.Polygon{g}
	case orb.MultiPolygon:
		polygons = g
	case nil:
		return nil, fmt.Errorf("%w: no geometry", samplemodel.ErrInvalidArgument)
	default:
		return nil, fmt.Errorf("%w: geometry must be a Polygon or MultiPolygon, got %s", samplemodel.ErrInvalidArgument, g.GeoJSONType())
	}

	a := &AOI{}
	for _, poly := range polygons {
		if len(poly) == 0 || len(poly[0]) < 3 {
			continue
		}
		area := planar.Area(poly)
		if area <= 0 {
			continue
		}

		bound := poly.Bound()
		if len(a.polygons) == 0 {
			a.bound = bound
		} else {
			a.bound = a.bound.Union(bound)
		}

		a.qt.Insert(bound.Min, bound.Max, len(a.polygons))
		a.polygons = append(a.polygons, poly)
		a.areas = append(a.areas, area)
		a.area += area
	}

	if len(a.polygons) == 0 {
		return nil, fmt.Errorf("%w: geometry has no area", samplemodel.ErrInvalidArgument)
	}
	return a, nil
}

func (a *AOI) Contains(point orb.Point) bool {
	found := false
	a.qt.Search(point, point, func(_, _ [2]float64, data interface{}) bool {
		if planar.PolygonContains(a.polygons[data.(int)], point) {
			found = true
			return false
		}
		return true
	})
	return found
}

// PolygonContains checks a single member polygon.
func (a *AOI) PolygonContains(i int, point orb.Point) bool {
	return planar.PolygonContains(a.polygons[i], point)
}

func (a *AOI) Bound() orb.Bound {
	return a.bound
}

func (a *AOI) Polygons() []orb.Polygon {
	return a.polygons
}

// Areas returns the planar area of each polygon, holes subtracted.
func (a *AOI) Areas() []float64 {
	return a.areas
}

func (a *AOI) Area() float64 {
	return a.area
}
