package aoi_test

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/royalcat/spatialsample/aoi"
	"github.com/royalcat/spatialsample/samplemodel"
)

func polygonFromBounds(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		orb.Point{minX, minY},
		orb.Point{maxX, minY},
		orb.Point{maxX, maxY},
		orb.Point{minX, maxY},
		orb.Point{minX, minY},
	}}
}

func TestContains(t *testing.T) {
	area, err := aoi.New(orb.MultiPolygon{
		polygonFromBounds(0, 0, 1, 1),
		polygonFromBounds(-1, -1, 0, 0),
	})
	if err != nil {
		t.Fatal(err)
	}

	if !area.Contains(orb.Point{0.5, 0.5}) {
		t.Fatalf("expected first square to contain point")
	}
	if !area.Contains(orb.Point{-0.5, -0.5}) {
		t.Fatalf("expected second square to contain point")
	}
	if area.Contains(orb.Point{0.5, -0.5}) {
		t.Fatalf("expected gap between squares to be outside")
	}
	if area.Area() != 2 {
		t.Fatalf("expected area 2, got %v", area.Area())
	}
	if b := area.Bound(); b.Min != (orb.Point{-1, -1}) || b.Max != (orb.Point{1, 1}) {
		t.Fatalf("unexpected bound %v", b)
	}
}

func TestHole(t *testing.T) {
	poly := polygonFromBounds(0, 0, 4, 4)
	hole := polygonFromBounds(1, 1, 3, 3)[0]
	hole.Reverse()
	poly = append(poly, hole)

	area, err := aoi.New(poly)
	if err != nil {
		t.Fatal(err)
	}
	if area.Contains(orb.Point{2, 2}) {
		t.Fatalf("expected hole to be outside")
	}
	if !area.Contains(orb.Point{0.5, 2}) {
		t.Fatalf("expected ring to be inside")
	}
	if area.Area() != 12 {
		t.Fatalf("expected area 12, got %v", area.Area())
	}
}

func TestNewErrors(t *testing.T) {
	for _, g := range []orb.Geometry{
		nil,
		orb.Point{1, 1},
		orb.LineString{{0, 0}, {1, 1}},
		polygonFromBounds(0, 0, 0, 0),
	} {
		if _, err := aoi.New(g); !errors.Is(err, samplemodel.ErrInvalidArgument) {
			t.Fatalf("%v: expected invalid argument, got %v", g, err)
		}
	}
}

func FuzzContains(f *testing.F) {
	f.Add(0.0, 0.0, 1.0, 1.0, 0.5, 0.5)
	f.Add(0.0, 0.0, 1.0, 1.0, 1.5, 1.5)

	f.Fuzz(func(t *testing.T, minX, minY, maxX, maxY, pointX, pointY float64) {
		for _, v := range []float64{minX, minY, maxX, maxY, pointX, pointY} {
			if math.IsNaN(v) || math.Abs(v) > 1e100 {
				t.Skip()
			}
		}
		polygon := polygonFromBounds(minX, minY, maxX, maxY)
		if !(planar.Area(polygon) > 0) {
			t.Skip()
		}
		point := orb.Point{pointX, pointY}

		area, err := aoi.New(polygon)
		if err != nil {
			t.Fatal(err)
		}
		if expect := planar.PolygonContains(polygon, point); expect != area.Contains(point) {
			t.Fatalf("expected %v, got %v", expect, !expect)
		}
	})
}
