package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"
	"github.com/royalcat/spatialsample/geoio"
	"github.com/royalcat/spatialsample/plansaver"
	"github.com/royalcat/spatialsample/samplemodel"
)

var discard = slog.New(slog.DiscardHandler)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSampleRun(t *testing.T) {
	aoiFile := writeFile(t, "aoi.wkt", "POLYGON((0 0,10 0,10 15,0 15,0 0))")
	planFile := filepath.Join(t.TempDir(), "plan.sspl.zst")

	cfg := sampleConfig{
		Area:   areaConfig{AOI: aoiFile, Candidates: 500, Method: "uniform"},
		Size:   20,
		Seed:   11,
		Format: geoio.FormatWKT,
		Plan:   planFile,
	}

	var out bytes.Buffer
	plan, err := cfg.run(&out, discard)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Candidates) != 500 || len(plan.Sample) != 20 {
		t.Fatalf("unexpected plan sizes %d / %d", len(plan.Candidates), len(plan.Sample))
	}

	g, err := wkt.Unmarshal(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatal(err)
	}
	if mp, ok := g.(orb.MultiPoint); !ok || len(mp) != 20 {
		t.Fatalf("expected 20 points of output, got %v", g)
	}

	loaded, err := plansaver.LoadFromFile(planFile, discard)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Seed != 11 || loaded.Method != "uniform" || loaded.Size != 20 || len(loaded.Sample) != 20 {
		t.Fatalf("unexpected saved plan metadata %+v", loaded.Metadata)
	}

	// same seed, same sample
	var again bytes.Buffer
	if _, err := cfg.run(&again, discard); err != nil {
		t.Fatal(err)
	}
	if out.String() != again.String() {
		t.Fatal("seeded runs produced different samples")
	}
}

func TestSampleRunTriangles(t *testing.T) {
	triFile := writeFile(t, "tris.wkt", "MULTIPOLYGON(((0 0,4 0,0 4,0 0)),((4 0,4 4,0 4,4 0)))")
	square := orb.Polygon{{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}}}

	cfg := sampleConfig{
		Area:   areaConfig{Triangles: triFile, Candidates: 200},
		Size:   10,
		Seed:   3,
		Format: geoio.FormatGeoJSON,
	}
	var out bytes.Buffer
	plan, err := cfg.run(&out, discard)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Method != "triangles" || len(plan.Sample) != 10 {
		t.Fatalf("unexpected plan %+v", plan.Metadata)
	}
	for _, p := range plan.Candidates {
		if !planar.PolygonContains(square, p) {
			t.Fatalf("candidate %v outside the triangulation", p)
		}
	}
	if !strings.Contains(out.String(), `"FeatureCollection"`) {
		t.Fatalf("expected geojson output, got %s", out.String())
	}
}

func TestSampleRunErrors(t *testing.T) {
	aoiFile := writeFile(t, "aoi.wkt", "POLYGON((0 0,10 0,10 15,0 15,0 0))")

	tests := []sampleConfig{
		{Area: areaConfig{Candidates: 10}, Size: 2},
		{Area: areaConfig{AOI: aoiFile, Candidates: 10, Method: "spiral"}, Size: 2},
		{Area: areaConfig{AOI: aoiFile, Candidates: 10}, Size: -1},
		{Area: areaConfig{AOI: aoiFile, Candidates: 10}, Size: 2, Cutoff: 0.2},
		{Area: areaConfig{AOI: aoiFile, Candidates: 10, MaxCandidates: 5}, Size: 2},
		{Area: areaConfig{AOI: aoiFile, Method: "grid", Spacing: 1e-12}, Size: 2},
		{Area: areaConfig{AOI: aoiFile, Method: "poisson", Spacing: 1e-6}, Size: 2},
	}
	for _, cfg := range tests {
		if _, err := cfg.run(&bytes.Buffer{}, discard); !errors.Is(err, samplemodel.ErrInvalidArgument) {
			t.Fatalf("%+v: expected invalid argument, got %v", cfg, err)
		}
	}
}

func TestEvaluateRun(t *testing.T) {
	aoiFile := writeFile(t, "aoi.geojson", `{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,15],[0,15],[0,0]]]}`)

	cfg := evaluateConfig{
		Area:       areaConfig{AOI: aoiFile, Candidates: 1000, Method: "uniform"},
		Size:       50,
		Replicates: 8,
		Threads:    2,
		Seed:       5,
	}

	var calls atomic.Int64
	var out bytes.Buffer
	report, err := cfg.run(context.Background(), &out, func() { calls.Add(1) })
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 8 || len(report.Replicates) != 8 {
		t.Fatalf("expected 8 replicates, progress %d", calls.Load())
	}
	if report.Ratio <= 1 {
		t.Fatalf("expected the pivotal samples to spread better, ratio %v", report.Ratio)
	}
	if !strings.Contains(out.String(), "ratio:") {
		t.Fatalf("report misses the ratio:\n%s", out.String())
	}
}
