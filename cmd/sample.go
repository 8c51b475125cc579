package main

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/paulmach/orb"
	"github.com/royalcat/spatialsample/aoi"
	"github.com/royalcat/spatialsample/candidates"
	"github.com/royalcat/spatialsample/geoio"
	"github.com/royalcat/spatialsample/pivotal"
	"github.com/royalcat/spatialsample/plansaver"
	"github.com/royalcat/spatialsample/samplemodel"
	"github.com/urfave/cli/v3"
)

const planVersion = 1

type areaConfig struct {
	AOI        string
	Triangles  string
	Candidates    int
	MaxCandidates int
	Method        string
	Spacing       float64
}

func areaConfigFromFlags(ctx *cli.Context) areaConfig {
	return areaConfig{
		AOI:           ctx.String("aoi"),
		Candidates:    ctx.Int("candidates"),
		MaxCandidates: ctx.Int("max-candidates"),
		Method:        ctx.String("method"),
		Spacing:       ctx.Float64("spacing"),
	}
}

// generate draws the candidate list, from the triangulation when one is
// given and from the area of interest otherwise.
func (c areaConfig) generate(rng *rand.Rand) ([]orb.Point, candidates.Method, error) {
	if c.MaxCandidates == 0 {
		c.MaxCandidates = candidates.DefaultMaxCandidates
	}

	if c.Triangles != "" {
		if c.Candidates > c.MaxCandidates {
			return nil, "", fmt.Errorf("%w: %d candidates requested, more than %d", samplemodel.ErrInvalidArgument, c.Candidates, c.MaxCandidates)
		}
		g, err := geoio.ReadGeometryFile(c.Triangles)
		if err != nil {
			return nil, "", err
		}
		mp, ok := g.(orb.MultiPolygon)
		if !ok {
			return nil, "", fmt.Errorf("%w: triangles must be a MULTIPOLYGON, got %s", samplemodel.ErrInvalidArgument, g.GeoJSONType())
		}
		tris, err := candidates.TrianglesFromMultiPolygon(mp)
		if err != nil {
			return nil, "", err
		}
		points, err := candidates.FromTriangles(rng, tris, c.Candidates)
		return points, "triangles", err
	}

	if c.AOI == "" {
		return nil, "", fmt.Errorf("%w: --aoi is required", samplemodel.ErrInvalidArgument)
	}
	method, err := candidates.ParseMethod(c.Method)
	if err != nil {
		return nil, "", err
	}
	g, err := geoio.ReadGeometryFile(c.AOI)
	if err != nil {
		return nil, "", err
	}
	area, err := aoi.New(g)
	if err != nil {
		return nil, "", err
	}
	gen, err := candidates.New(area, rng, candidates.WithMaxCandidates(c.MaxCandidates))
	if err != nil {
		return nil, "", err
	}
	points, err := gen.Generate(method, c.Candidates, c.Spacing)
	return points, method, err
}

type sampleConfig struct {
	Area    areaConfig
	Size    int
	Seed    uint64
	MaxIter int
	Cutoff  float64
	Format  geoio.Format
	Plan    string
}

func (c sampleConfig) run(w io.Writer, log *slog.Logger) (plansaver.Plan, error) {
	rng := rand.New(rand.NewPCG(c.Seed, c.Seed))

	points, method, err := c.Area.generate(rng)
	if err != nil {
		return plansaver.Plan{}, fmt.Errorf("error generating candidates: %w", err)
	}

	opts := []pivotal.Option{pivotal.WithMaxIter(c.MaxIter), pivotal.WithLogger(log)}
	if c.Cutoff != 0 {
		opts = append(opts, pivotal.WithCutoff(c.Cutoff))
	}
	sampler, err := pivotal.New(rng, opts...)
	if err != nil {
		return plansaver.Plan{}, err
	}
	units, err := samplemodel.NewUnits(points, 0)
	if err != nil {
		return plansaver.Plan{}, err
	}
	res, err := sampler.SampleUnits(units, c.Size)
	if err != nil {
		return plansaver.Plan{}, fmt.Errorf("error sampling: %w", err)
	}

	log.Info("Sample complete",
		"candidates", humanize.Comma(int64(len(points))),
		"selected", len(res.Selected),
		"iterations", humanize.Comma(int64(res.Iterations)),
		"converged", res.Converged,
	)

	plan := plansaver.Plan{
		Metadata: plansaver.Metadata{
			Version:     planVersion,
			Seed:        c.Seed,
			Method:      string(method),
			Size:        uint32(c.Size),
			DateCreated: time.Now().UTC().Truncate(time.Second),
		},
		Candidates: points,
		Sample:     samplemodel.Points(units, res.Selected),
	}

	if c.Plan != "" {
		if err := plansaver.SaveToFile(plan, c.Plan); err != nil {
			return plan, fmt.Errorf("failed to save plan: %w", err)
		}
		log.Info("Plan saved", "file", c.Plan)
	}

	return plan, writePoints(w, plan.Sample, c.Format)
}

func writePoints(w io.Writer, points []orb.Point, format geoio.Format) error {
	data, err := geoio.Encode(points, format)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func seedFromFlags(ctx *cli.Context) uint64 {
	if ctx.IsSet("seed") {
		return uint64(ctx.Int("seed"))
	}
	return rand.Uint64()
}

func outputFromFlags(ctx *cli.Context) (io.WriteCloser, error) {
	name := ctx.String("output")
	if name == "" || name == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(name)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func sample(ctx *cli.Context) error {
	format, err := geoio.ParseFormat(ctx.String("format"))
	if err != nil {
		return err
	}

	area := areaConfigFromFlags(ctx)
	area.Triangles = ctx.String("triangles")

	cfg := sampleConfig{
		Area:    area,
		Size:    ctx.Int("size"),
		Seed:    seedFromFlags(ctx),
		MaxIter: ctx.Int("maxiter"),
		Cutoff:  ctx.Float64("cutoff"),
		Format:  format,
		Plan:    ctx.String("plan"),
	}

	out, err := outputFromFlags(ctx)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	defer out.Close()

	log := slog.Default().With("seed", cfg.Seed)
	_, err = cfg.run(out, log)
	if err != nil {
		return err
	}
	return out.Close()
}

func show(ctx *cli.Context) error {
	format, err := geoio.ParseFormat(ctx.String("format"))
	if err != nil {
		return err
	}

	plan, err := plansaver.LoadFromFile(ctx.String("plan"), slog.Default())
	if err != nil {
		return err
	}

	points := plan.Sample
	if ctx.Bool("candidates") {
		points = plan.Candidates
	}
	return writePoints(os.Stdout, points, format)
}
