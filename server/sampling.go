package server

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/royalcat/spatialsample/aoi"
	"github.com/royalcat/spatialsample/candidates"
	"github.com/royalcat/spatialsample/geoio"
	"github.com/royalcat/spatialsample/pivotal"
	"github.com/royalcat/spatialsample/samplemodel"
	"go.opentelemetry.io/otel/attribute"
)

// sample runs the whole pipeline for one request: parse the area, draw
// candidates, thin them with the pivotal method. Requests carrying a seed are
// deterministic and memoised.
func (s *server) sample(ctx context.Context, req SampleRequest) (SampleResponse, error) {
	if req.Poly == "" {
		return SampleResponse{}, fmt.Errorf("%w: poly is required", samplemodel.ErrInvalidArgument)
	}
	if req.Size <= 0 || req.Size > s.cfg.MaxSize {
		return SampleResponse{}, fmt.Errorf("%w: nrplots must be in [1, %d], got %d", samplemodel.ErrInvalidArgument, s.cfg.MaxSize, req.Size)
	}
	if req.Candidates == 0 {
		req.Candidates = s.cfg.DefaultCandidates
	}
	if req.Candidates < 0 || req.Candidates > s.cfg.MaxCandidates {
		return SampleResponse{}, fmt.Errorf("%w: candidates must be in [1, %d], got %d", samplemodel.ErrInvalidArgument, s.cfg.MaxCandidates, req.Candidates)
	}
	if req.Method == "" {
		req.Method = string(s.cfg.DefaultMethod)
	}
	method, err := candidates.ParseMethod(req.Method)
	if err != nil {
		return SampleResponse{}, err
	}

	var key string
	if req.Seed != nil {
		key = memoKey(req)
		if res, ok := s.cache.Load(key); ok {
			return res, nil
		}
	}

	seed := rand.Uint64()
	if req.Seed != nil {
		seed = *req.Seed
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	geom, err := geoio.ParseGeometry([]byte(req.Poly))
	if err != nil {
		return SampleResponse{}, err
	}
	area, err := aoi.New(geom)
	if err != nil {
		return SampleResponse{}, err
	}
	gen, err := candidates.New(area, rng, candidates.WithMaxCandidates(s.cfg.MaxCandidates))
	if err != nil {
		return SampleResponse{}, err
	}
	points, err := gen.Generate(method, req.Candidates, req.Spacing)
	if err != nil {
		return SampleResponse{}, err
	}
	if len(points) > s.cfg.MaxCandidates {
		return SampleResponse{}, fmt.Errorf("%w: spacing yields %d candidates, more than %d", samplemodel.ErrInvalidArgument, len(points), s.cfg.MaxCandidates)
	}

	sampler, err := pivotal.New(rng, pivotal.WithLogger(s.log))
	if err != nil {
		return SampleResponse{}, err
	}
	units, err := samplemodel.NewUnits(points, 0)
	if err != nil {
		return SampleResponse{}, err
	}
	result, err := sampler.SampleUnits(units, req.Size)
	if err != nil {
		return SampleResponse{}, err
	}

	res := SampleResponse{
		Seed:       seed,
		Method:     string(method),
		Candidates: len(points),
		Iterations: result.Iterations,
		Converged:  result.Converged,
		Points:     make([][2]float64, len(result.Selected)),
	}
	for i, idx := range result.Selected {
		res.Points[i] = [2]float64{units[idx].X, units[idx].Y}
	}

	s.log.DebugContext(ctx, "sample generated",
		"seed", seed,
		"method", method,
		"candidates", len(points),
		"size", len(res.Points),
	)

	if key != "" {
		s.cache.Store(key, res)
	}
	return res, nil
}

func pointsOf(res SampleResponse) []orb.Point {
	points := make([]orb.Point, len(res.Points))
	for i, p := range res.Points {
		points[i] = orb.Point(p)
	}
	return points
}

func sampleAttributes(requestID string, req SampleRequest) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("request_id", requestID),
		attribute.Int("nrplots", req.Size),
		attribute.Int("candidates", req.Candidates),
		attribute.String("method", req.Method),
	}
	if req.Seed != nil {
		attrs = append(attrs, attribute.String("seed", strconv.FormatUint(*req.Seed, 10)))
	}
	return attrs
}

func memoKey(req SampleRequest) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(*req.Seed, 10))
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(req.Size))
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(req.Candidates))
	sb.WriteByte('|')
	sb.WriteString(req.Method)
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatFloat(req.Spacing, 'g', -1, 64))
	sb.WriteByte('|')
	sb.WriteString(req.Poly)
	return sb.String()
}

// memo holds responses of seeded requests. It is cleared wholesale when full.
type memo struct {
	m    *xsync.MapOf[string, SampleResponse]
	size int
}

func newMemo(size int) *memo {
	return &memo{
		m:    xsync.NewMapOf[string, SampleResponse](),
		size: size,
	}
}

func (c *memo) Load(key string) (SampleResponse, bool) {
	if c.size <= 0 {
		return SampleResponse{}, false
	}
	return c.m.Load(key)
}

func (c *memo) Store(key string, res SampleResponse) {
	if c.size <= 0 {
		return
	}
	if c.m.Size() >= c.size {
		c.m.Clear()
	}
	c.m.Store(key, res)
}

func (c *memo) Len() int {
	return c.m.Size()
}
