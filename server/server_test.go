package server

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/valyala/fasthttp"
)

const testPoly = "POLYGON((0 0,100 0,100 50,0 50,0 0))"

func newTestServer(t testing.TB) *server {
	t.Helper()
	s, err := newServer(ConfigDefault(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func getRequestCtx(query url.Values) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(http.MethodGet)
	ctx.Request.SetRequestURI("/sample?" + query.Encode())
	return ctx
}

func postRequestCtx(body string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(http.MethodPost)
	ctx.Request.SetRequestURI("/sample")
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	return ctx
}

func TestSampleHandlerUsage(t *testing.T) {
	s := newTestServer(t)

	for _, q := range []url.Values{
		{},
		{"poly": {testPoly}},
		{"nrplots": {"10"}},
		{"poly": {testPoly}, "nrplots": {"zero"}},
	} {
		ctx := getRequestCtx(q)
		s.SampleHandler(ctx)
		if ctx.Response.StatusCode() != http.StatusOK {
			t.Fatalf("%v: status %d", q, ctx.Response.StatusCode())
		}
		if !strings.HasPrefix(string(ctx.Response.Body()), "Usage:") {
			t.Fatalf("%v: expected usage text, got %q", q, ctx.Response.Body())
		}
	}
}

func TestSampleHandlerWKT(t *testing.T) {
	s := newTestServer(t)
	polygon := orb.Polygon{{{0, 0}, {100, 0}, {100, 50}, {0, 50}, {0, 0}}}

	for _, method := range []string{"", "uniform", "poisson", "grid"} {
		ctx := getRequestCtx(url.Values{
			"poly":    {testPoly},
			"nrplots": {"10"},
			"seed":    {"42"},
			"method":  {method},
		})
		s.SampleHandler(ctx)
		if ctx.Response.StatusCode() != http.StatusOK {
			t.Fatalf("%q: status %d: %s", method, ctx.Response.StatusCode(), ctx.Response.Body())
		}
		if len(ctx.Response.Header.Peek("X-Request-Id")) == 0 {
			t.Fatalf("%q: missing request id", method)
		}

		g, err := wkt.Unmarshal(string(ctx.Response.Body()))
		if err != nil {
			t.Fatalf("%q: %v", method, err)
		}
		mp, ok := g.(orb.MultiPoint)
		if !ok || len(mp) != 10 {
			t.Fatalf("%q: expected 10 points, got %v", method, g)
		}
		for _, p := range mp {
			if !planar.PolygonContains(polygon, p) {
				t.Fatalf("%q: point %v outside the polygon", method, p)
			}
		}
	}
}

func TestSampleHandlerSeededIsMemoised(t *testing.T) {
	s := newTestServer(t)
	q := url.Values{"poly": {testPoly}, "nrplots": {"15"}, "seed": {"7"}}

	first := getRequestCtx(q)
	s.SampleHandler(first)
	second := getRequestCtx(q)
	s.SampleHandler(second)

	if string(first.Response.Body()) != string(second.Response.Body()) {
		t.Fatalf("seeded responses differ:\n%s\n%s", first.Response.Body(), second.Response.Body())
	}
	if s.cache.Len() != 1 {
		t.Fatalf("expected one memoised response, got %d", s.cache.Len())
	}

	unseeded := getRequestCtx(url.Values{"poly": {testPoly}, "nrplots": {"15"}})
	s.SampleHandler(unseeded)
	if unseeded.Response.StatusCode() != http.StatusOK {
		t.Fatalf("status %d", unseeded.Response.StatusCode())
	}
	if s.cache.Len() != 1 {
		t.Fatalf("unseeded response was memoised")
	}
}

func TestSampleHandlerGeoJSON(t *testing.T) {
	s := newTestServer(t)
	ctx := getRequestCtx(url.Values{
		"poly":    {testPoly},
		"nrplots": {"5"},
		"format":  {"geojson"},
	})
	s.SampleHandler(ctx)
	if ctx.Response.StatusCode() != http.StatusOK {
		t.Fatalf("status %d: %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	fc, err := geojson.UnmarshalFeatureCollection(ctx.Response.Body())
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 5 {
		t.Fatalf("expected 5 features, got %d", len(fc.Features))
	}
}

func TestSampleHandlerBadRequest(t *testing.T) {
	s := newTestServer(t)

	tests := []url.Values{
		{"poly": {"POLYGON((0 0, 1 x))"}, "nrplots": {"3"}},
		{"poly": {"POINT(1 1)"}, "nrplots": {"3"}},
		{"poly": {testPoly}, "nrplots": {"1000000"}},
		{"poly": {testPoly}, "nrplots": {"3"}, "seed": {"-1"}},
		{"poly": {testPoly}, "nrplots": {"3"}, "method": {"hexagon"}},
		{"poly": {testPoly}, "nrplots": {"3"}, "format": {"kml"}},
		{"poly": {testPoly}, "nrplots": {"3"}, "candidates": {"many"}},
	}
	for _, q := range tests {
		ctx := getRequestCtx(q)
		s.SampleHandler(ctx)
		if ctx.Response.StatusCode() != http.StatusBadRequest {
			t.Fatalf("%v: expected 400, got %d: %s", q, ctx.Response.StatusCode(), ctx.Response.Body())
		}
	}
}

func TestSampleHandlerSpacingLimit(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method  string
		spacing string
	}{
		{"grid", "1e-12"},
		{"grid", "1e-3"},
		{"grid", "NaN"},
		{"poisson", "1e-12"},
		{"poisson", "1e-3"},
		{"poisson", "Inf"},
	}
	for _, tt := range tests {
		ctx := getRequestCtx(url.Values{
			"poly":    {testPoly},
			"nrplots": {"10"},
			"method":  {tt.method},
			"spacing": {tt.spacing},
		})

		done := make(chan any, 1)
		go func() {
			defer func() { done <- recover() }()
			s.SampleHandler(ctx)
		}()
		select {
		case p := <-done:
			if p != nil {
				t.Fatalf("%s spacing %s: handler panicked: %v", tt.method, tt.spacing, p)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s spacing %s: no response after 2s", tt.method, tt.spacing)
		}

		if ctx.Response.StatusCode() != http.StatusBadRequest {
			t.Fatalf("%s spacing %s: expected 400, got %d: %s", tt.method, tt.spacing, ctx.Response.StatusCode(), ctx.Response.Body())
		}
	}
}

func TestSampleJSONHandler(t *testing.T) {
	s := newTestServer(t)
	seed := uint64(3)

	body, err := SampleRequest{Poly: testPoly, Size: 8, Seed: &seed, Candidates: 200}.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	ctx := postRequestCtx(string(body))
	s.SampleJSONHandler(ctx)
	if ctx.Response.StatusCode() != http.StatusOK {
		t.Fatalf("status %d: %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}

	var res SampleResponse
	if err := res.UnmarshalJSON(ctx.Response.Body()); err != nil {
		t.Fatal(err)
	}
	if res.Seed != seed || res.Candidates != 200 || res.Method != "uniform" || !res.Converged {
		t.Fatalf("unexpected response %+v", res)
	}
	if len(res.Points) != 8 {
		t.Fatalf("expected 8 points, got %d", len(res.Points))
	}

	for _, body := range []string{
		"{",
		"[1, 2]",
		`{"poly":"` + testPoly + `","nrplots":0}`,
		`{"poly":"` + testPoly + `","nrplots":5,"method":"grid","spacing":1e-12}`,
	} {
		ctx := postRequestCtx(body)
		s.SampleJSONHandler(ctx)
		if ctx.Response.StatusCode() != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", body, ctx.Response.StatusCode())
		}
	}
}

func TestRouter(t *testing.T) {
	s := newTestServer(t)
	handler := s.router().Handler

	ctx := getRequestCtx(url.Values{"poly": {testPoly}, "nrplots": {"2"}})
	handler(ctx)
	if ctx.Response.StatusCode() != http.StatusOK {
		t.Fatalf("GET /sample: status %d", ctx.Response.StatusCode())
	}

	ctx = &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(http.MethodGet)
	ctx.Request.SetRequestURI("/metrics")
	handler(ctx)
	if ctx.Response.StatusCode() != http.StatusOK {
		t.Fatalf("GET /metrics: status %d", ctx.Response.StatusCode())
	}
}

func TestMemoBounded(t *testing.T) {
	m := newMemo(2)
	for i := range 5 {
		m.Store(fmt.Sprint(i), SampleResponse{Seed: uint64(i)})
		if m.Len() > 2 {
			t.Fatalf("memo grew to %d entries", m.Len())
		}
	}
	if res, ok := m.Load("4"); !ok || res.Seed != 4 {
		t.Fatalf("latest entry missing: %+v %v", res, ok)
	}

	off := newMemo(0)
	off.Store("a", SampleResponse{})
	if _, ok := off.Load("a"); ok {
		t.Fatal("disabled memo returned an entry")
	}
}

func BenchmarkHandlers(b *testing.B) {
	s := newTestServer(b)

	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("SampleHandler-%d", n), func(b *testing.B) {
			q := url.Values{
				"poly":       {testPoly},
				"nrplots":    {fmt.Sprint(n)},
				"candidates": {fmt.Sprint(n * 10)},
			}
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				ctx := getRequestCtx(q)
				s.SampleHandler(ctx)
			}
		})
	}
}

func TestSampleAttributesSeed(t *testing.T) {
	seed := uint64(math.MaxUint64)
	attrs := sampleAttributes("id", SampleRequest{Poly: testPoly, Size: 3, Seed: &seed})

	for _, kv := range attrs {
		if kv.Key == "seed" {
			if got := kv.Value.Emit(); got != "18446744073709551615" {
				t.Fatalf("seed attribute %q", got)
			}
			return
		}
	}
	t.Fatalf("no seed attribute in %v", attrs)
}
