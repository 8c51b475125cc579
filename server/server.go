package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/mailru/easyjson"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/royalcat/spatialsample/geoio"
	"github.com/royalcat/spatialsample/internal/telemetry"
	"github.com/royalcat/spatialsample/samplemodel"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const exampleWKT = "POLYGON ((513820.1 7017121, 513833.4 7017112, 513843.6 7017102, 513843.6 7017060, 513841.9 7017065, 513837.8 7017077, 513828 7017101, 513822.9 7017113, 513820.1 7017121))"

const usage = "Usage: \n" +
	"/sample?poly=" + exampleWKT + "&nrplots=10\n" +
	"optional: &seed=<uint> &method=uniform|poisson|grid &candidates=<n> &spacing=<d> &format=wkt|geojson\n"

var (
	meter  = otel.Meter("github.com/royalcat/spatialsample/server")
	tracer = otel.Tracer("github.com/royalcat/spatialsample/server")
)

func Run(ctx context.Context, address string, cfg Config) error {
	client, err := telemetry.SetupFromEnv(ctx, "spatialsample")
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Shutdown(shutdownCtx)
	}()

	log := slog.Default()

	s, err := newServer(cfg, log)
	if err != nil {
		return err
	}

	server := &fasthttp.Server{
		ReadTimeout:        cfg.ReadTimeout,
		MaxRequestBodySize: cfg.MaxBodySize,
		Handler:            s.router().Handler,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", "address", address)
		if err := server.ListenAndServe(address); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("ListenAndServe(): %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// wait cancel
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ReadTimeout)
		defer cancel()
		return server.ShutdownWithContext(shutdownCtx)
	})
	slog.Info("Server started")

	return g.Wait()
}

type server struct {
	cfg   Config
	log   *slog.Logger
	cache *memo

	metricHttpSampleCallCount metric.Int64Counter
	metricPointsSampled       metric.Int64Counter
	metricIterations          metric.Int64Histogram
}

func newServer(cfg Config, log *slog.Logger) (*server, error) {
	metricHttpSampleCallCount, err := meter.Int64Counter("http_sample_call_total")
	if err != nil {
		return nil, err
	}
	metricPointsSampled, err := meter.Int64Counter("points_sampled_total")
	if err != nil {
		return nil, err
	}
	metricIterations, err := meter.Int64Histogram("sample_iterations",
		metric.WithDescription("pivotal method iterations per sample"),
	)
	if err != nil {
		return nil, err
	}

	return &server{
		cfg:   cfg,
		log:   log.With("component", "server"),
		cache: newMemo(cfg.CacheSize),

		metricHttpSampleCallCount: metricHttpSampleCallCount,
		metricPointsSampled:       metricPointsSampled,
		metricIterations:          metricIterations,
	}, nil
}

func (s *server) router() *router.Router {
	r := router.New()
	r.GET("/sample", s.SampleHandler)
	r.POST("/sample", s.SampleJSONHandler)
	r.Handle(http.MethodGet, "/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))
	return r
}

// SampleHandler serves the query string API: poly and nrplots are required,
// a request missing either gets the usage text.
func (s *server) SampleHandler(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()

	req := SampleRequest{
		Poly:   string(args.Peek("poly")),
		Method: string(args.Peek("method")),
	}
	req.Size, _ = strconv.Atoi(string(args.Peek("nrplots")))
	if req.Poly == "" || req.Size <= 0 {
		ctx.Response.Header.SetContentType("text/plain; charset=utf-8")
		ctx.Response.SetStatusCode(http.StatusOK)
		ctx.Response.SetBodyString(usage)
		return
	}

	if args.Has("seed") {
		seed, err := strconv.ParseUint(string(args.Peek("seed")), 10, 64)
		if err != nil {
			badRequest(ctx, "invalid seed: "+err.Error())
			return
		}
		req.Seed = &seed
	}
	if args.Has("candidates") {
		n, err := strconv.Atoi(string(args.Peek("candidates")))
		if err != nil {
			badRequest(ctx, "invalid candidates: "+err.Error())
			return
		}
		req.Candidates = n
	}
	if args.Has("spacing") {
		spacing, err := strconv.ParseFloat(string(args.Peek("spacing")), 64)
		if err != nil {
			badRequest(ctx, "invalid spacing: "+err.Error())
			return
		}
		req.Spacing = spacing
	}
	format, err := geoio.ParseFormat(string(args.Peek("format")))
	if err != nil {
		badRequest(ctx, err.Error())
		return
	}

	res, err := s.handleSample(ctx, req)
	if err != nil {
		s.writeError(ctx, err)
		return
	}

	body, err := geoio.Encode(pointsOf(res), format)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	if format == geoio.FormatGeoJSON {
		ctx.Response.Header.SetContentType("application/geo+json")
	} else {
		ctx.Response.Header.SetContentType("text/plain; charset=utf-8")
	}
	ctx.Response.SetStatusCode(http.StatusOK)
	ctx.Response.SetBody(body)
}

func (s *server) SampleJSONHandler(ctx *fasthttp.RequestCtx) {
	var req SampleRequest
	if err := easyjson.Unmarshal(ctx.Request.Body(), &req); err != nil {
		badRequest(ctx, "failed to parse request: "+err.Error())
		return
	}

	res, err := s.handleSample(ctx, req)
	if err != nil {
		s.writeError(ctx, err)
		return
	}

	data, err := easyjson.Marshal(res)
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusInternalServerError)
		ctx.Response.SetBodyString("failed to marshal response")
		return
	}

	ctx.Response.Header.SetContentType("application/json")
	ctx.Response.SetStatusCode(http.StatusOK)
	ctx.Response.SetBody(data)
}

func (s *server) handleSample(ctx *fasthttp.RequestCtx, req SampleRequest) (SampleResponse, error) {
	s.metricHttpSampleCallCount.Add(ctx, 1)

	requestID := uuid.NewString()
	ctx.Response.Header.Set("X-Request-Id", requestID)

	spanCtx, span := tracer.Start(ctx, "sample", trace.WithAttributes(sampleAttributes(requestID, req)...))
	defer span.End()

	res, err := s.sample(spanCtx, req)
	if err != nil {
		span.RecordError(err)
		return res, err
	}

	s.metricPointsSampled.Add(spanCtx, int64(len(res.Points)))
	s.metricIterations.Record(spanCtx, int64(res.Iterations))
	return res, nil
}

func (s *server) writeError(ctx *fasthttp.RequestCtx, err error) {
	if errors.Is(err, samplemodel.ErrInvalidArgument) {
		badRequest(ctx, err.Error())
		return
	}
	s.log.ErrorContext(ctx, "sampling failed", "error", err)
	ctx.Response.SetStatusCode(http.StatusInternalServerError)
	ctx.Response.SetBodyString(err.Error())
}

func badRequest(ctx *fasthttp.RequestCtx, msg string) {
	ctx.Response.Header.SetContentType("text/plain; charset=utf-8")
	ctx.Response.SetStatusCode(http.StatusBadRequest)
	ctx.Response.SetBodyString(msg)
}
