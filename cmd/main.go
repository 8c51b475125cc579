package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/royalcat/spatialsample/candidates"
	"github.com/royalcat/spatialsample/internal/telemetry"
	"github.com/urfave/cli/v3"

	_ "github.com/KimMachineGun/automemlimit"
	_ "go.uber.org/automaxprocs"
)

var telemetryClient *telemetry.Client

func main() {
	app := &cli.App{
		Name:        "spatialsample",
		Description: "Spatially balanced sampling plans with the local pivotal method",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "otel-endpoint",
				Usage: "otlp http endpoint for metrics, traces and logs",
			},
		},
		Before: setupTelemetry,
		After:  shutdownTelemetry,
		Commands: []*cli.Command{
			{
				Name:    "sample",
				Aliases: []string{"s"},
				Usage:   "draw a spatially balanced sample inside an area of interest",
				Flags: append(areaFlags(),
					&cli.IntFlag{
						Name:     "size",
						Aliases:  []string{"k"},
						Required: true,
					},
					&cli.IntFlag{
						Name:        "maxiter",
						DefaultText: "10 x candidates",
					},
					&cli.Float64Flag{
						Name:        "cutoff",
						DefaultText: "1-1e-8",
					},
					&cli.StringFlag{
						Name:      "triangles",
						Usage:     "MULTIPOLYGON of triangles covering the area, replaces --method",
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:  "format",
						Value: "wkt",
						Usage: "wkt or geojson",
					},
					&cli.StringFlag{
						Name:      "output",
						Aliases:   []string{"o"},
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:      "plan",
						Usage:     "save candidates and sample to a plan file, .zst to compress",
						TakesFile: true,
					},
				),
				Action: sample,
			},
			{
				Name:  "show",
				Usage: "print the sample stored in a plan file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:      "plan",
						Aliases:   []string{"p"},
						Required:  true,
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:  "format",
						Value: "wkt",
					},
					&cli.BoolFlag{
						Name:  "candidates",
						Usage: "print the candidates instead of the sample",
					},
				},
				Action: show,
			},
			{
				Name:    "evaluate",
				Aliases: []string{"e"},
				Usage:   "compare the spread of pivotal and simple random samples",
				Flags: append(areaFlags(),
					&cli.IntFlag{
						Name:     "size",
						Aliases:  []string{"k"},
						Required: true,
					},
					&cli.IntFlag{
						Name:  "replicates",
						Value: 100,
					},
					&cli.IntFlag{
						Name:        "threads",
						Aliases:     []string{"t"},
						DefaultText: "max",
					},
					&cli.BoolFlag{
						Name:  "stats",
						Usage: "report runtime statistics when done",
					},
					&cli.DurationFlag{
						Name:  "stats.interval",
						Value: 100 * time.Millisecond,
					},
				),
				Action: evaluate,
			},
			{
				Name:  "serve",
				Usage: "serve the sampling api",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
					},
					&cli.IntFlag{
						Name:  "cache-size",
						Value: 1024,
					},
					&cli.IntFlag{
						Name:  "max-candidates",
						Value: 100_000,
					},
				},
				Action: serve,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func areaFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:      "aoi",
			Aliases:   []string{"a"},
			Usage:     "WKT or GeoJSON polygon file, .zst compressed files are accepted",
			TakesFile: true,
		},
		&cli.IntFlag{
			Name:  "candidates",
			Value: 1000,
		},
		&cli.IntFlag{
			Name:  "max-candidates",
			Value: candidates.DefaultMaxCandidates,
			Usage: "reject spacings that would yield more candidates",
		},
		&cli.StringFlag{
			Name:  "method",
			Value: "uniform",
			Usage: "uniform, poisson or grid",
		},
		&cli.Float64Flag{
			Name:        "spacing",
			DefaultText: "derived from --candidates",
		},
		&cli.IntFlag{
			Name:        "seed",
			DefaultText: "random",
		},
	}
}

func setupTelemetry(ctx *cli.Context) error {
	client, err := telemetry.Setup(ctx.Context, "spatialsample", ctx.String("otel-endpoint"))
	if err != nil {
		slog.Error("failed to set up telemetry, continuing without it", "error", err)
		return nil
	}
	telemetryClient = client
	return nil
}

func shutdownTelemetry(ctx *cli.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return telemetryClient.Shutdown(shutdownCtx)
}
