package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/cheggaaa/pb/v3/termutil"
	"github.com/royalcat/spatialsample/balance"
	"github.com/royalcat/spatialsample/internal/stats"
	"github.com/urfave/cli/v3"
)

const progressTemplate = `{{with string . "prefix"}}{{.}} {{end}}{{counters . }} {{bar . }} {{percent . }} {{rtime . "ETA %s"}}` + "\n"

type evaluateConfig struct {
	Area       areaConfig
	Size       int
	Replicates int
	Threads    int
	Seed       uint64
}

func (c evaluateConfig) run(ctx context.Context, w io.Writer, progress func()) (balance.Report, error) {
	seed := c.Seed
	points, method, err := c.Area.generate(rand.New(rand.NewPCG(seed, seed)))
	if err != nil {
		return balance.Report{}, fmt.Errorf("error generating candidates: %w", err)
	}

	report, err := balance.Compare(ctx, balance.Config{
		Candidates: points,
		Size:       c.Size,
		Replicates: c.Replicates,
		Seed:       seed + 1,
		Threads:    c.Threads,
		Progress:   progress,
	})
	if err != nil {
		return report, err
	}

	converged := 0
	for _, r := range report.Replicates {
		if r.Converged {
			converged++
		}
	}

	_, err = fmt.Fprintf(w,
		"candidates: %d (%s)\nsample size: %d\nreplicates: %d (%d converged)\n"+
			"mean nearest neighbour distance\n  pivotal: %.6g\n  random:  %.6g\n  ratio:   %.4f\n",
		len(points), method, c.Size, len(report.Replicates), converged,
		report.MeanLPM, report.MeanSRS, report.Ratio,
	)
	return report, err
}

func newProgressBar(total int, name string) *pb.ProgressBar {
	bar := pb.StartNew(total)
	bar.Set("prefix", name)
	bar.SetRefreshRate(time.Second)
	if w, err := termutil.TerminalWidth(); w == 0 || err != nil {
		bar.SetTemplateString(progressTemplate)
	}
	return bar
}

func evaluate(ctx *cli.Context) error {
	log := slog.Default()

	cfg := evaluateConfig{
		Area:       areaConfigFromFlags(ctx),
		Size:       ctx.Int("size"),
		Replicates: ctx.Int("replicates"),
		Threads:    ctx.Int("threads"),
		Seed:       seedFromFlags(ctx),
	}

	var collector *stats.Collector
	if ctx.Bool("stats") {
		var err error
		collector, err = stats.NewCollector(ctx.Duration("stats.interval"))
		if err != nil {
			return fmt.Errorf("error starting stats collector: %w", err)
		}
		collector.Start()
	}

	bar := newProgressBar(cfg.Replicates, "evaluating")
	_, err := cfg.run(ctx.Context, os.Stdout, func() { bar.Increment() })
	bar.Finish()

	if collector != nil {
		runtimeStats := collector.Stop()
		if err := runtimeStats.WriteReport(os.Stderr, 20); err != nil {
			log.Error("failed to write stats report", "error", err)
		}
	}
	return err
}
