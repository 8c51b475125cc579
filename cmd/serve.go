package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/royalcat/spatialsample/server"
	"github.com/urfave/cli/v3"
)

func serve(ctx *cli.Context) error {
	cfg := server.ConfigDefault()
	cfg.CacheSize = ctx.Int("cache-size")
	cfg.MaxCandidates = ctx.Int("max-candidates")

	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting sampling server", "listen", ctx.String("listen"))
	return server.Run(runCtx, ctx.String("listen"), cfg)
}
