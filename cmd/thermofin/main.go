package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/crimson-sun/thermofin/internal/config"
	"github.com/crimson-sun/thermofin/internal/logging"
	"github.com/crimson-sun/thermofin/internal/pipeline"
	"github.com/crimson-sun/thermofin/internal/sampler"
	"github.com/crimson-sun/thermofin/pkg/findata"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.Output.Path == "-", logging.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	src, err := sampler.New(cfg.Fin, cfg.Run.Seed)
	if err != nil {
		slog.Error("failed to create sampler", "error", err)
		os.Exit(1)
	}

	meta := findata.Metadata{
		GridWidth:  cfg.Grid.Width,
		GridHeight: cfg.Grid.Height,
		Domain: findata.Domain{
			XMin: cfg.Grid.Domain.XMin, XMax: cfg.Grid.Domain.XMax,
			YMin: cfg.Grid.Domain.YMin, YMax: cfg.Grid.Domain.YMax,
		},
		Seed:   cfg.Run.Seed,
		Schema: src.Schema().Names,
	}
	writer, err := findata.NewWriter(cfg.Output.Path, meta)
	if err != nil {
		slog.Error("failed to create dataset writer", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown: a signal stops feeding new samples; everything
	// already collected stays in the dataset.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	slog.Info("starting generation",
		"samples", cfg.Run.TargetSamples,
		"seed", cfg.Run.Seed,
		"sub_fins", cfg.Fin.SubFins,
		"grid", cfg.Grid.Width*cfg.Grid.Height,
		"solver", cfg.Solver.Method,
		"output", cfg.Output.Path)

	gen := pipeline.NewGenerator(cfg, src, writer)
	report, runErr := gen.Run(ctx)

	if err := writer.Close(); err != nil {
		slog.Error("failed to close dataset", "error", err)
		os.Exit(1)
	}

	switch {
	case errors.Is(runErr, context.Canceled):
		slog.Info("generation interrupted", "stored", report.Stored, "target", report.Target)
	case runErr != nil:
		slog.Error("generation failed", "error", runErr)
		os.Exit(1)
	}
	if report.Degraded {
		os.Exit(2)
	}
}
