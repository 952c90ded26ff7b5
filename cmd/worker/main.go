// Package main is the entry point for the rollup worker.
// It runs the rollups of every active site at start and then on a fixed interval.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gaushala/internal/app"
	"gaushala/internal/config"
	appctx "gaushala/internal/core/context"
	"gaushala/internal/domain/rollup"
	"gaushala/pkg/logger"
)

func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	once := flag.Bool("once", false, "run a single pass and exit")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger())
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	a, err := app.New(ctx, cfg, log, "gaushala-worker")
	if err != nil {
		log.Fatalw("failed to initialize", "error", err)
	}
	defer a.Close()

	worker := NewWorker(a.Orchestrator, a.Pool, cfg.Rollup.Interval, log)

	log.Infow("starting rollup worker",
		"interval", cfg.Rollup.Interval,
		"concurrency", cfg.Rollup.Concurrency,
		"distributed_lock", a.Redis != nil,
	)

	if *once {
		worker.Tick(ctx)
		return
	}
	worker.Run(ctx)
	log.Info("worker stopped")
}

// runner is the part of the orchestrator the worker needs.
type runner interface {
	RunAll(ctx context.Context) (*rollup.Report, error)
}

// statsLogger reports connection pool usage after each pass.
type statsLogger interface {
	LogStats(ctx context.Context)
}

// Worker triggers RunAll on a ticker.
type Worker struct {
	runner   runner
	stats    statsLogger
	interval time.Duration
	log      *logger.Logger
}

// NewWorker creates a worker; a non-positive interval means one hour.
func NewWorker(r runner, stats statsLogger, interval time.Duration, log *logger.Logger) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Worker{
		runner:   r,
		stats:    stats,
		interval: interval,
		log:      log.WithComponent("worker"),
	}
}

// Run ticks immediately and then every interval until ctx is done.
// A pass that overruns the interval delays the next one rather than overlapping it.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one scheduled pass over all sites.
func (w *Worker) Tick(ctx context.Context) {
	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext())

	report, err := w.runner.RunAll(ctx)
	if err != nil {
		w.log.WithContext(ctx).Errorw("rollup pass failed", "error", err)
		return
	}

	w.log.WithContext(ctx).Infow("rollup pass finished",
		"run_id", report.RunID,
		"sites", len(report.Sites),
		"failed", report.Count(rollup.RunFailed),
		"skipped", report.Count(rollup.RunSkipped),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	if w.stats != nil {
		w.stats.LogStats(ctx)
	}
}
