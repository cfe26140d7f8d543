// Command standsim runs the hot dog stand: it opens the configured durable
// store, seeds the catalog from the remote source when empty, simulates
// trading days, and writes report artifacts to the blob store.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"standcore/internal/blob"
	"standcore/internal/config"
	"standcore/internal/core"
	"standcore/internal/logger"
	"standcore/internal/report"
	"standcore/internal/seed"
	"standcore/internal/sim"
	"standcore/internal/source"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

type options struct {
	days        int
	salesPerDay int
	seed        uint64
	reset       bool
	writeReport bool
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("standsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.IntVar(&opts.days, "days", 1, "trading days to simulate (0 skips simulation)")
	fs.IntVar(&opts.salesPerDay, "sales-per-day", 20, "upper bound of orders per day")
	fs.Uint64Var(&opts.seed, "seed", 0, "random seed for the simulator")
	fs.BoolVar(&opts.reset, "reset", false, "wipe the store and report artifacts, then reseed")
	fs.BoolVar(&opts.writeReport, "report", true, "write report artifacts after simulating")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := run(context.Background(), opts, stdout); err != nil {
		fmt.Fprintf(stderr, "standsim: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LoggerLevel, cfg.LoggerAsJSON)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store, err := core.OpenPersistentStore(cfg, core.NewDefaultRulesEngine())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	blobs, err := blob.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	metrics, err := core.NewPrometheusMetricsRecorder(nil)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	clock := sim.NewClock(time.Now())
	svc := core.NewService(store,
		core.WithLogger(log),
		core.WithMetricsRecorder(metrics),
		core.WithNowFunc(clock.Now),
	)

	if opts.reset {
		purged, err := report.PurgeArtifacts(ctx, blobs)
		if err != nil {
			return fmt.Errorf("purge artifacts: %w", err)
		}
		if err := svc.Reset(ctx); err != nil {
			return fmt.Errorf("reset store: %w", err)
		}
		log.Info("store reset", zap.Int("artifacts_purged", purged))
	}

	var seeder *seed.Seeder
	if cfg.SourceURL != "" {
		src, err := source.NewHTTPSource(cfg.SourceURL, nil)
		if err != nil {
			return fmt.Errorf("source: %w", err)
		}
		seeder = seed.New(src, seed.StockDefaults{
			Default:    cfg.DefaultStock,
			ByCategory: cfg.StockByCategory(),
		}, log)
	}
	if err := svc.EnsureSeeded(ctx, seeder); err != nil {
		return err
	}

	if opts.days > 0 {
		simulator := sim.New(svc, clock, sim.Options{
			Days:           opts.days,
			MaxSalesPerDay: opts.salesPerDay,
			Seed:           opts.seed,
		}, log)
		res, err := simulator.Run(ctx)
		if err != nil {
			return fmt.Errorf("simulate: %w", err)
		}
		fmt.Fprintf(stdout, "simulated %d day(s): %d orders, %d served, %d lost\n",
			res.Days, res.Attempted, res.Succeeded, res.Failed)
	}

	if opts.writeReport {
		engine := report.New(store)
		summary, err := engine.BuildSummary(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("build summary: %w", err)
		}
		infos, err := engine.WriteArtifacts(ctx, blobs, summary)
		if err != nil {
			return fmt.Errorf("write artifacts: %w", err)
		}
		for _, info := range infos {
			fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", info.Key, info.Size)
		}
	}
	return nil
}
