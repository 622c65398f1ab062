package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/cwbudde/knapsackanneal/internal/anneal"
	"github.com/cwbudde/knapsackanneal/internal/baseline"
	"github.com/cwbudde/knapsackanneal/internal/catalog"
	"github.com/cwbudde/knapsackanneal/internal/config"
	"github.com/cwbudde/knapsackanneal/internal/driver"
	"github.com/cwbudde/knapsackanneal/internal/metrics"
	"github.com/cwbudde/knapsackanneal/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run repeated annealing restarts",
	Long: `Loads the item source and performs independent optimization runs.
Each run prints its final value on stdout and appends a two-line entry to the
result log. With --runs 0 it keeps going until interrupted.`,
	RunE: runOptimization,
}

func init() {
	d := config.Default()
	f := runCmd.Flags()
	f.String("items", d.Items.Path, "Item source (.csv or .json)")
	f.Int("capacity", d.Items.Capacity, "Capacity bound (0 = half the total weight)")
	f.Int("expect-items", d.Items.ExpectedCount, "Required item count (0 = no check)")
	f.Bool("strict", d.Items.Strict, "Fail on the first malformed item record")
	f.Float64("temp", d.Anneal.InitialTemperature, "Initial temperature")
	f.Float64("rate", d.Anneal.CoolingRate, "Geometric cooling rate in (0, 1)")
	f.Int("iters", d.Anneal.Iterations, "Iterations per run")
	f.Int64("seed", d.Anneal.Seed, "Random seed (0 = time-based)")
	f.Int("runs", d.Run.Runs, "Number of runs (0 = until interrupted)")
	f.String("solver", d.Run.Solver, "Solver: anneal or mayfly")
	f.String("log", d.Run.LogPath, "Result log path (empty disables)")
	f.Int("trace-every", d.Run.TraceEvery, "Write a trace entry every N iterations (0 disables)")
	f.Int("patience", d.Run.Patience, "Stop after N runs without improving the best value (0 disables)")
	f.Float64("threshold", d.Run.Threshold, "Minimum relative gain that resets --patience")
	f.String("metrics-addr", d.Run.MetricsAddr, "Serve Prometheus metrics on this address while running")
	f.String("data-dir", d.Store.DataDir, "Directory for run records and traces")
	f.Bool("save", d.Store.Save, "Save a run record per run")
	f.Int("mayfly-iters", d.Mayfly.Iterations, "Mayfly iterations (solver mayfly)")
	f.Int("mayfly-pop", d.Mayfly.Population, "Mayfly population (solver mayfly)")

	rootCmd.AddCommand(runCmd)
}

func runOptimization(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.Collector(metrics.NewNop())
	if cfg.Run.MetricsAddr != "" {
		collector = metrics.NewPrometheus(nil, "")
		srv := startMetricsServer(cfg.Run.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("Metrics server shutdown failed", "error", err)
			}
		}()
	}

	summary, err := executeRuns(ctx, cfg, cmd.OutOrStdout(), collector)
	if err != nil {
		return err
	}

	slog.Info("Runs finished",
		"runs", summary.Runs,
		"converged", summary.Converged,
		"bestValue", summary.BestValue,
		"bestWeight", summary.BestWeight,
		"bestRunId", summary.BestRunID,
		"meanValue", summary.MeanValue)
	return nil
}

// executeRuns builds the catalog, optimizer and runner described by c and
// performs the configured runs.
func executeRuns(ctx context.Context, c *config.Config, out io.Writer, collector metrics.Collector) (driver.Summary, error) {
	cat, err := catalog.Load(c.Items.Path, c.CatalogOptions())
	if err != nil {
		return driver.Summary{}, err
	}

	seed := c.Anneal.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	slog.Info("Starting optimization",
		"items", cat.Len(),
		"capacity", cat.Capacity(),
		"solver", c.Run.Solver,
		"runs", c.Run.Runs,
		"iterations", c.Anneal.Iterations,
		"seed", seed)

	runner := &driver.Runner{
		Solver:    c.Run.Solver,
		Catalog:   cat,
		Params:    c.AnnealParams(),
		ItemsPath: c.Items.Path,
		Seed:      seed,
		Convergence: driver.ConvergenceConfig{
			Patience:  c.Run.Patience,
			Threshold: c.Run.Threshold,
		},
		Metrics: collector,
		Out:     out,
	}
	if c.Run.LogPath != "" {
		runner.Log = store.NewResultLog(c.Run.LogPath)
	}
	if c.Store.Save {
		fs, err := store.NewFSStore(c.Store.DataDir)
		if err != nil {
			return driver.Summary{}, err
		}
		runner.Store = fs
	}

	switch c.Run.Solver {
	case config.SolverMayfly:
		runner.Optimizer = baseline.NewSolver(c.Mayfly.Iterations, c.Mayfly.Population, rng)
	default:
		opts := []anneal.Option{anneal.WithLogger(slog.Default())}
		if c.Run.TraceEvery > 0 {
			runner.Tracer = driver.NewTracer(c.Store.DataDir)
			opts = append(opts, anneal.WithProgress(c.Run.TraceEvery, runner.Tracer.Observe))
		}
		runner.Optimizer = anneal.New(rng, opts...)
	}

	return runner.Run(ctx, c.Run.Runs)
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server error", "error", err)
		}
	}()

	return srv
}
