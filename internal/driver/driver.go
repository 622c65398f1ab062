// Package driver repeats optimizer runs over one catalog and reports each
// outcome to stdout, the result log, the run store and metrics.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/knapsackanneal/internal/anneal"
	"github.com/cwbudde/knapsackanneal/internal/knapsack"
	"github.com/cwbudde/knapsackanneal/internal/metrics"
	"github.com/cwbudde/knapsackanneal/internal/store"
)

// Optimizer performs one independent run. *anneal.Optimizer and
// *baseline.Solver satisfy it.
type Optimizer interface {
	Run(ctx context.Context, cat *knapsack.Catalog, p anneal.Params) (*anneal.Result, error)
}

// Runner drives repeated runs. Only Optimizer and Catalog are required.
type Runner struct {
	Optimizer Optimizer
	Solver    string // metrics label and stored solver name, defaults to "anneal"
	Catalog   *knapsack.Catalog
	Params    anneal.Params

	// ItemsPath and Seed are copied into stored run records.
	ItemsPath string
	Seed      int64

	// Convergence ends the loop early once the best value stalls.
	Convergence ConvergenceConfig

	Log     *store.ResultLog  // nil disables the result log
	Store   store.Store       // nil disables run records
	Tracer  *Tracer           // nil disables traces
	Metrics metrics.Collector // nil means metrics.NewNop()
	Out     io.Writer         // receives one value line per run, nil discards
	Logger  *slog.Logger      // nil means slog.Default()
}

// Summary aggregates the runs a Runner completed.
type Summary struct {
	Runs       int     `json:"runs"`
	Converged  bool    `json:"converged,omitempty"`
	BestValue  int     `json:"bestValue"`
	BestWeight int     `json:"bestWeight"`
	BestRunID  string  `json:"bestRunId"`
	MeanValue  float64 `json:"meanValue"`
}

// Run performs runs independent restarts, or runs until ctx is cancelled when
// runs is 0. Cancellation between or during runs ends the loop without error;
// the aborted run is not reported. A configured Convergence check also ends
// the loop. Optimizer failures stop the loop.
func (r *Runner) Run(ctx context.Context, runs int) (Summary, error) {
	if r.Optimizer == nil || r.Catalog == nil {
		return Summary{}, errors.New("runner requires an optimizer and a catalog")
	}
	if runs < 0 {
		return Summary{}, fmt.Errorf("runs cannot be negative, got %d", runs)
	}

	logger := r.logger()
	tracker := NewConvergenceTracker(r.Convergence)
	var summary Summary
	var total int

	for runs == 0 || summary.Runs < runs {
		if ctx.Err() != nil {
			break
		}

		runID := uuid.NewString()
		res, err := r.runOnce(ctx, runID)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Info("Run interrupted", "run_id", runID)
			break
		}
		if err != nil {
			return summary, fmt.Errorf("run %d failed: %w", summary.Runs+1, err)
		}

		r.report(runID, res)

		summary.Runs++
		value := res.Solution.Value()
		total += value
		if summary.Runs == 1 || value > summary.BestValue {
			summary.BestValue = value
			summary.BestWeight = res.Solution.Weight()
			summary.BestRunID = runID
		}

		if tracker.Update(value) {
			summary.Converged = true
			break
		}
	}

	if summary.Runs > 0 {
		summary.MeanValue = float64(total) / float64(summary.Runs)
	}

	logger.Info("Driver finished",
		"runs", summary.Runs,
		"best_value", summary.BestValue,
		"best_run_id", summary.BestRunID,
		"mean_value", summary.MeanValue,
		"converged", summary.Converged,
	)
	return summary, nil
}

func (r *Runner) runOnce(ctx context.Context, runID string) (*anneal.Result, error) {
	if r.Tracer != nil {
		if err := r.Tracer.Begin(runID); err != nil {
			r.logger().Warn("Failed to open trace", "run_id", runID, "error", err)
		}
		defer func() {
			if err := r.Tracer.End(); err != nil {
				r.logger().Warn("Failed to close trace", "run_id", runID, "error", err)
			}
		}()
	}

	return r.Optimizer.Run(ctx, r.Catalog, r.Params)
}

// report publishes one finished run with the parameters the optimizer
// actually used. Log and store failures are warnings.
func (r *Runner) report(runID string, res *anneal.Result) {
	logger := r.logger()
	sol := res.Solution
	p := res.Params
	now := time.Now()
	ids := sol.SelectedIDs(r.Catalog)

	if r.Log != nil {
		err := r.Log.Append(store.LogEntry{
			Timestamp:          now,
			InitialTemperature: p.InitialTemperature,
			CoolingRate:        p.CoolingRate,
			Iterations:         p.Iterations,
			FinalWeight:        sol.Weight(),
			FinalValue:         sol.Value(),
			SelectedIDs:        ids,
		})
		if err != nil {
			r.metrics().RecordLogWriteFailure()
			logger.Warn("Failed to append result log", "run_id", runID, "path", r.Log.Path(), "error", err)
		}
	}

	if r.Out != nil {
		fmt.Fprintln(r.Out, sol.Value())
	}

	if r.Store != nil {
		record := &store.RunRecord{
			RunID:            runID,
			SelectedIDs:      ids,
			FinalWeight:      sol.Weight(),
			FinalValue:       sol.Value(),
			InitialValue:     res.InitialValue,
			Capacity:         r.Catalog.Capacity(),
			Items:            r.Catalog.Len(),
			Iterations:       p.Iterations,
			Accepted:         res.Accepted,
			FinalTemperature: res.FinalTemperature,
			Elapsed:          res.Elapsed,
			Timestamp:        now,
			Config: store.RunConfig{
				ItemsPath:          r.ItemsPath,
				Solver:             r.solver(),
				InitialTemperature: p.InitialTemperature,
				CoolingRate:        p.CoolingRate,
				Iterations:         p.Iterations,
				Seed:               r.Seed,
				Capacity:           r.Catalog.Capacity(),
			},
		}
		if err := r.Store.SaveRun(runID, record); err != nil {
			logger.Warn("Failed to save run record", "run_id", runID, "error", err)
		}
	}

	r.metrics().RecordRun(r.solver(), metrics.RunStats{
		Value:      sol.Value(),
		Weight:     sol.Weight(),
		Iterations: p.Iterations,
		Accepted:   res.Accepted,
		Elapsed:    res.Elapsed,
	})

	logger.Info("Run complete",
		"run_id", runID,
		"value", sol.Value(),
		"weight", sol.Weight(),
		"selected", len(ids),
		"elapsed", res.Elapsed,
	)
}

func (r *Runner) solver() string {
	if r.Solver == "" {
		return "anneal"
	}
	return r.Solver
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) metrics() metrics.Collector {
	if r.Metrics != nil {
		return r.Metrics
	}
	return metrics.NewNop()
}
