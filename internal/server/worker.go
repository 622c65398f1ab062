package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/cwbudde/knapsackanneal/internal/anneal"
	"github.com/cwbudde/knapsackanneal/internal/baseline"
	"github.com/cwbudde/knapsackanneal/internal/catalog"
	"github.com/cwbudde/knapsackanneal/internal/driver"
	"github.com/cwbudde/knapsackanneal/internal/metrics"
	"github.com/cwbudde/knapsackanneal/internal/store"
)

// progressSnapshots is roughly how many progress events a job publishes.
const progressSnapshots = 200

// workerDeps are the collaborators a job reports to. Nil fields are skipped.
type workerDeps struct {
	store            *store.FSStore
	log              *store.ResultLog
	metrics          metrics.Collector
	mayflyIterations int
	mayflyPopulation int
}

// runJob executes one job to completion, failure or cancellation.
func runJob(ctx context.Context, jm *JobManager, deps workerDeps, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.State != StatePending {
		return fmt.Errorf("job %s is %s, not pending", jobID, job.State)
	}
	if deps.metrics == nil {
		deps.metrics = metrics.NewNop()
	}

	if err := jm.UpdateJob(jobID, func(j *Job) { j.State = StateRunning }); err != nil {
		return err
	}
	deps.metrics.SetActiveJobs(len(jm.GetRunningJobs()))
	defer func() {
		deps.metrics.SetActiveJobs(len(jm.GetRunningJobs()))
	}()

	cfg := job.Config
	slog.Info("Starting job", "job_id", jobID, "items", cfg.ItemsPath, "solver", cfg.Solver)

	cat, err := catalog.Load(cfg.ItemsPath, catalog.Options{Capacity: cfg.Capacity})
	if err != nil {
		err = fmt.Errorf("failed to load items: %w", err)
		markJobFailed(jm, deps.metrics, jobID, err)
		return err
	}
	jm.UpdateJob(jobID, func(j *Job) {
		j.Capacity = cat.Capacity()
		j.Items = cat.Len()
		j.Temperature = cfg.InitialTemperature
	})

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var tracer *driver.Tracer
	if deps.store != nil {
		tracer = driver.NewTracer(deps.store.BaseDir())
		if err := tracer.Begin(jobID); err != nil {
			slog.Warn("Failed to open trace", "job_id", jobID, "error", err)
		}
		defer tracer.End()
	}

	onProgress := func(p anneal.Progress) {
		if tracer != nil {
			tracer.Observe(p)
		}
		jm.UpdateJob(jobID, func(j *Job) {
			j.Iteration = p.Iteration
			j.Temperature = p.Temperature
			j.Value = p.Value
			j.Weight = p.Weight
			j.Accepted = p.Accepted
			if p.Iteration == 0 {
				j.InitialValue = p.Value
			}
		})
		if snap, ok := jm.GetJob(jobID); ok {
			jm.broadcaster.Broadcast(progressEventFor(snap))
		}
	}

	var optimizer driver.Optimizer
	switch cfg.Solver {
	case "", "anneal":
		every := cfg.Iterations / progressSnapshots
		if every < 1 {
			every = 1
		}
		optimizer = anneal.New(rng, anneal.WithProgress(every, onProgress))
	case "mayfly":
		optimizer = baseline.NewSolver(deps.mayflyIterations, deps.mayflyPopulation, rng)
	default:
		err := fmt.Errorf("unknown solver: %s", cfg.Solver)
		markJobFailed(jm, deps.metrics, jobID, err)
		return err
	}

	params := anneal.Params{
		InitialTemperature: cfg.InitialTemperature,
		CoolingRate:        cfg.CoolingRate,
		Iterations:         cfg.Iterations,
	}
	res, err := optimizer.Run(ctx, cat, params)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		markJobCancelled(jm, deps.metrics, jobID)
		return err
	}
	if err != nil {
		markJobFailed(jm, deps.metrics, jobID, err)
		return err
	}

	sol := res.Solution
	used := res.Params
	ids := sol.SelectedIDs(cat)
	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Iteration = used.Iterations
		j.Value = sol.Value()
		j.Weight = sol.Weight()
		j.Accepted = res.Accepted
		j.Temperature = res.FinalTemperature
		j.InitialValue = res.InitialValue
		j.SelectedIDs = ids
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	solver := cfg.Solver
	if solver == "" {
		solver = "anneal"
	}
	deps.metrics.RecordRun(solver, metrics.RunStats{
		Value:      sol.Value(),
		Weight:     sol.Weight(),
		Iterations: used.Iterations,
		Accepted:   res.Accepted,
		Elapsed:    res.Elapsed,
	})
	deps.metrics.RecordJob(string(StateCompleted))

	if deps.log != nil {
		err := deps.log.Append(store.LogEntry{
			Timestamp:          endTime,
			InitialTemperature: used.InitialTemperature,
			CoolingRate:        used.CoolingRate,
			Iterations:         used.Iterations,
			FinalWeight:        sol.Weight(),
			FinalValue:         sol.Value(),
			SelectedIDs:        ids,
		})
		if err != nil {
			deps.metrics.RecordLogWriteFailure()
			slog.Warn("Failed to append result log", "job_id", jobID, "error", err)
		}
	}

	if deps.store != nil {
		record := &store.RunRecord{
			RunID:            jobID,
			SelectedIDs:      ids,
			FinalWeight:      sol.Weight(),
			FinalValue:       sol.Value(),
			InitialValue:     res.InitialValue,
			Capacity:         cat.Capacity(),
			Items:            cat.Len(),
			Iterations:       used.Iterations,
			Accepted:         res.Accepted,
			FinalTemperature: res.FinalTemperature,
			Elapsed:          res.Elapsed,
			Timestamp:        endTime,
			Config:           cfg,
		}
		record.Config.Seed = seed
		record.Config.Solver = solver
		record.Config.InitialTemperature = used.InitialTemperature
		record.Config.CoolingRate = used.CoolingRate
		record.Config.Iterations = used.Iterations
		if err := deps.store.SaveRun(jobID, record); err != nil {
			slog.Warn("Failed to save run record", "job_id", jobID, "error", err)
		}
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", res.Elapsed,
		"initial_value", res.InitialValue,
		"value", sol.Value(),
		"weight", sol.Weight(),
		"accepted", res.Accepted,
	)

	if snap, ok := jm.GetJob(jobID); ok {
		jm.broadcaster.Broadcast(progressEventFor(snap))
	}
	return nil
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, m metrics.Collector, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	m.RecordJob(string(StateFailed))
	if snap, ok := jm.GetJob(jobID); ok {
		jm.broadcaster.Broadcast(progressEventFor(snap))
	}
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, m metrics.Collector, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	m.RecordJob(string(StateCancelled))
	if snap, ok := jm.GetJob(jobID); ok {
		jm.broadcaster.Broadcast(progressEventFor(snap))
	}
	slog.Info("Job cancelled", "job_id", jobID)
}
