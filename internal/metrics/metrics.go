// Package metrics records optimizer activity. Collector is implemented by a
// no-op variant and a Prometheus-backed one.
package metrics

import "time"

// RunStats summarizes one finished optimizer run.
type RunStats struct {
	Value      int
	Weight     int
	Iterations int
	Accepted   int
	Elapsed    time.Duration
}

// Collector receives optimizer and job events. Implementations must be safe
// for concurrent use.
type Collector interface {
	// RecordRun records a finished run of the named solver.
	RecordRun(solver string, stats RunStats)

	// RecordLogWriteFailure counts a result log append that failed.
	RecordLogWriteFailure()

	// RecordJob counts a server job reaching a terminal state.
	RecordJob(state string)

	// SetActiveJobs sets the number of jobs currently running.
	SetActiveJobs(count int)
}
