package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// jobElapsed returns how long the job has been (or was) running.
func jobElapsed(job *Job) time.Duration {
	if job.EndTime != nil {
		return job.EndTime.Sub(job.StartTime)
	}
	return time.Since(job.StartTime)
}

// iterationsPerSecond is the job's annealing throughput so far.
func iterationsPerSecond(job *Job) float64 {
	elapsed := jobElapsed(job).Seconds()
	if elapsed <= 0 || job.Iteration == 0 {
		return 0
	}
	return float64(job.Iteration) / elapsed
}
