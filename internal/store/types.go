package store

import (
	"time"
)

// RunConfig is the configuration a run was started with. It is shared with the
// server's job API so a stored record can be replayed as a new job.
type RunConfig struct {
	ItemsPath          string  `json:"itemsPath"`
	Solver             string  `json:"solver,omitempty"` // anneal or mayfly
	InitialTemperature float64 `json:"initialTemperature"`
	CoolingRate        float64 `json:"coolingRate"`
	Iterations         int     `json:"iterations"`
	Seed               int64   `json:"seed"`
	Capacity           int     `json:"capacity,omitempty"` // 0 = half the total weight
}

// RunRecord is the persisted outcome of one run.
type RunRecord struct {
	RunID string `json:"runId"`

	// SelectedIDs are the ids of the chosen items in catalog order.
	SelectedIDs []int `json:"selectedIds"`

	FinalWeight  int `json:"finalWeight"`
	FinalValue   int `json:"finalValue"`
	InitialValue int `json:"initialValue"`

	// Capacity and Items describe the instance the run was solved against.
	Capacity int `json:"capacity"`
	Items    int `json:"items"`

	Iterations       int           `json:"iterations"`
	Accepted         int           `json:"accepted"`
	FinalTemperature float64       `json:"finalTemperature"`
	Elapsed          time.Duration `json:"elapsed"`
	Timestamp        time.Time     `json:"timestamp"`

	Config RunConfig `json:"config"`
}

// RunInfo is the listing view of a RunRecord.
type RunInfo struct {
	RunID      string    `json:"runId"`
	FinalValue int       `json:"finalValue"`
	Iterations int       `json:"iterations"`
	Timestamp  time.Time `json:"timestamp"`
	Solver     string    `json:"solver"`
	ItemsPath  string    `json:"itemsPath"`
}

// ToInfo converts a record to its listing metadata.
func (r *RunRecord) ToInfo() RunInfo {
	solver := r.Config.Solver
	if solver == "" {
		solver = "anneal"
	}
	return RunInfo{
		RunID:      r.RunID,
		FinalValue: r.FinalValue,
		Iterations: r.Iterations,
		Timestamp:  r.Timestamp,
		Solver:     solver,
		ItemsPath:  r.Config.ItemsPath,
	}
}

// Validate checks the record for internal consistency.
func (r *RunRecord) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if r.FinalWeight < 0 {
		return &ValidationError{Field: "FinalWeight", Reason: "cannot be negative"}
	}
	if r.FinalWeight > r.Capacity {
		return &ValidationError{Field: "FinalWeight", Reason: "exceeds capacity"}
	}
	if r.FinalValue < 0 {
		return &ValidationError{Field: "FinalValue", Reason: "cannot be negative"}
	}
	if len(r.SelectedIDs) > r.Items {
		return &ValidationError{Field: "SelectedIDs", Reason: "more selected items than the catalog holds"}
	}
	if r.Iterations < 0 {
		return &ValidationError{Field: "Iterations", Reason: "cannot be negative"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a run record validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
