package store

// Store persists the records of finished annealing runs.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return ErrNotFound (a *NotFoundError) if a run doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveRun atomically writes the record for runID, replacing any previous one.
	SaveRun(runID string, record *RunRecord) error

	// LoadRun retrieves the record for runID.
	LoadRun(runID string) (*RunRecord, error)

	// ListRuns returns metadata for every stored run. Unreadable records are
	// skipped with a warning.
	ListRuns() ([]RunInfo, error)

	// DeleteRun removes the record and all artifacts of runID, including its
	// trace.jsonl.
	DeleteRun(runID string) error
}

// ErrNotFound is returned when a requested run does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run record.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
