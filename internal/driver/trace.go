package driver

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cwbudde/knapsackanneal/internal/anneal"
	"github.com/cwbudde/knapsackanneal/internal/store"
)

// Tracer writes optimizer progress snapshots to the trace file of the run in
// flight. Wire Observe into anneal.WithProgress; the Runner opens and closes
// the per-run file around each run.
type Tracer struct {
	baseDir string

	mu     sync.Mutex
	writer *store.TraceWriter
	failed bool
}

// NewTracer creates a tracer writing under baseDir/runs/<runID>/trace.jsonl.
func NewTracer(baseDir string) *Tracer {
	return &Tracer{baseDir: baseDir}
}

// Begin opens a fresh trace for runID.
func (t *Tracer) Begin(runID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, err := store.NewTraceWriter(t.baseDir, runID, false)
	if err != nil {
		return err
	}
	t.writer = w
	t.failed = false
	return nil
}

// Observe records one snapshot. Without an open trace it does nothing. After
// the first write error the rest of the run is dropped.
func (t *Tracer) Observe(p anneal.Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.writer == nil || t.failed {
		return
	}
	err := t.writer.Write(store.TraceEntry{
		Iteration:   p.Iteration,
		Temperature: p.Temperature,
		Value:       p.Value,
		Weight:      p.Weight,
		Accepted:    p.Accepted,
		Timestamp:   time.Now(),
	})
	if err != nil {
		t.failed = true
		slog.Warn("Failed to write trace entry, dropping rest of trace", "path", t.writer.Path(), "error", err)
	}
}

// End closes the current trace.
func (t *Tracer) End() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.writer == nil {
		return nil
	}
	err := t.writer.Close()
	t.writer = nil
	return err
}
