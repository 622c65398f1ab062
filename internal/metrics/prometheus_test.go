package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns name -> sum over all series of the counter, gauge or
// histogram sample count.
func gathered(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]float64, len(families))
	for _, mf := range families {
		var sum float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				sum += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				sum += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				sum += float64(m.GetHistogram().GetSampleCount())
			}
		}
		out[mf.GetName()] = sum
	}
	return out
}

func TestPrometheusCollector_LazyRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewPrometheus(reg, "")

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families, "nothing is registered before first use")
}

func TestPrometheusCollector_RecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheus(reg, "test")

	c.RecordRun("anneal", RunStats{Value: 100, Iterations: 1000, Accepted: 300, Elapsed: 5 * time.Millisecond})
	c.RecordRun("anneal", RunStats{Value: 160, Iterations: 1000, Accepted: 200, Elapsed: 7 * time.Millisecond})
	c.RecordRun("anneal", RunStats{Value: 120, Iterations: 1000, Accepted: 100, Elapsed: 6 * time.Millisecond})

	m := gathered(t, reg)
	assert.Equal(t, 3.0, m["test_optimizer_runs_total"])
	assert.Equal(t, 3.0, m["test_optimizer_run_duration_seconds"])
	assert.Equal(t, 3000.0, m["test_optimizer_iterations_total"])
	assert.Equal(t, 600.0, m["test_optimizer_accepted_moves_total"])
	assert.Equal(t, 120.0, m["test_optimizer_last_value"])
	assert.Equal(t, 160.0, m["test_optimizer_best_value"])
}

func TestPrometheusCollector_JobsAndLog(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheus(reg, "")

	c.RecordJob("completed")
	c.RecordJob("failed")
	c.RecordJob("completed")
	c.SetActiveJobs(2)
	c.RecordLogWriteFailure()

	m := gathered(t, reg)
	assert.Equal(t, 3.0, m["knapsack_server_jobs_total"])
	assert.Equal(t, 2.0, m["knapsack_server_active_jobs"])
	assert.Equal(t, 1.0, m["knapsack_result_log_write_failures_total"])
}

func TestPrometheusCollector_SeparateRegistries(t *testing.T) {
	// Two collectors on distinct registries must not collide.
	require.NotPanics(t, func() {
		NewPrometheus(prometheus.NewRegistry(), "").RecordJob("completed")
		NewPrometheus(prometheus.NewRegistry(), "").RecordJob("completed")
	})
}
