package metrics

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Used when the CLI runs without a metrics endpoint.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements Collector.
var _ Collector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordRun discards the run metric.
func (n *NopMetrics) RecordRun(_ /* solver */ string, _ /* stats */ RunStats) {
	// No-op
}

// RecordLogWriteFailure discards the failure.
func (n *NopMetrics) RecordLogWriteFailure() {
	// No-op
}

// RecordJob discards the job outcome.
func (n *NopMetrics) RecordJob(_ /* state */ string) {
	// No-op
}

// SetActiveJobs discards the gauge update.
func (n *NopMetrics) SetActiveJobs(_ /* count */ int) {
	// No-op
}
