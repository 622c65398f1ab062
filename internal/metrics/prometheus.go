package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector backed by Prometheus.
//
// Metrics are created and registered lazily on first use, so constructing a
// collector that is never used leaves the registry untouched.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	runIterations    *prometheus.CounterVec
	acceptedMoves    *prometheus.CounterVec
	lastValue        *prometheus.GaugeVec
	bestValue        *prometheus.GaugeVec
	logWriteFailures prometheus.Counter
	jobsTotal        *prometheus.CounterVec
	activeJobs       prometheus.Gauge

	mu   sync.Mutex
	best map[string]int
}

// Compile-time assertion that PrometheusCollector implements Collector.
var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer (uses prometheus.DefaultRegisterer if nil)
//   - namespace: metrics namespace (defaults to "knapsack" if empty)
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "knapsack"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace, best: make(map[string]int)}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "optimizer",
			Name:      "runs_total",
			Help:      "Total finished optimizer runs by solver.",
		}, []string{"solver"})

		p.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "optimizer",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of optimizer runs in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 12), // 1ms .. ~70min
		}, []string{"solver"})

		p.runIterations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "optimizer",
			Name:      "iterations_total",
			Help:      "Total annealing iterations performed by solver.",
		}, []string{"solver"})

		p.acceptedMoves = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "optimizer",
			Name:      "accepted_moves_total",
			Help:      "Total candidate moves accepted by the Metropolis test.",
		}, []string{"solver"})

		p.lastValue = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "optimizer",
			Name:      "last_value",
			Help:      "Final value of the most recent run.",
		}, []string{"solver"})

		p.bestValue = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "optimizer",
			Name:      "best_value",
			Help:      "Best final value seen since process start.",
		}, []string{"solver"})

		p.logWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "result_log",
			Name:      "write_failures_total",
			Help:      "Total result log appends that failed.",
		})

		p.jobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "server",
			Name:      "jobs_total",
			Help:      "Total jobs by terminal state (completed,failed,cancelled).",
		}, []string{"state"})

		p.activeJobs = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "server",
			Name:      "active_jobs",
			Help:      "Number of jobs currently running.",
		})

		p.reg.MustRegister(p.runsTotal)
		p.reg.MustRegister(p.runDuration)
		p.reg.MustRegister(p.runIterations)
		p.reg.MustRegister(p.acceptedMoves)
		p.reg.MustRegister(p.lastValue)
		p.reg.MustRegister(p.bestValue)
		p.reg.MustRegister(p.logWriteFailures)
		p.reg.MustRegister(p.jobsTotal)
		p.reg.MustRegister(p.activeJobs)
	})
}

// RecordRun records the outcome of one run.
func (p *PrometheusCollector) RecordRun(solver string, stats RunStats) {
	p.ensureRegistered()
	p.runsTotal.WithLabelValues(solver).Inc()
	p.runDuration.WithLabelValues(solver).Observe(stats.Elapsed.Seconds())
	p.runIterations.WithLabelValues(solver).Add(float64(stats.Iterations))
	p.acceptedMoves.WithLabelValues(solver).Add(float64(stats.Accepted))
	p.lastValue.WithLabelValues(solver).Set(float64(stats.Value))

	p.mu.Lock()
	defer p.mu.Unlock()
	if best, ok := p.best[solver]; !ok || stats.Value > best {
		p.best[solver] = stats.Value
		p.bestValue.WithLabelValues(solver).Set(float64(stats.Value))
	}
}

// RecordLogWriteFailure increments the result log failure counter.
func (p *PrometheusCollector) RecordLogWriteFailure() {
	p.ensureRegistered()
	p.logWriteFailures.Inc()
}

// RecordJob increments the job counter for state.
func (p *PrometheusCollector) RecordJob(state string) {
	p.ensureRegistered()
	p.jobsTotal.WithLabelValues(state).Inc()
}

// SetActiveJobs sets the running-jobs gauge.
func (p *PrometheusCollector) SetActiveJobs(count int) {
	p.ensureRegistered()
	p.activeJobs.Set(float64(count))
}
