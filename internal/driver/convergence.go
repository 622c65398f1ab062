package driver

import (
	"log/slog"
)

// ConvergenceConfig stops a Runner once restarts stop paying off.
type ConvergenceConfig struct {
	// Patience is the number of consecutive runs without a significant
	// improvement of the best value before the Runner stops. Zero disables
	// the check.
	Patience int

	// Threshold is the minimum relative gain over the last significant best
	// that counts as progress. 0.001 = 0.1%.
	Threshold float64
}

// Enabled reports whether the check is active.
func (c ConvergenceConfig) Enabled() bool {
	return c.Patience > 0
}

// ConvergenceTracker follows the best value across runs.
type ConvergenceTracker struct {
	config          ConvergenceConfig
	runs            int
	best            int
	lastSignificant int
	staleCount      int
}

// NewConvergenceTracker creates a tracker for config.
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	return &ConvergenceTracker{config: config}
}

// Update records the final value of one run and reports whether the Runner
// should stop.
func (c *ConvergenceTracker) Update(value int) bool {
	if !c.config.Enabled() {
		return false
	}

	c.runs++
	if c.runs == 1 {
		c.best = value
		c.lastSignificant = value
		return false
	}
	if value > c.best {
		c.best = value
	}

	if c.significant(value) {
		c.lastSignificant = value
		c.staleCount = 0
		slog.Debug("Best value improved", "value", value, "stale_count", c.staleCount)
		return false
	}

	c.staleCount++
	slog.Debug("No significant improvement",
		"value", value,
		"last_significant", c.lastSignificant,
		"stale_count", c.staleCount,
		"patience", c.config.Patience,
	)

	if c.staleCount >= c.config.Patience {
		slog.Info("Convergence detected, stopping runs",
			"stale_count", c.staleCount,
			"patience", c.config.Patience,
			"best_value", c.best,
		)
		return true
	}
	return false
}

func (c *ConvergenceTracker) significant(value int) bool {
	if value <= c.lastSignificant {
		return false
	}
	if c.lastSignificant <= 0 {
		return true
	}
	gain := float64(value-c.lastSignificant) / float64(c.lastSignificant)
	return gain >= c.config.Threshold
}

// Best returns the best value seen so far.
func (c *ConvergenceTracker) Best() int {
	return c.best
}

// StaleCount returns the number of runs since the last significant improvement.
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}
