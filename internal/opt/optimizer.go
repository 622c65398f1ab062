// Package opt defines the continuous black-box optimizer used by the baseline
// solver, together with its mayfly-backed implementation.
package opt

import "errors"

// ErrBounds is returned when the bounds passed to Run are inconsistent.
var ErrBounds = errors.New("invalid search bounds")

// Objective maps a position in the search box to a cost. Lower is better.
type Objective func(x []float64) float64

// Optimizer minimizes an objective over the box [lower, upper].
type Optimizer interface {
	// Run returns the best position found and its cost. lower and upper must
	// have the same, non-zero length, which is the dimension of the search.
	Run(eval Objective, lower, upper []float64) ([]float64, float64, error)
}

// checkBounds validates a search box and returns its dimension.
func checkBounds(lower, upper []float64) (int, error) {
	if len(lower) == 0 || len(lower) != len(upper) {
		return 0, ErrBounds
	}
	for i := range lower {
		if lower[i] >= upper[i] {
			return 0, ErrBounds
		}
	}
	return len(lower), nil
}
