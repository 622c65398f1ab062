// Package baseline solves a catalog with a continuous optimizer, for
// comparison against the annealing engine.
//
// A position x in [0,1]^N is decoded by wanting item i iff x[i] > 0.5 and then
// admitting the wanted items in catalog order while they still fit. Decoding is
// deterministic and always yields a feasible solution, so the optimizer only
// ever sees the value landscape.
package baseline

import (
	"fmt"

	"github.com/cwbudde/knapsackanneal/internal/knapsack"
	"github.com/cwbudde/knapsackanneal/internal/opt"
)

const threshold = 0.5

// Decode maps a position to a feasible solution of cat. Missing coordinates
// count as unwanted.
func Decode(cat *knapsack.Catalog, x []float64) *knapsack.Solution {
	s := knapsack.NewSolution(cat.Len())
	for i := 0; i < cat.Len() && i < len(x); i++ {
		if x[i] <= threshold {
			continue
		}
		if s.Weight()+cat.Item(i).Weight <= cat.Capacity() {
			s.Toggle(cat, i)
		}
	}
	return s
}

// Solve minimizes the negated decoded value with o and returns the decoded best
// position. An empty catalog yields the empty solution without running o.
func Solve(cat *knapsack.Catalog, o opt.Optimizer) (*knapsack.Solution, error) {
	n := cat.Len()
	if n == 0 {
		return knapsack.NewSolution(0), nil
	}

	lower := make([]float64, n)
	upper := make([]float64, n)
	for i := range upper {
		upper[i] = 1
	}

	eval := func(x []float64) float64 {
		return -float64(Decode(cat, x).Value())
	}

	best, _, err := o.Run(eval, lower, upper)
	if err != nil {
		return nil, fmt.Errorf("failed to run baseline optimizer: %w", err)
	}
	return Decode(cat, best), nil
}
