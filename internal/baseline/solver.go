package baseline

import (
	"context"
	"math/rand"
	"time"

	"github.com/cwbudde/knapsackanneal/internal/anneal"
	"github.com/cwbudde/knapsackanneal/internal/knapsack"
	"github.com/cwbudde/knapsackanneal/internal/opt"
)

// Solver runs the mayfly baseline with the same call shape as the annealing
// optimizer, so drivers and server jobs can switch between them.
type Solver struct {
	iterations int
	population int
	rng        *rand.Rand
}

// NewSolver creates a baseline solver. Each Run seeds a fresh mayfly instance
// from rng, so repeated runs differ while staying reproducible for a fixed
// seed. A nil rng is seeded from the clock.
func NewSolver(iterations, population int, rng *rand.Rand) *Solver {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Solver{iterations: iterations, population: population, rng: rng}
}

// Run solves cat. The annealing parameters are ignored: Result.Params carries
// the mayfly iteration budget with zero temperature and rate, and the other
// annealing-specific Result fields are left zero. The mayfly search itself
// cannot be interrupted, so ctx is checked before and after it.
func (s *Solver) Run(ctx context.Context, cat *knapsack.Catalog, _ anneal.Params) (*anneal.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	sol, err := Solve(cat, opt.NewMayfly(s.iterations, s.population, s.rng.Int63()))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &anneal.Result{
		Solution: sol,
		Params:   anneal.Params{Iterations: s.iterations},
		Capacity: cat.Capacity(),
		Elapsed:  time.Since(start),
	}, nil
}
