package anneal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/cwbudde/knapsackanneal/internal/knapsack"
)

// ErrInvalidParams is wrapped by every parameter validation failure.
var ErrInvalidParams = errors.New("invalid annealing parameters")

// ctxCheckInterval is how many iterations pass between cancellation checks.
const ctxCheckInterval = 4096

// Params are the knobs of one annealing run.
type Params struct {
	InitialTemperature float64 `json:"initialTemperature"`
	CoolingRate        float64 `json:"coolingRate"`
	Iterations         int     `json:"iterations"`
}

// DefaultParams returns the parameters of the long production runs.
func DefaultParams() Params {
	return Params{
		InitialTemperature: 500.0,
		CoolingRate:        0.99995,
		Iterations:         100_000_000,
	}
}

// Validate checks the parameters and returns an error wrapping ErrInvalidParams.
func (p Params) Validate() error {
	if _, err := NewSchedule(p.InitialTemperature, p.CoolingRate); err != nil {
		return err
	}
	if p.Iterations < 0 {
		return fmt.Errorf("%w: iterations cannot be negative, got %d", ErrInvalidParams, p.Iterations)
	}
	return nil
}

// Progress is a snapshot of a run in flight.
type Progress struct {
	Iteration   int
	Iterations  int
	Temperature float64
	Value       int
	Weight      int
	Accepted    int
}

// ProgressFunc receives periodic snapshots. It runs on the optimizer's goroutine
// and must not retain the solution.
type ProgressFunc func(Progress)

// Result is the outcome of one run.
type Result struct {
	Solution         *knapsack.Solution
	Params           Params
	Capacity         int
	InitialValue     int
	InitialWeight    int
	Accepted         int
	Improved         int
	FinalTemperature float64
	Elapsed          time.Duration
}

// Optimizer runs simulated annealing over a catalog. It owns its random
// generator, so one Optimizer must not be shared between goroutines.
type Optimizer struct {
	rng           *rand.Rand
	progress      ProgressFunc
	progressEvery int
	logger        *slog.Logger
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithProgress reports a snapshot every n iterations, plus one for the initial
// state and one after the last iteration.
func WithProgress(every int, fn ProgressFunc) Option {
	return func(o *Optimizer) {
		o.progressEvery = every
		o.progress = fn
	}
}

// WithLogger sets the logger used for run start/finish records.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Optimizer) {
		o.logger = logger
	}
}

// New creates an optimizer drawing from rng. A nil rng is seeded from the clock.
func New(rng *rand.Rand, opts ...Option) *Optimizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	o := &Optimizer{
		rng:    rng,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run performs exactly p.Iterations annealing steps starting from a fresh random
// construction and returns the final current solution. Each step toggles one
// item, repairs feasibility, applies the Metropolis test and cools once.
func (o *Optimizer) Run(ctx context.Context, cat *knapsack.Catalog, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	schedule, _ := NewSchedule(p.InitialTemperature, p.CoolingRate)

	start := time.Now()
	current := knapsack.Construct(cat, o.rng)
	result := &Result{
		Params:        p,
		Capacity:      cat.Capacity(),
		InitialValue:  current.Value(),
		InitialWeight: current.Weight(),
	}

	o.logger.Debug("Starting annealing run",
		"items", cat.Len(),
		"capacity", cat.Capacity(),
		"iterations", p.Iterations,
		"initial_value", current.Value(),
	)
	o.report(0, p, schedule, current, 0)

	// The candidate is built in place on current. journal holds every toggled
	// position so a rejected candidate can be rolled back exactly.
	journal := make([]int, 0, 16)

	for iter := 0; iter < p.Iterations; iter++ {
		if iter%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		currentValue := current.Value()
		journal = journal[:0]
		if i := knapsack.Neighbor(current, cat, o.rng); i >= 0 {
			journal = append(journal, i)
		}
		journal = knapsack.Repair(current, cat, o.rng, journal)

		candidateValue := current.Value()
		if Accept(candidateValue, currentValue, schedule.Temperature(), o.rng) {
			result.Accepted++
			if candidateValue > currentValue {
				result.Improved++
			}
		} else {
			for j := len(journal) - 1; j >= 0; j-- {
				current.Toggle(cat, journal[j])
			}
		}

		schedule.Next()

		if o.progress != nil && o.progressEvery > 0 && (iter+1)%o.progressEvery == 0 {
			o.report(iter+1, p, schedule, current, result.Accepted)
		}
	}

	if o.progress != nil && (o.progressEvery <= 0 || p.Iterations%o.progressEvery != 0) {
		o.report(p.Iterations, p, schedule, current, result.Accepted)
	}

	result.Solution = current
	result.FinalTemperature = schedule.Temperature()
	result.Elapsed = time.Since(start)

	o.logger.Debug("Annealing run complete",
		"value", current.Value(),
		"weight", current.Weight(),
		"accepted", result.Accepted,
		"final_temperature", result.FinalTemperature,
		"elapsed", result.Elapsed,
	)

	return result, nil
}

func (o *Optimizer) report(iter int, p Params, schedule *Schedule, s *knapsack.Solution, accepted int) {
	if o.progress == nil {
		return
	}
	o.progress(Progress{
		Iteration:   iter,
		Iterations:  p.Iterations,
		Temperature: schedule.Temperature(),
		Value:       s.Value(),
		Weight:      s.Weight(),
		Accepted:    accepted,
	})
}
