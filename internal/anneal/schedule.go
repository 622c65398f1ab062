package anneal

import (
	"fmt"
	"math"
	"math/rand"
)

// Accept applies the Metropolis criterion to a maximization problem. Moves that
// do not lose value are accepted without consulting rng; a move losing delta is
// accepted with probability exp(-delta/temperature).
func Accept(candidate, current int, temperature float64, rng *rand.Rand) bool {
	delta := candidate - current
	if delta >= 0 {
		return true
	}
	p := math.Exp(float64(delta) / temperature)
	return rng.Float64() < p
}

// Schedule is a geometric cooling schedule.
type Schedule struct {
	temperature float64
	rate        float64
	steps       int
}

// NewSchedule creates a schedule starting at initial and multiplying by rate on
// every step.
func NewSchedule(initial, rate float64) (*Schedule, error) {
	if !(initial > 0) || math.IsInf(initial, 1) {
		return nil, fmt.Errorf("%w: initial temperature must be positive and finite, got %v", ErrInvalidParams, initial)
	}
	if !(rate > 0 && rate < 1) {
		return nil, fmt.Errorf("%w: cooling rate must be in (0, 1), got %v", ErrInvalidParams, rate)
	}
	return &Schedule{temperature: initial, rate: rate}, nil
}

// Temperature returns the current temperature.
func (s *Schedule) Temperature() float64 {
	return s.temperature
}

// Steps returns how many times Next has been called.
func (s *Schedule) Steps() int {
	return s.steps
}

// Next cools the temperature by one step. The temperature never reaches zero:
// once the product underflows it stays at the smallest positive float64.
func (s *Schedule) Next() float64 {
	s.steps++
	t := s.temperature * s.rate
	if t <= 0 {
		t = math.SmallestNonzeroFloat64
	}
	s.temperature = t
	return t
}
