package knapsack

import "math/rand"

// Construct builds a feasible starting solution. Positions are visited in
// catalog order and each one that still fits is included with probability 0.5,
// so earlier items are favoured once the running weight nears capacity. No
// random draw is made for an item that does not fit.
func Construct(cat *Catalog, rng *rand.Rand) *Solution {
	s := NewSolution(cat.Len())
	for i, it := range cat.items {
		if s.weight+it.Weight <= cat.capacity && rng.Float64() < 0.5 {
			s.Toggle(cat, i)
		}
	}
	return s
}

// Neighbor flips one uniformly chosen position and returns it. The result may
// exceed capacity. It returns -1 for an empty catalog.
func Neighbor(s *Solution, cat *Catalog, rng *rand.Rand) int {
	n := cat.Len()
	if n == 0 {
		return -1
	}
	i := rng.Intn(n)
	s.Toggle(cat, i)
	return i
}

// Repair deselects uniformly drawn selected positions until s fits under
// capacity. Draws that land on unselected positions are discarded. Removed
// positions are appended to removed and the extended slice is returned.
func Repair(s *Solution, cat *Catalog, rng *rand.Rand, removed []int) []int {
	n := cat.Len()
	for s.weight > cat.capacity {
		i := rng.Intn(n)
		if s.selected[i] {
			s.Toggle(cat, i)
			removed = append(removed, i)
		}
	}
	return removed
}
