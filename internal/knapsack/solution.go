package knapsack

import "fmt"

// Solution is a selection over catalog positions. Weight and value are kept in
// step with the selection on every Toggle and never recomputed from scratch.
type Solution struct {
	selected []bool
	weight   int
	value    int
	count    int
}

// NewSolution creates an empty selection over n positions.
func NewSolution(n int) *Solution {
	return &Solution{
		selected: make([]bool, n),
	}
}

// Toggle flips the selection of position i and updates the aggregates.
func (s *Solution) Toggle(cat *Catalog, i int) {
	it := cat.items[i]
	if s.selected[i] {
		s.selected[i] = false
		s.weight -= it.Weight
		s.value -= it.Value
		s.count--
		return
	}
	s.selected[i] = true
	s.weight += it.Weight
	s.value += it.Value
	s.count++
}

// IsSelected reports whether position i is part of the selection.
func (s *Solution) IsSelected(i int) bool {
	return s.selected[i]
}

// Weight returns the total weight of the selected items.
func (s *Solution) Weight() int {
	return s.weight
}

// Value returns the total value of the selected items.
func (s *Solution) Value() int {
	return s.value
}

// Len returns the number of positions.
func (s *Solution) Len() int {
	return len(s.selected)
}

// Count returns the number of selected positions.
func (s *Solution) Count() int {
	return s.count
}

// Feasible reports whether the selection fits under the catalog capacity.
func (s *Solution) Feasible(cat *Catalog) bool {
	return s.weight <= cat.capacity
}

// Clone returns a deep copy.
func (s *Solution) Clone() *Solution {
	return &Solution{
		selected: append([]bool(nil), s.selected...),
		weight:   s.weight,
		value:    s.value,
		count:    s.count,
	}
}

// CopyFrom overwrites s with other, reusing s's buffer when it is large enough.
func (s *Solution) CopyFrom(other *Solution) {
	if cap(s.selected) < len(other.selected) {
		s.selected = make([]bool, len(other.selected))
	}
	s.selected = s.selected[:len(other.selected)]
	copy(s.selected, other.selected)
	s.weight = other.weight
	s.value = other.value
	s.count = other.count
}

// Selected returns the selected positions in catalog order.
func (s *Solution) Selected() []int {
	out := make([]int, 0, s.count)
	for i, sel := range s.selected {
		if sel {
			out = append(out, i)
		}
	}
	return out
}

// SelectedIDs returns the ids of the selected items in catalog order.
func (s *Solution) SelectedIDs(cat *Catalog) []int {
	ids := make([]int, 0, s.count)
	for i, sel := range s.selected {
		if sel {
			ids = append(ids, cat.items[i].ID)
		}
	}
	return ids
}

// Verify recomputes the aggregates from the selection and reports any drift
// from the incrementally maintained values.
func (s *Solution) Verify(cat *Catalog) error {
	if len(s.selected) != cat.Len() {
		return fmt.Errorf("selection length %d does not match catalog size %d", len(s.selected), cat.Len())
	}

	var weight, value, count int
	for i, sel := range s.selected {
		if sel {
			weight += cat.items[i].Weight
			value += cat.items[i].Value
			count++
		}
	}

	if weight != s.weight || value != s.value || count != s.count {
		return fmt.Errorf("aggregate drift: weight %d/%d, value %d/%d, count %d/%d",
			s.weight, weight, s.value, value, s.count, count)
	}
	return nil
}
