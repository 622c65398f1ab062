package knapsack

import (
	"fmt"
	"math"
)

// Item is a single selectable item of a problem instance.
type Item struct {
	ID     int `json:"id"`
	Weight int `json:"weight"`
	Value  int `json:"value"`
}

// Catalog is the ordered, read-only item set of one problem instance together
// with its capacity bound.
type Catalog struct {
	items    []Item
	capacity int
}

// NewCatalog creates a catalog over a private copy of items.
func NewCatalog(items []Item, capacity int) (*Catalog, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("capacity cannot be negative: %d", capacity)
	}
	weight, value := 0, 0
	for i, it := range items {
		if it.Weight < 0 || it.Value < 0 {
			return nil, fmt.Errorf("item %d (id %d) has negative weight or value", i, it.ID)
		}
		if it.Weight > math.MaxInt-weight || it.Value > math.MaxInt-value {
			return nil, fmt.Errorf("item %d (id %d) overflows the total weight or value", i, it.ID)
		}
		weight += it.Weight
		value += it.Value
	}

	owned := make([]Item, len(items))
	copy(owned, items)

	return &Catalog{
		items:    owned,
		capacity: capacity,
	}, nil
}

// HalfTotalWeight returns floor(sum of weights / 2), the conventional capacity
// for an instance.
func HalfTotalWeight(items []Item) int {
	total := 0
	for _, it := range items {
		total += it.Weight
	}
	return total / 2
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// Capacity returns the weight bound C.
func (c *Catalog) Capacity() int {
	return c.capacity
}

// Item returns the item at position i.
func (c *Catalog) Item(i int) Item {
	return c.items[i]
}

// Items returns a copy of the catalog's items in order.
func (c *Catalog) Items() []Item {
	return append([]Item(nil), c.items...)
}

// TotalWeight returns the weight of all items combined.
func (c *Catalog) TotalWeight() int {
	total := 0
	for _, it := range c.items {
		total += it.Weight
	}
	return total
}
