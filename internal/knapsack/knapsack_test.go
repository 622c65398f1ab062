package knapsack

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := NewCatalog([]Item{
		{ID: 1, Weight: 10, Value: 60},
		{ID: 2, Weight: 20, Value: 100},
		{ID: 3, Weight: 30, Value: 120},
	}, 30)
	require.NoError(t, err)
	return cat
}

func randomCatalog(t *testing.T, rng *rand.Rand, n int) *Catalog {
	t.Helper()
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{ID: i + 100, Weight: 1 + rng.Intn(50), Value: rng.Intn(100)}
	}
	cat, err := NewCatalog(items, HalfTotalWeight(items))
	require.NoError(t, err)
	return cat
}

func TestNewCatalog(t *testing.T) {
	items := []Item{{ID: 7, Weight: 3, Value: 4}}
	cat, err := NewCatalog(items, 5)
	require.NoError(t, err)

	items[0].Weight = 99
	assert.Equal(t, 3, cat.Item(0).Weight, "catalog must own its items")
	assert.Equal(t, 1, cat.Len())
	assert.Equal(t, 5, cat.Capacity())
	assert.Equal(t, 3, cat.TotalWeight())

	_, err = NewCatalog(items, -1)
	assert.Error(t, err)

	_, err = NewCatalog([]Item{{ID: 1, Weight: -2, Value: 1}}, 10)
	assert.Error(t, err)

	big := math.MaxInt/2 + 1
	_, err = NewCatalog([]Item{{ID: 1, Weight: big}, {ID: 2, Weight: big}}, 10)
	assert.Error(t, err, "total weight overflows")
	_, err = NewCatalog([]Item{{ID: 1, Value: big}, {ID: 2, Value: big}}, 10)
	assert.Error(t, err, "total value overflows")
}

func TestHalfTotalWeight(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		want  int
	}{
		{"empty", nil, 0},
		{"even", []Item{{Weight: 10}, {Weight: 20}, {Weight: 30}}, 30},
		{"odd rounds down", []Item{{Weight: 3}, {Weight: 4}}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HalfTotalWeight(tt.items))
		})
	}
}

func TestSolutionToggle(t *testing.T) {
	cat := smallCatalog(t)
	s := NewSolution(cat.Len())

	s.Toggle(cat, 0)
	s.Toggle(cat, 2)
	assert.Equal(t, 40, s.Weight())
	assert.Equal(t, 180, s.Value())
	assert.Equal(t, 2, s.Count())
	assert.False(t, s.Feasible(cat))

	s.Toggle(cat, 2)
	assert.Equal(t, 10, s.Weight())
	assert.Equal(t, 60, s.Value())
	assert.True(t, s.Feasible(cat))
	require.NoError(t, s.Verify(cat))

	if diff := cmp.Diff([]int{1}, s.SelectedIDs(cat)); diff != "" {
		t.Errorf("SelectedIDs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0}, s.Selected()); diff != "" {
		t.Errorf("Selected mismatch (-want +got):\n%s", diff)
	}
}

func TestSolutionCloneAndCopyFrom(t *testing.T) {
	cat := smallCatalog(t)
	s := NewSolution(cat.Len())
	s.Toggle(cat, 1)

	clone := s.Clone()
	clone.Toggle(cat, 0)
	assert.False(t, s.IsSelected(0), "clone must not share the selection buffer")

	var dst Solution
	dst.CopyFrom(clone)
	assert.Equal(t, clone.Weight(), dst.Weight())
	assert.Equal(t, clone.Value(), dst.Value())
	assert.Equal(t, clone.Count(), dst.Count())
	require.NoError(t, dst.Verify(cat))
}

func TestVerifyDetectsDrift(t *testing.T) {
	cat := smallCatalog(t)
	s := NewSolution(cat.Len())
	s.Toggle(cat, 0)
	s.value += 1

	assert.Error(t, s.Verify(cat))
	assert.Error(t, NewSolution(2).Verify(cat))
}

func TestConstructIsFeasible(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		cat := randomCatalog(t, rng, 1+rng.Intn(60))
		s := Construct(cat, rng)
		require.True(t, s.Feasible(cat), "trial %d: weight %d over capacity %d", trial, s.Weight(), cat.Capacity())
		require.NoError(t, s.Verify(cat))
	}
}

func TestConstructSkipsDrawForItemsThatDoNotFit(t *testing.T) {
	// Every item is heavier than the capacity, so construction must not touch the generator.
	cat, err := NewCatalog([]Item{{ID: 1, Weight: 50, Value: 1}, {ID: 2, Weight: 60, Value: 1}}, 10)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	ref := rand.New(rand.NewSource(3))

	s := Construct(cat, rng)
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, ref.Int63(), rng.Int63())
}

func TestConstructFavoursEarlierItems(t *testing.T) {
	// Ten identical items, capacity for three: the first position is included far more often than the last.
	items := make([]Item, 10)
	for i := range items {
		items[i] = Item{ID: i, Weight: 1, Value: 1}
	}
	cat, err := NewCatalog(items, 3)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(11))
	var first, last int
	for trial := 0; trial < 2000; trial++ {
		s := Construct(cat, rng)
		if s.IsSelected(0) {
			first++
		}
		if s.IsSelected(9) {
			last++
		}
	}
	assert.Greater(t, first, last*2)
}

func TestNeighborFlipsOnePosition(t *testing.T) {
	cat := smallCatalog(t)
	rng := rand.New(rand.NewSource(1))
	s := NewSolution(cat.Len())

	for step := 0; step < 50; step++ {
		before := s.Clone()
		i := Neighbor(s, cat, rng)
		require.GreaterOrEqual(t, i, 0)
		require.Less(t, i, cat.Len())
		assert.NotEqual(t, before.IsSelected(i), s.IsSelected(i))
		require.NoError(t, s.Verify(cat))
	}
}

func TestNeighborEmptyCatalog(t *testing.T) {
	cat, err := NewCatalog(nil, 0)
	require.NoError(t, err)
	s := NewSolution(0)
	assert.Equal(t, -1, Neighbor(s, cat, rand.New(rand.NewSource(1))))
}

func TestRepairRestoresFeasibility(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 100; trial++ {
		cat := randomCatalog(t, rng, 5+rng.Intn(40))
		s := NewSolution(cat.Len())
		for i := 0; i < cat.Len(); i++ {
			s.Toggle(cat, i)
		}

		removed := Repair(s, cat, rng, nil)
		require.True(t, s.Feasible(cat))
		require.NoError(t, s.Verify(cat))
		for _, i := range removed {
			assert.False(t, s.IsSelected(i))
		}
		assert.Equal(t, cat.Len()-len(removed), s.Count())
	}
}

func TestRepairLeavesFeasibleSolutionAlone(t *testing.T) {
	cat := smallCatalog(t)
	s := NewSolution(cat.Len())
	s.Toggle(cat, 0)

	removed := Repair(s, cat, rand.New(rand.NewSource(5)), nil)
	assert.Empty(t, removed)
	assert.Equal(t, 10, s.Weight())
}

func TestRepairRemovalIsUniformOverSelected(t *testing.T) {
	// Two selected items of equal weight, capacity for one: each should be removed about half the time.
	items := []Item{{ID: 1, Weight: 5, Value: 1}, {ID: 2, Weight: 1, Value: 1}, {ID: 3, Weight: 5, Value: 1}}
	cat, err := NewCatalog(items, 6)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(99))
	counts := map[int]int{}
	const trials = 4000
	for trial := 0; trial < trials; trial++ {
		s := NewSolution(cat.Len())
		s.Toggle(cat, 0)
		s.Toggle(cat, 2)
		removed := Repair(s, cat, rng, nil)
		require.Len(t, removed, 1)
		counts[removed[0]]++
	}
	assert.InDelta(t, trials/2, counts[0], trials*0.05)
	assert.InDelta(t, trials/2, counts[2], trials*0.05)
}

func TestAggregatesStayConsistentUnderRandomMoves(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))
	cat := randomCatalog(t, rng, 80)
	s := Construct(cat, rng)

	for step := 0; step < 5000; step++ {
		Neighbor(s, cat, rng)
		Repair(s, cat, rng, nil)
		require.True(t, s.Feasible(cat))
	}
	require.NoError(t, s.Verify(cat))
}
