// Package catalog loads problem instances from item sources.
//
// Two formats are understood:
//
//   - CSV: one header line followed by "id,weight,value" rows.
//   - JSON: an array of {"id","weight","value"} objects, either at the top level
//     or under "items", with an optional "capacity".
//
// A missing source is not an error: a warning is logged and an empty catalog is
// returned. Malformed rows are skipped with a warning unless Options.Strict is
// set, in which case the first one aborts the load with a *ParseError.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"github.com/cwbudde/knapsackanneal/internal/knapsack"
)

// ErrCountMismatch is returned when the loaded item count differs from
// Options.ExpectedCount.
var ErrCountMismatch = errors.New("item count mismatch")

// Options control how a source becomes a catalog.
type Options struct {
	// Capacity overrides the capacity bound. Zero means half the total weight
	// of the loaded items (or the capacity declared by a JSON source).
	Capacity int

	// ExpectedCount, when positive, must equal the number of loaded items.
	ExpectedCount int

	// Strict turns the first malformed record into a fatal error.
	Strict bool

	// Logger receives per-row warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// ParseError describes one malformed record.
type ParseError struct {
	Source string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Reason)
}

// Load reads path, choosing the format from its extension.
func Load(path string, opts Options) (*knapsack.Catalog, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadJSON(path, opts)
	}
	return LoadCSV(path, opts)
}

// build applies the capacity and count policies to parsed items.
func build(items []knapsack.Item, declaredCapacity int, opts Options) (*knapsack.Catalog, error) {
	if opts.ExpectedCount > 0 && len(items) != opts.ExpectedCount {
		return nil, fmt.Errorf("%w: expected %d items, loaded %d", ErrCountMismatch, opts.ExpectedCount, len(items))
	}

	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = declaredCapacity
	}
	if capacity <= 0 {
		capacity = knapsack.HalfTotalWeight(items)
	}

	cat, err := knapsack.NewCatalog(items, capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}
	return cat, nil
}

// totals tracks the running weight and value sums of accepted records. A record
// whose weight or value would push a sum past math.MaxInt is malformed, so no
// solution aggregate can overflow.
type totals struct {
	weight int
	value  int
}

func (t *totals) add(it knapsack.Item) string {
	if it.Weight > math.MaxInt-t.weight {
		return "total weight overflows"
	}
	if it.Value > math.MaxInt-t.value {
		return "total value overflows"
	}
	t.weight += it.Weight
	t.value += it.Value
	return ""
}

// empty returns the catalog used when a source is missing.
func empty(opts Options) (*knapsack.Catalog, error) {
	return build(nil, 0, Options{Capacity: opts.Capacity})
}
