package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/cwbudde/knapsackanneal/internal/knapsack"
)

// LoadJSON reads a JSON item source.
func LoadJSON(path string, opts Options) (*knapsack.Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		opts.logger().Warn("Item source not found, using empty catalog", "path", path)
		return empty(opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read item source: %w", err)
	}

	cat, err := ParseJSON(string(data), path, opts)
	if err != nil {
		return nil, err
	}

	opts.logger().Info("Loaded item source", "path", path, "items", cat.Len(), "capacity", cat.Capacity())
	return cat, nil
}

// ParseJSON parses a JSON document into a catalog. The items array may be the
// document itself or its "items" member; a "capacity" member is honoured when
// Options.Capacity is zero.
func ParseJSON(doc, source string, opts Options) (*knapsack.Catalog, error) {
	if !gjson.Valid(doc) {
		return nil, &ParseError{Source: source, Line: 1, Reason: "invalid JSON document"}
	}

	root := gjson.Parse(doc)
	list := root
	declared := 0
	if root.IsObject() {
		list = root.Get("items")
		declared = int(root.Get("capacity").Int())
	}
	if !list.IsArray() {
		return nil, &ParseError{Source: source, Line: 1, Reason: "no items array"}
	}

	items, err := ParseItems(list, source, opts)
	if err != nil {
		return nil, err
	}
	return build(items, declared, opts)
}

// ParseItems converts a gjson array of item objects. Records are numbered from 1
// in ParseError.Line.
func ParseItems(list gjson.Result, source string, opts Options) ([]knapsack.Item, error) {
	var items []knapsack.Item
	var sums totals
	var fatal error
	index := 0
	list.ForEach(func(_, v gjson.Result) bool {
		index++
		item, reason := parseObject(v)
		if reason == "" {
			reason = sums.add(item)
		}
		if reason != "" {
			if err := reject(opts, source, index, reason); err != nil {
				fatal = err
				return false
			}
			return true
		}
		items = append(items, item)
		return true
	})
	if fatal != nil {
		return nil, fatal
	}
	return items, nil
}

func parseObject(v gjson.Result) (knapsack.Item, string) {
	if !v.IsObject() {
		return knapsack.Item{}, "record is not an object"
	}

	var fields [3]int
	for i, name := range [3]string{"id", "weight", "value"} {
		f := v.Get(name)
		if f.Type != gjson.Number {
			return knapsack.Item{}, fmt.Sprintf("missing or non-numeric %s", name)
		}
		n := f.Int()
		if float64(n) != f.Num {
			return knapsack.Item{}, fmt.Sprintf("%s is not an integer", name)
		}
		fields[i] = int(n)
	}

	if fields[1] < 0 || fields[2] < 0 {
		return knapsack.Item{}, "weight and value must not be negative"
	}
	return knapsack.Item{ID: fields[0], Weight: fields[1], Value: fields[2]}, ""
}
