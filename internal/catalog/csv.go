package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/knapsackanneal/internal/knapsack"
)

// LoadCSV reads a CSV item source.
func LoadCSV(path string, opts Options) (*knapsack.Catalog, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		opts.logger().Warn("Item source not found, using empty catalog", "path", path)
		return empty(opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open item source: %w", err)
	}
	defer f.Close()

	items, err := ParseCSV(f, path, opts)
	if err != nil {
		return nil, err
	}

	opts.logger().Info("Loaded item source", "path", path, "items", len(items))
	return build(items, 0, opts)
}

// ParseCSV parses CSV rows from r. The first line is a header and is skipped.
// Each record is parsed on its own; nothing carries over between rows.
func ParseCSV(r io.Reader, source string, opts Options) ([]knapsack.Item, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var items []knapsack.Item
	var sums totals
	header := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, fmt.Errorf("failed to read item source: %w", err)
			}
			if header {
				header = false
				continue
			}
			if err := reject(opts, source, perr.Line, perr.Err.Error()); err != nil {
				return nil, err
			}
			continue
		}

		if header {
			header = false
			continue
		}

		item, reason := parseRecord(record)
		if reason == "" {
			reason = sums.add(item)
		}
		if reason != "" {
			line, _ := reader.FieldPos(0)
			if err := reject(opts, source, line, reason); err != nil {
				return nil, err
			}
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

func parseRecord(record []string) (knapsack.Item, string) {
	if len(record) != 3 {
		return knapsack.Item{}, fmt.Sprintf("expected 3 fields, got %d", len(record))
	}

	var fields [3]int
	names := [3]string{"id", "weight", "value"}
	for i, raw := range record {
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return knapsack.Item{}, fmt.Sprintf("invalid %s %q", names[i], raw)
		}
		fields[i] = v
	}

	if fields[1] < 0 || fields[2] < 0 {
		return knapsack.Item{}, "weight and value must not be negative"
	}

	return knapsack.Item{ID: fields[0], Weight: fields[1], Value: fields[2]}, ""
}

// reject applies the malformed-row policy.
func reject(opts Options, source string, line int, reason string) error {
	perr := &ParseError{Source: source, Line: line, Reason: reason}
	if opts.Strict {
		return perr
	}
	opts.logger().Warn("Skipping malformed item record", "source", source, "line", line, "reason", reason)
	return nil
}
