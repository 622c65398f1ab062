package store

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LogEntry is one run as recorded in the result log.
type LogEntry struct {
	Timestamp          time.Time
	InitialTemperature float64
	CoolingRate        float64
	Iterations         int
	FinalWeight        int
	FinalValue         int
	SelectedIDs        []int
}

// ResultLog is an append-only text log of run results. Each run takes two lines:
//
//	timestamp,initialTemperature,coolingRate,iterations,finalWeight,finalValue
//	id,id,id,
//
// The timestamp is in Unix seconds and the id list is comma-terminated (empty
// when nothing was selected).
type ResultLog struct {
	path string
}

// NewResultLog returns a log writing to path. The file is created on first Append.
func NewResultLog(path string) *ResultLog {
	return &ResultLog{path: path}
}

// Path returns the log file path.
func (l *ResultLog) Path() string {
	return l.path
}

// Append opens the log, writes entry and closes it again.
func (l *ResultLog) Append(entry LogEntry) (err error) {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open result log: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close result log: %w", cerr)
		}
	}()

	if _, err := f.WriteString(FormatLogEntry(entry)); err != nil {
		return fmt.Errorf("failed to write result log: %w", err)
	}
	return nil
}

// FormatLogEntry renders entry as its two log lines, including the final newline.
func FormatLogEntry(entry LogEntry) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(entry.Timestamp.Unix(), 10))
	b.WriteByte(',')
	b.WriteString(strconv.FormatFloat(entry.InitialTemperature, 'g', -1, 64))
	b.WriteByte(',')
	b.WriteString(strconv.FormatFloat(entry.CoolingRate, 'g', -1, 64))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(entry.Iterations))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(entry.FinalWeight))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(entry.FinalValue))
	b.WriteByte('\n')
	for _, id := range entry.SelectedIDs {
		b.WriteString(strconv.Itoa(id))
		b.WriteByte(',')
	}
	b.WriteByte('\n')
	return b.String()
}

// ReadResultLog parses every entry of the log at path. A missing log yields no
// entries and no error.
func ReadResultLog(path string) ([]LogEntry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open result log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var entries []LogEntry
	line := 0
	for scanner.Scan() {
		line++
		header := scanner.Text()
		if strings.TrimSpace(header) == "" {
			continue
		}
		entry, err := parseLogHeader(header)
		if err != nil {
			return nil, fmt.Errorf("result log line %d: %w", line, err)
		}

		if !scanner.Scan() {
			return nil, fmt.Errorf("result log line %d: missing id list", line)
		}
		line++
		ids, err := parseIDList(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("result log line %d: %w", line, err)
		}
		entry.SelectedIDs = ids
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan result log: %w", err)
	}

	return entries, nil
}

func parseLogHeader(s string) (LogEntry, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 6 {
		return LogEntry{}, fmt.Errorf("expected 6 fields, got %d", len(fields))
	}

	ts, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return LogEntry{}, fmt.Errorf("invalid timestamp %q", fields[0])
	}
	temp, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return LogEntry{}, fmt.Errorf("invalid initial temperature %q", fields[1])
	}
	rate, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return LogEntry{}, fmt.Errorf("invalid cooling rate %q", fields[2])
	}

	var ints [3]int
	for i, raw := range fields[3:] {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return LogEntry{}, fmt.Errorf("invalid integer field %q", raw)
		}
		ints[i] = v
	}

	return LogEntry{
		Timestamp:          time.Unix(ts, 0),
		InitialTemperature: temp,
		CoolingRate:        rate,
		Iterations:         ints[0],
		FinalWeight:        ints[1],
		FinalValue:         ints[2],
	}, nil
}

func parseIDList(s string) ([]int, error) {
	s = strings.TrimSuffix(s, ",")
	if s == "" {
		return []int{}, nil
	}

	parts := strings.Split(s, ",")
	ids := make([]int, len(parts))
	for i, p := range parts {
		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid item id %q", p)
		}
		ids[i] = id
	}
	return ids, nil
}
