package store

import (
	"errors"
	"io"
	"testing"
	"time"
)

func TestTraceWriter_WriteAndRead(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewTraceWriter(tmpDir, "run-1", false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	entries := []TraceEntry{
		{Iteration: 0, Temperature: 500, Value: 60, Weight: 10, Timestamp: time.Now()},
		{Iteration: 1000, Temperature: 475.6, Value: 100, Weight: 20, Accepted: 400, Timestamp: time.Now()},
		{Iteration: 2000, Temperature: 452.4, Value: 160, Weight: 30, Accepted: 700, Timestamp: time.Now()},
	}
	for _, entry := range entries {
		if err := writer.Write(entry); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	if err := writer.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	reader, err := NewTraceReader(tmpDir, "run-1")
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	read, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(read) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(read))
	}
	for i, entry := range read {
		if entry.Iteration != entries[i].Iteration || entry.Value != entries[i].Value || entry.Temperature != entries[i].Temperature {
			t.Errorf("Entry %d mismatch: got %+v, want %+v", i, entry, entries[i])
		}
	}
}

func TestTraceWriter_AppendAndTruncate(t *testing.T) {
	tmpDir := t.TempDir()

	write := func(appendMode bool, iteration int) {
		t.Helper()
		w, err := NewTraceWriter(tmpDir, "run", appendMode)
		if err != nil {
			t.Fatalf("Failed to create trace writer: %v", err)
		}
		if err := w.Write(TraceEntry{Iteration: iteration}); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Failed to close writer: %v", err)
		}
	}
	count := func() int {
		t.Helper()
		r, err := NewTraceReader(tmpDir, "run")
		if err != nil {
			t.Fatalf("Failed to open reader: %v", err)
		}
		defer r.Close()
		entries, err := r.ReadAll()
		if err != nil {
			t.Fatalf("ReadAll failed: %v", err)
		}
		return len(entries)
	}

	write(false, 0)
	write(true, 10)
	if n := count(); n != 2 {
		t.Errorf("Expected 2 entries after append, got %d", n)
	}

	write(false, 20)
	if n := count(); n != 1 {
		t.Errorf("Expected 1 entry after truncating write, got %d", n)
	}
}

func TestTraceReader_NotFound(t *testing.T) {
	_, err := NewTraceReader(t.TempDir(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTraceReader_EOF(t *testing.T) {
	tmpDir := t.TempDir()
	w, err := NewTraceWriter(tmpDir, "empty", false)
	if err != nil {
		t.Fatal(err)
	}
	w.Close()

	r, err := NewTraceReader(tmpDir, "empty")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if _, err := r.Read(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}
