package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}

	return store, tempDir
}

// createTestRecord creates a run record with test data.
func createTestRecord(runID string) *RunRecord {
	return &RunRecord{
		RunID:            runID,
		SelectedIDs:      []int{1, 2},
		FinalWeight:      30,
		FinalValue:       160,
		InitialValue:     60,
		Capacity:         30,
		Items:            3,
		Iterations:       10000,
		Accepted:         812,
		FinalTemperature: 0.0045,
		Elapsed:          3 * time.Millisecond,
		Timestamp:        time.Now(),
		Config: RunConfig{
			ItemsPath:          "data.csv",
			Solver:             "anneal",
			InitialTemperature: 100,
			CoolingRate:        0.999,
			Iterations:         10000,
			Seed:               42,
		},
	}
}

func TestNewFSStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if store.BaseDir() != dir {
		t.Errorf("BaseDir = %s, want %s", store.BaseDir(), dir)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("Base directory was not created: %v", err)
	}
}

func TestSaveRun(t *testing.T) {
	store, tempDir := setupTestStore(t)

	if err := store.SaveRun("run-1", createTestRecord("run-1")); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	expectedPath := filepath.Join(tempDir, "runs", "run-1", "run.json")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Fatalf("Run file was not created at %s", expectedPath)
	}
	if _, err := os.Stat(expectedPath + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Temp file should not exist after save")
	}
}

func TestSaveRun_InvalidArguments(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveRun("", createTestRecord("x")); err == nil {
		t.Error("Expected error for empty runID")
	}
	if err := store.SaveRun("run", nil); err == nil {
		t.Error("Expected error for nil record")
	}
}

func TestSaveRun_Overwrite(t *testing.T) {
	store, _ := setupTestStore(t)

	first := createTestRecord("run")
	first.FinalValue = 100
	second := createTestRecord("run")
	second.FinalValue = 160

	if err := store.SaveRun("run", first); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := store.SaveRun("run", second); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := store.LoadRun("run")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.FinalValue != 160 {
		t.Errorf("Expected FinalValue=160, got %d", loaded.FinalValue)
	}
}

func TestLoadRun(t *testing.T) {
	store, _ := setupTestStore(t)
	original := createTestRecord("run-load")

	if err := store.SaveRun("run-load", original); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	loaded, err := store.LoadRun("run-load")
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}

	if loaded.RunID != original.RunID {
		t.Errorf("RunID mismatch: expected %s, got %s", original.RunID, loaded.RunID)
	}
	if loaded.FinalValue != original.FinalValue || loaded.FinalWeight != original.FinalWeight {
		t.Errorf("Result mismatch: expected %d/%d, got %d/%d",
			original.FinalValue, original.FinalWeight, loaded.FinalValue, loaded.FinalWeight)
	}
	if len(loaded.SelectedIDs) != 2 || loaded.SelectedIDs[0] != 1 || loaded.SelectedIDs[1] != 2 {
		t.Errorf("SelectedIDs mismatch: got %v", loaded.SelectedIDs)
	}
	if loaded.Config.CoolingRate != original.Config.CoolingRate {
		t.Errorf("Config.CoolingRate mismatch: expected %v, got %v", original.Config.CoolingRate, loaded.Config.CoolingRate)
	}
	if !loaded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp mismatch: expected %v, got %v", original.Timestamp, loaded.Timestamp)
	}
}

func TestLoadRun_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadRun("nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %T: %v", err, err)
	}

	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.RunID != "nonexistent" {
		t.Errorf("Expected NotFoundError carrying the run ID, got %v", err)
	}
}

func TestListRuns_Empty(t *testing.T) {
	store, _ := setupTestStore(t)

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected empty list, got %d runs", len(infos))
	}
}

func TestListRuns_SkipsInvalidEntries(t *testing.T) {
	store, tempDir := setupTestStore(t)

	if err := store.SaveRun("valid", createTestRecord("valid")); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	// Directory without run.json
	if err := os.MkdirAll(filepath.Join(tempDir, "runs", "empty"), 0755); err != nil {
		t.Fatal(err)
	}
	// Corrupted run.json
	corrupt := filepath.Join(tempDir, "runs", "corrupt")
	if err := os.MkdirAll(corrupt, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(corrupt, "run.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	// Plain file in runs directory
	if err := os.WriteFile(filepath.Join(tempDir, "runs", "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 1 || infos[0].RunID != "valid" {
		t.Errorf("Expected only the valid run, got %+v", infos)
	}
}

func TestDeleteRun(t *testing.T) {
	store, tempDir := setupTestStore(t)

	if err := store.SaveRun("gone", createTestRecord("gone")); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	tw, err := NewTraceWriter(tempDir, "gone", false)
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}
	tw.Close()

	if err := store.DeleteRun("gone"); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := os.Stat(store.RunDir("gone")); !os.IsNotExist(err) {
		t.Error("Run directory should be removed")
	}
	if err := store.DeleteRun("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
	if err := store.DeleteRun(""); err == nil {
		t.Error("Expected error for empty runID")
	}
}

func TestConcurrentSave(t *testing.T) {
	store, _ := setupTestStore(t)

	const numRuns = 10
	done := make(chan bool, numRuns)

	for i := 0; i < numRuns; i++ {
		go func(idx int) {
			runID := fmt.Sprintf("concurrent-%d", idx)
			if err := store.SaveRun(runID, createTestRecord(runID)); err != nil {
				t.Errorf("Concurrent save failed for %s: %v", runID, err)
			}
			done <- true
		}(i)
	}
	for i := 0; i < numRuns; i++ {
		<-done
	}

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != numRuns {
		t.Errorf("Expected %d runs, got %d", numRuns, len(infos))
	}
}
