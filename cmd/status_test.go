package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cwbudde/knapsackanneal/internal/server"
)

func TestListJobs_Empty(t *testing.T) {
	srv := httptest.NewServer(server.NewServer("", server.Options{}).Handler())
	defer srv.Close()

	var out bytes.Buffer
	if err := listJobs(&out, srv.URL+"/api/v1/jobs"); err != nil {
		t.Fatalf("listJobs failed: %v", err)
	}
	if !strings.Contains(out.String(), "No jobs found") {
		t.Errorf("Unexpected output: %q", out.String())
	}
}

func TestGetJobStatus_NotFound(t *testing.T) {
	srv := httptest.NewServer(server.NewServer("", server.Options{}).Handler())
	defer srv.Close()

	var out bytes.Buffer
	err := getJobStatus(&out, srv.URL+"/api/v1/jobs/nope/status", "nope")
	if err == nil || !strings.Contains(err.Error(), "job not found") {
		t.Errorf("Expected job not found error, got %v", err)
	}
}

func TestGetJobStatus_Completed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs/j1/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "j1",
			"state": "completed",
			"config": {"itemsPath": "data.csv", "initialTemperature": 500, "coolingRate": 0.99995, "iterations": 1000, "seed": 1},
			"iteration": 1000,
			"progress": 1,
			"temperature": 475.6,
			"value": 160,
			"weight": 30,
			"capacity": 30,
			"items": 3,
			"initialValue": 60,
			"accepted": 812,
			"elapsed": 0.25,
			"ips": 4000,
			"startTime": "2026-01-02T03:04:05Z"
		}`))
	})
	mux.HandleFunc("/api/v1/jobs/j1/items", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "j1", "selectedIds": [1, 2], "value": 160, "weight": 30, "capacity": 30}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var out bytes.Buffer
	if err := getJobStatus(&out, srv.URL+"/api/v1/jobs/j1/status", "j1"); err != nil {
		t.Fatalf("getJobStatus failed: %v", err)
	}
	if err := getJobItems(&out, srv.URL+"/api/v1/jobs/j1/items"); err != nil {
		t.Fatalf("getJobItems failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"State: completed",
		"Solver: anneal",
		"Iteration: 1000 (100.0%)",
		"Value: 160 (initial 60)",
		"Weight: 30 / 30",
		"Throughput: 4000 iterations/sec",
		"Selected Items (2):",
		"1,2,",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Output missing %q:\n%s", want, text)
		}
	}
}

func TestListJobs_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	var out bytes.Buffer
	if err := listJobs(&out, srv.URL); err == nil {
		t.Error("Expected error for server failure")
	}
}
