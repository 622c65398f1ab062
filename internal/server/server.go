package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwbudde/knapsackanneal/internal/anneal"
	"github.com/cwbudde/knapsackanneal/internal/metrics"
	"github.com/cwbudde/knapsackanneal/internal/store"
)

// Job defaults applied to omitted fields of a create request.
const (
	defaultInitialTemperature = 500.0
	defaultCoolingRate        = 0.99995
	defaultIterations         = 100000
	defaultSolver             = "anneal"
)

// Options wires the server's collaborators. All fields are optional.
type Options struct {
	// Store receives a run record and trace per completed job.
	Store *store.FSStore

	// Log receives the two-line result entry of each completed job.
	Log *store.ResultLog

	// Metrics records job and run metrics. Defaults to a no-op collector.
	Metrics metrics.Collector

	// MetricsHandler serves /metrics. Defaults to promhttp.Handler().
	MetricsHandler http.Handler

	// MayflyIterations and MayflyPopulation size jobs with solver "mayfly".
	MayflyIterations int
	MayflyPopulation int
}

// Server represents the HTTP server
type Server struct {
	jobManager *JobManager
	addr       string
	server     *http.Server
	opts       Options

	// Jobs run under baseCtx so Shutdown cancels them.
	baseCtx    context.Context
	cancelJobs context.CancelFunc
}

// NewServer creates a new HTTP server
func NewServer(addr string, opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	if opts.MetricsHandler == nil {
		opts.MetricsHandler = promhttp.Handler()
	}
	if opts.MayflyIterations <= 0 {
		opts.MayflyIterations = 200
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		jobManager: NewJobManager(),
		addr:       addr,
		opts:       opts,
		baseCtx:    ctx,
		cancelJobs: cancel,
	}
}

// Handler returns the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)
	mux.Handle("/metrics", s.opts.MetricsHandler)
	mux.HandleFunc("/healthz", s.handleHealth)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown cancels running jobs and gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server", "running_jobs", len(s.jobManager.GetRunningJobs()))
	s.cancelJobs()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"runningJobs": len(s.jobManager.GetRunningJobs()),
	})
}

// handleJobs handles /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	jobID := parts[0]
	sub := ""
	if len(parts) > 1 {
		sub = parts[1]
	}

	switch sub {
	case "", "status":
		s.handleGetJobStatus(w, r, jobID)
	case "items":
		s.handleGetJobItems(w, r, jobID)
	case "stream":
		s.handleJobStream(w, r, jobID)
	case "cancel":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleCancelJob(w, r, jobID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// jobRequest is the create-job body. Iterations is decoded separately so an
// explicit 0 is kept while an absent field gets the default.
type jobRequest struct {
	JobConfig
	Iterations *int `json:"iterations"`
}

func (req jobRequest) jobConfig() JobConfig {
	config := req.JobConfig
	config.Iterations = defaultIterations
	if req.Iterations != nil {
		config.Iterations = *req.Iterations
	}
	return config
}

// validateJobConfig fills defaults and rejects unusable configurations.
func validateJobConfig(config *JobConfig) error {
	if config.ItemsPath == "" {
		return errors.New("itemsPath is required")
	}
	if config.InitialTemperature == 0 {
		config.InitialTemperature = defaultInitialTemperature
	}
	if config.CoolingRate == 0 {
		config.CoolingRate = defaultCoolingRate
	}
	if config.Solver == "" {
		config.Solver = defaultSolver
	}
	if config.Solver != "anneal" && config.Solver != "mayfly" {
		return fmt.Errorf("unknown solver %q", config.Solver)
	}
	if config.Capacity < 0 {
		return errors.New("capacity cannot be negative")
	}

	params := anneal.Params{
		InitialTemperature: config.InitialTemperature,
		CoolingRate:        config.CoolingRate,
		Iterations:         config.Iterations,
	}
	return params.Validate()
}

// handleCreateJob handles POST /api/v1/jobs
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	config := req.jobConfig()

	if err := validateJobConfig(&config); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.jobManager.CreateJob(config)

	ctx, cancel := context.WithCancel(s.baseCtx)
	s.jobManager.setCancel(job.ID, cancel)

	deps := workerDeps{
		store:            s.opts.Store,
		log:              s.opts.Log,
		metrics:          s.opts.Metrics,
		mayflyIterations: s.opts.MayflyIterations,
		mayflyPopulation: s.opts.MayflyPopulation,
	}
	go func() {
		defer cancel()
		runJob(ctx, s.jobManager, deps, job.ID)
	}()

	writeJSON(w, http.StatusCreated, job)
}

// handleListJobs handles GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	progress := 0.0
	if job.Config.Iterations > 0 {
		progress = float64(job.Iteration) / float64(job.Config.Iterations)
	}

	response := map[string]any{
		"id":           job.ID,
		"state":        job.State,
		"config":       job.Config,
		"iteration":    job.Iteration,
		"progress":     progress,
		"temperature":  job.Temperature,
		"value":        job.Value,
		"weight":       job.Weight,
		"capacity":     job.Capacity,
		"items":        job.Items,
		"initialValue": job.InitialValue,
		"accepted":     job.Accepted,
		"elapsed":      jobElapsed(job).Seconds(),
		"ips":          iterationsPerSecond(job),
		"startTime":    job.StartTime,
		"endTime":      job.EndTime,
		"error":        job.Error,
	}

	writeJSON(w, http.StatusOK, response)
}

// handleGetJobItems handles GET /api/v1/jobs/:id/items
func (s *Server) handleGetJobItems(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if job.State != StateCompleted {
		http.Error(w, "No results yet", http.StatusNotFound)
		return
	}

	ids := job.SelectedIDs
	if ids == nil {
		ids = []int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          job.ID,
		"selectedIds": ids,
		"value":       job.Value,
		"weight":      job.Weight,
		"capacity":    job.Capacity,
	})
}

// handleCancelJob handles POST /api/v1/jobs/:id/cancel
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	err := s.jobManager.CancelJob(jobID)
	switch {
	case errors.Is(err, ErrJobNotFound):
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	case errors.Is(err, ErrJobFinished):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	job, _ := s.jobManager.GetJob(jobID)
	writeJSON(w, http.StatusAccepted, job)
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
