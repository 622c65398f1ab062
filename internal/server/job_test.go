package server

import (
	"errors"
	"testing"
	"time"
)

func TestJobManager_CreateJob(t *testing.T) {
	jm := NewJobManager()

	config := JobConfig{
		ItemsPath:          "data.csv",
		Solver:             "anneal",
		InitialTemperature: 500,
		CoolingRate:        0.99995,
		Iterations:         1000,
		Seed:               42,
	}

	job := jm.CreateJob(config)

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}

	if job.State != StatePending {
		t.Errorf("Initial state should be pending, got %s", job.State)
	}

	if job.Config.ItemsPath != "data.csv" {
		t.Errorf("Config not set correctly")
	}
}

func TestJobManager_GetJob(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(JobConfig{ItemsPath: "data.csv"})

	retrieved, exists := jm.GetJob(job.ID)
	if !exists {
		t.Fatal("Job should exist")
	}

	if retrieved.ID != job.ID {
		t.Error("Retrieved wrong job")
	}

	_, exists = jm.GetJob("nonexistent")
	if exists {
		t.Error("Should not find nonexistent job")
	}
}

func TestJobManager_GetJobReturnsSnapshot(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobConfig{ItemsPath: "data.csv"})

	snap, _ := jm.GetJob(job.ID)
	snap.Value = 999
	snap.State = StateFailed

	again, _ := jm.GetJob(job.ID)
	if again.Value != 0 || again.State != StatePending {
		t.Errorf("Mutating a snapshot must not change the job, got %+v", again)
	}
}

func TestJobManager_ListJobs(t *testing.T) {
	jm := NewJobManager()

	if len(jm.ListJobs()) != 0 {
		t.Error("Should start with no jobs")
	}

	first := jm.CreateJob(JobConfig{ItemsPath: "a.csv"})
	time.Sleep(time.Millisecond)
	jm.CreateJob(JobConfig{ItemsPath: "b.csv"})

	jobs := jm.ListJobs()
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != first.ID {
		t.Error("Jobs should be listed oldest first")
	}
}

func TestJobManager_UpdateJob(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(JobConfig{ItemsPath: "data.csv"})

	err := jm.UpdateJob(job.ID, func(j *Job) {
		j.State = StateRunning
		j.Iteration = 10
		j.Value = 160
	})

	if err != nil {
		t.Errorf("Update should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateRunning {
		t.Error("State should be updated")
	}
	if updated.Iteration != 10 {
		t.Error("Iteration should be updated")
	}
	if updated.Value != 160 {
		t.Error("Value should be updated")
	}

	err = jm.UpdateJob("nonexistent", func(j *Job) {})
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Update of nonexistent job should fail with ErrJobNotFound, got %v", err)
	}
}

func TestJobManager_GetRunningJobs(t *testing.T) {
	jm := NewJobManager()
	a := jm.CreateJob(JobConfig{ItemsPath: "a.csv"})
	jm.CreateJob(JobConfig{ItemsPath: "b.csv"})

	jm.UpdateJob(a.ID, func(j *Job) { j.State = StateRunning })

	running := jm.GetRunningJobs()
	if len(running) != 1 || running[0].ID != a.ID {
		t.Errorf("Expected only job %s running, got %v", a.ID, running)
	}
}

func TestJobManager_CancelJob(t *testing.T) {
	jm := NewJobManager()

	t.Run("pending without worker", func(t *testing.T) {
		job := jm.CreateJob(JobConfig{ItemsPath: "data.csv"})
		if err := jm.CancelJob(job.ID); err != nil {
			t.Fatalf("CancelJob failed: %v", err)
		}
		updated, _ := jm.GetJob(job.ID)
		if updated.State != StateCancelled || updated.EndTime == nil {
			t.Errorf("Expected cancelled job with end time, got %s", updated.State)
		}
	})

	t.Run("worker attached", func(t *testing.T) {
		job := jm.CreateJob(JobConfig{ItemsPath: "data.csv"})
		called := false
		jm.setCancel(job.ID, func() { called = true })
		if err := jm.CancelJob(job.ID); err != nil {
			t.Fatalf("CancelJob failed: %v", err)
		}
		if !called {
			t.Error("Cancel func should be invoked")
		}
	})

	t.Run("finished", func(t *testing.T) {
		job := jm.CreateJob(JobConfig{ItemsPath: "data.csv"})
		jm.UpdateJob(job.ID, func(j *Job) { j.State = StateCompleted })
		if err := jm.CancelJob(job.ID); !errors.Is(err, ErrJobFinished) {
			t.Errorf("Expected ErrJobFinished, got %v", err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if err := jm.CancelJob("nope"); !errors.Is(err, ErrJobNotFound) {
			t.Errorf("Expected ErrJobNotFound, got %v", err)
		}
	})
}

func TestJobManager_ThreadSafety(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(JobConfig{ItemsPath: "data.csv"})

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(iteration int) {
			jm.UpdateJob(job.ID, func(j *Job) {
				j.Iteration = iteration
				time.Sleep(1 * time.Millisecond)
			})
			jm.GetJob(job.ID)
			jm.ListJobs()
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	_, exists := jm.GetJob(job.ID)
	if !exists {
		t.Error("Job should still exist after concurrent updates")
	}
}

func TestJobState_Terminal(t *testing.T) {
	tests := map[JobState]bool{
		StatePending:   false,
		StateRunning:   false,
		StateCompleted: true,
		StateFailed:    true,
		StateCancelled: true,
	}
	for state, want := range tests {
		if got := state.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", state, got, want)
		}
	}
}
