package runner

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a submitted run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// rank orders statuses along the lifecycle. Terminal states share a rank.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusRunning:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	}
	return -1
}

// Before reports whether s precedes other in the lifecycle partial order.
func (s Status) Before(other Status) bool {
	return s.rank() < other.rank()
}

// RunRequest describes what to execute. It is constructed by the caller and
// consumed once by Submit.
type RunRequest struct {
	// ScriptPath is the simulation input script, absolute or relative to
	// the job's working directory.
	ScriptPath string `json:"scriptPath" validate:"required"`
	// WorkDir is the working directory for the run. When empty a fresh
	// directory is created under the configured workdir root.
	WorkDir  string            `json:"workDir,omitempty"`
	Nodes    int               `json:"nodes,omitempty" validate:"gte=0"`
	Walltime string            `json:"walltime,omitempty"`
	Queue    string            `json:"queue,omitempty"`
	Env      map[string]string `json:"env,omitempty"`
	// Artifacts are the output files the run is expected to produce,
	// relative to the working directory. Defaults to the LAMMPS log.
	Artifacts []string `json:"artifacts,omitempty"`
}

// Job is one submitted run tracked through its lifecycle. It is created by
// Submit and mutated only by the poller.
type Job struct {
	ID          uuid.UUID
	Request     RunRequest
	WorkDir     string
	BackendID   string
	SubmittedAt time.Time
	Status      Status
	ExitCode    *int
}

// InputPath resolves the request's script path against the working directory.
func (j *Job) InputPath() string {
	if filepath.IsAbs(j.Request.ScriptPath) {
		return j.Request.ScriptPath
	}
	return filepath.Join(j.WorkDir, j.Request.ScriptPath)
}

// advance moves the job's status forward. Backward transitions reported by
// the backend are ignored so that the observed sequence stays monotonic.
func (j *Job) advance(to Status) bool {
	if j.Status.Terminal() || !j.Status.Before(to) {
		return false
	}
	j.Status = to
	return true
}

// RunResult is returned to the caller exactly once per job.
type RunResult struct {
	JobID       uuid.UUID `json:"jobId"`
	Status      Status    `json:"status"`
	ExitCode    *int      `json:"exitCode,omitempty"`
	Artifacts   []string  `json:"artifacts,omitempty"`
	Diagnostics string    `json:"diagnostics,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// StatusReport is what a backend returns on a status query. ExitCode is set
// only once the run reached a terminal state.
type StatusReport struct {
	Status   Status
	ExitCode *int
}

// Backend is the execution environment running the simulation: a local
// subprocess or an HPC scheduler.
type Backend interface {
	Name() string

	// Submit hands the job to the execution environment and returns the
	// backend's identifier for it. Implementations write their submission
	// artifact into the job's working directory before dispatching.
	Submit(ctx context.Context, job *Job) (string, error)

	// Status queries the current state of the job.
	Status(ctx context.Context, job *Job) (StatusReport, error)

	// Cancel asks the execution environment to stop the job.
	Cancel(ctx context.Context, job *Job) error

	// Fetch retrieves the produced files into the job's working directory.
	// It is a no-op for backends sharing a filesystem with the caller.
	Fetch(ctx context.Context, job *Job) error
}
