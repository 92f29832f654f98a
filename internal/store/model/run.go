package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/avriza/simrunner/internal/runner"
)

// Run archives one submitted simulation run. The poller is the only writer
// of status transitions; the collector marks the run consumed.
type Run struct {
	ID          uuid.UUID         `gorm:"primaryKey" json:"id"`
	Backend     string            `json:"backend"`
	BackendID   string            `json:"backendId"`
	WorkDir     string            `json:"workDir"`
	Request     runner.RunRequest `gorm:"serializer:json" json:"request"`
	Status      string            `gorm:"index" json:"status"`
	ExitCode    *int              `json:"exitCode,omitempty"`
	Error       string            `json:"error,omitempty"`
	Artifacts   []string          `gorm:"serializer:json" json:"artifacts,omitempty"`
	Diagnostics string            `json:"diagnostics,omitempty"`
	Collected   bool              `json:"collected"`
	SubmittedAt time.Time         `json:"submittedAt"`
	FinishedAt  *time.Time        `json:"finishedAt,omitempty"`
	CreatedAt   time.Time         `json:"-"`
	UpdatedAt   time.Time         `json:"-"`
}

func NewRunFromJob(backend string, job *runner.Job) Run {
	return Run{
		ID:          job.ID,
		Backend:     backend,
		BackendID:   job.BackendID,
		WorkDir:     job.WorkDir,
		Request:     job.Request,
		Status:      string(job.Status),
		ExitCode:    job.ExitCode,
		SubmittedAt: job.SubmittedAt,
	}
}

// ToJob rebuilds the runner's job handle so persisted runs can be polled,
// cancelled or collected across process restarts.
func (r *Run) ToJob() *runner.Job {
	return &runner.Job{
		ID:          r.ID,
		Request:     r.Request,
		WorkDir:     r.WorkDir,
		BackendID:   r.BackendID,
		SubmittedAt: r.SubmittedAt,
		Status:      runner.Status(r.Status),
		ExitCode:    r.ExitCode,
	}
}
