package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Submit validates the request, constructs the working directory and hands
// the job to the backend. The returned job is in pending state; on backend
// rejection the job is returned in failed state together with a
// SubmissionError.
func (r *Runner) Submit(ctx context.Context, req RunRequest) (*Job, error) {
	if err := r.validate.Struct(req); err != nil {
		return nil, NewSubmissionError(StatusFailed, err)
	}

	job := &Job{
		ID:          uuid.New(),
		Request:     req,
		SubmittedAt: time.Now().UTC(),
		Status:      StatusPending,
	}

	job.WorkDir = req.WorkDir
	if job.WorkDir == "" {
		job.WorkDir = filepath.Join(r.opts.WorkdirRoot, job.ID.String())
	}
	if err := os.MkdirAll(job.WorkDir, 0755); err != nil {
		job.Status = StatusFailed
		return job, NewSubmissionError(job.Status, fmt.Errorf("creating working directory: %w", err))
	}

	if _, err := os.Stat(job.InputPath()); err != nil {
		job.Status = StatusFailed
		return job, NewSubmissionError(job.Status, fmt.Errorf("input script %s: %w", job.InputPath(), err))
	}

	backendID, err := r.backend.Submit(ctx, job)
	if err != nil {
		job.Status = StatusFailed
		return job, NewSubmissionError(job.Status, err)
	}
	job.BackendID = backendID

	zap.S().Named("runner").Infof("job %s submitted to %s backend as %s", job.ID, r.backend.Name(), backendID)
	return job, nil
}
