package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avriza/simrunner/internal/runner"
	"github.com/avriza/simrunner/internal/store"
	"github.com/avriza/simrunner/internal/store/model"
	"github.com/avriza/simrunner/pkg/metrics"
)

// RunService ties the run archive to the runner: submissions are persisted,
// a watcher goroutine tracks every accepted run to its terminal state and
// stores the collected result.
type RunService struct {
	store       store.Store
	runner      *runner.Runner
	waitTimeout time.Duration
}

func NewRunService(store store.Store, r *runner.Runner, waitTimeout time.Duration) *RunService {
	return &RunService{store: store, runner: r, waitTimeout: waitTimeout}
}

func (s *RunService) CreateRun(ctx context.Context, req runner.RunRequest) (*model.Run, error) {
	job, err := s.runner.Submit(ctx, req)
	if err != nil {
		// rejected submissions are archived too, carrying the rejection
		if job != nil {
			run := model.NewRunFromJob(s.backendName(), job)
			run.Error = err.Error()
			if _, serr := s.store.Run().Create(ctx, run); serr != nil {
				zap.S().Named("service").Errorf("archiving rejected run %s: %v", job.ID, serr)
			}
		}
		return nil, err
	}

	run, err := s.store.Run().Create(ctx, model.NewRunFromJob(s.backendName(), job))
	if err != nil {
		return nil, err
	}
	metrics.IncreaseRunsSubmittedTotalMetric(s.backendName())

	go s.watch(job)
	return run, nil
}

// watch drives one run to its terminal state and persists every observed
// transition plus the collected result.
func (s *RunService) watch(job *runner.Job) {
	ctx := context.Background()

	err := s.runner.Wait(ctx, job, s.waitTimeout, func(j *runner.Job) {
		if _, uerr := s.store.Run().UpdateStatus(ctx, j.ID, string(j.Status), j.ExitCode); uerr != nil {
			zap.S().Named("service").Errorf("persisting status of run %s: %v", j.ID, uerr)
		}
	})
	if err != nil {
		zap.S().Named("service").Warnf("stopped watching run %s: %v", job.ID, err)
		return
	}

	result, rerr := s.runner.Collect(ctx, job)
	if rerr != nil {
		zap.S().Named("service").Warnf("collecting run %s: %v", job.ID, rerr)
	}
	if _, serr := s.store.Run().SetResult(ctx, job.ID, string(result.Status), result.Artifacts, result.Diagnostics, result.Error); serr != nil {
		zap.S().Named("service").Errorf("persisting result of run %s: %v", job.ID, serr)
		return
	}
	metrics.ObserveRunDuration(s.backendName(), string(result.Status), time.Since(job.SubmittedAt))
}

func (s *RunService) GetRun(ctx context.Context, id uuid.UUID) (*model.Run, error) {
	run, err := s.store.Run().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrRunNotFound(id)
		}
		return nil, err
	}

	// refresh non-terminal runs with a single status query; a failed
	// query leaves the archived status in place
	if !runner.Status(run.Status).Terminal() && run.BackendID != "" {
		job := run.ToJob()
		if rerr := s.runner.Refresh(ctx, job); rerr == nil && string(job.Status) != run.Status {
			if updated, uerr := s.store.Run().UpdateStatus(ctx, run.ID, string(job.Status), job.ExitCode); uerr == nil {
				run = updated
			}
		}
	}
	return run, nil
}

func (s *RunService) ListRuns(ctx context.Context, status string) ([]model.Run, error) {
	filter := store.NewRunQueryFilter()
	if status != "" {
		filter = filter.ByStatus(status)
	}
	return s.store.Run().List(ctx, filter)
}

// CancelRun asks the backend to stop the run. Cancellation is best effort:
// a run already in a terminal state is returned unchanged.
func (s *RunService) CancelRun(ctx context.Context, id uuid.UUID) (*model.Run, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if runner.Status(run.Status).Terminal() {
		return run, nil
	}

	if err := s.runner.Cancel(ctx, run.ToJob()); err != nil {
		return nil, err
	}
	return run, nil
}

// WaitRun blocks until the run reaches a terminal state or the timeout
// elapses, persisting every observed transition.
func (s *RunService) WaitRun(ctx context.Context, id uuid.UUID, timeout time.Duration) (*model.Run, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if runner.Status(run.Status).Terminal() {
		return run, nil
	}

	job := run.ToJob()
	werr := s.runner.Wait(ctx, job, timeout, func(j *runner.Job) {
		if _, uerr := s.store.Run().UpdateStatus(ctx, j.ID, string(j.Status), j.ExitCode); uerr != nil {
			zap.S().Named("service").Errorf("persisting status of run %s: %v", j.ID, uerr)
		}
	})

	run, err = s.store.Run().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return run, werr
}

// GetResult returns the run's result, collecting artifacts on first access.
func (s *RunService) GetResult(ctx context.Context, id uuid.UUID) (*runner.RunResult, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if !runner.Status(run.Status).Terminal() {
		return nil, NewErrRunNotTerminal(id, run.Status)
	}

	if run.Collected {
		result := resultFromRun(run)
		return &result, nil
	}

	result, rerr := s.runner.Collect(ctx, run.ToJob())
	if rerr != nil {
		zap.S().Named("service").Warnf("collecting run %s: %v", id, rerr)
	}
	if _, serr := s.store.Run().SetResult(ctx, id, string(result.Status), result.Artifacts, result.Diagnostics, result.Error); serr != nil {
		return nil, serr
	}
	return &result, nil
}

func (s *RunService) Statistics(ctx context.Context) (map[string]int64, error) {
	return s.store.Run().CountByStatus(ctx)
}

func (s *RunService) backendName() string {
	return s.runner.Backend().Name()
}

func resultFromRun(run *model.Run) runner.RunResult {
	return runner.RunResult{
		JobID:       run.ID,
		Status:      runner.Status(run.Status),
		ExitCode:    run.ExitCode,
		Artifacts:   run.Artifacts,
		Diagnostics: run.Diagnostics,
		Error:       run.Error,
	}
}
