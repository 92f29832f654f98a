package runner

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/avriza/simrunner/internal/config"
)

const (
	defaultPollInterval         = 5 * time.Second
	defaultPollJitter           = 500 * time.Millisecond
	defaultMaxTransientFailures = 3
	defaultWaitTimeout          = time.Hour
)

// Options are the tunables of the run lifecycle. Zero fields fall back to
// the package defaults.
type Options struct {
	WorkdirRoot          string
	PollInterval         time.Duration
	PollJitter           time.Duration
	MaxTransientFailures int
	DefaultWaitTimeout   time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WorkdirRoot:          cfg.Runner.WorkdirRoot,
		PollInterval:         cfg.Runner.PollInterval,
		PollJitter:           cfg.Runner.PollJitter,
		MaxTransientFailures: cfg.Runner.MaxTransientFailures,
		DefaultWaitTimeout:   cfg.Runner.DefaultWaitTimeout,
	}
}

// Runner drives the submit/poll/collect lifecycle against a single backend.
// It holds no per-job state: each Job is an independent unit and distinct
// jobs may be driven concurrently by independent callers.
type Runner struct {
	backend  Backend
	opts     Options
	validate *validator.Validate
}

func New(backend Backend, opts Options) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.PollJitter <= 0 {
		opts.PollJitter = defaultPollJitter
	}
	if opts.MaxTransientFailures <= 0 {
		opts.MaxTransientFailures = defaultMaxTransientFailures
	}
	if opts.DefaultWaitTimeout <= 0 {
		opts.DefaultWaitTimeout = defaultWaitTimeout
	}
	return &Runner{
		backend:  backend,
		opts:     opts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (r *Runner) Backend() Backend {
	return r.backend
}

// Cancel asks the backend to stop the job. Cancellation is best effort: a
// backend refusing to cancel, or a job already in a terminal state, is not
// an error.
func (r *Runner) Cancel(ctx context.Context, job *Job) error {
	if job.Status.Terminal() {
		return nil
	}
	if err := r.backend.Cancel(ctx, job); err != nil {
		zap.S().Named("runner").Warnf("best-effort cancel of job %s failed: %v", job.ID, err)
	}
	return nil
}
