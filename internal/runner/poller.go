package runner

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"
)

// Wait polls the backend at the configured interval until the job reaches a
// terminal state or the timeout elapses. A timeout of zero uses the
// configured default. On timeout the job is left in its last observed
// non-terminal state and a TimeoutError is returned: the caller decides
// whether to keep waiting or abandon.
//
// Transient status-query failures are absorbed up to the configured bound;
// once the bound is reached a PollingError is returned. notify, when not
// nil, is invoked after every observed status transition.
func (r *Runner) Wait(ctx context.Context, job *Job, timeout time.Duration, notify func(*Job)) error {
	if job.Status.Terminal() {
		return nil
	}
	if timeout <= 0 {
		timeout = r.opts.DefaultWaitTimeout
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := jitterbug.New(r.opts.PollInterval, &jitterbug.Norm{Stdev: r.opts.PollJitter})
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return NewTimeoutError(job.Status, timeout)
		case <-ticker.C:
		}

		report, err := r.backend.Status(ctx, job)
		if err != nil {
			failures++
			zap.S().Named("poller").Debugf("status query for job %s failed (%d/%d): %v",
				job.ID, failures, r.opts.MaxTransientFailures, err)
			if failures >= r.opts.MaxTransientFailures {
				return NewPollingError(job.Status, failures, err)
			}
			continue
		}
		failures = 0

		if job.advance(report.Status) {
			if report.ExitCode != nil {
				job.ExitCode = report.ExitCode
			}
			zap.S().Named("poller").Infof("job %s is %s", job.ID, job.Status)
			if notify != nil {
				notify(job)
			}
		}
		if job.Status.Terminal() {
			return nil
		}
	}
}

// Refresh performs a single status query and advances the job if the backend
// reports progress.
func (r *Runner) Refresh(ctx context.Context, job *Job) error {
	if job.Status.Terminal() {
		return nil
	}
	report, err := r.backend.Status(ctx, job)
	if err != nil {
		return err
	}
	if job.advance(report.Status) && report.ExitCode != nil {
		job.ExitCode = report.ExitCode
	}
	return nil
}
