package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SubmitDisplacements submits one run per disp-* subdirectory of dir, each
// with its own working directory. Used for phonon displacement batches where
// every displaced structure carries its own input script. Submission stops
// at the first rejected displacement; jobs already accepted are returned so
// the caller can track or cancel them.
func (r *Runner) SubmitDisplacements(ctx context.Context, dir string, base RunRequest) ([]*Job, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "disp-*"))
	if err != nil {
		return nil, NewSubmissionError(StatusFailed, err)
	}
	sort.Strings(matches)

	jobs := make([]*Job, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || !info.IsDir() {
			continue
		}

		req := base
		req.WorkDir = match
		job, err := r.Submit(ctx, req)
		if err != nil {
			return jobs, fmt.Errorf("displacement %s: %w", filepath.Base(match), err)
		}
		jobs = append(jobs, job)
	}

	if len(jobs) == 0 {
		return nil, NewSubmissionError(StatusFailed, fmt.Errorf("no disp-* directories found under %s", dir))
	}
	return jobs, nil
}
