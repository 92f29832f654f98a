package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/avriza/simrunner/internal/runner/fileio"
)

const (
	// LogFile is the log LAMMPS writes into the working directory.
	LogFile = "log.lammps"
	// OutputFile captures the run's combined stdout/stderr.
	OutputFile = "run.out"
	// diagnosticsTail bounds the captured output attached to a result.
	diagnosticsTail = 1000
)

// artifactPatterns are the file classes a run typically produces, collected
// opportunistically on top of the explicitly expected artifacts.
var artifactPatterns = []string{"*.log", "*.dump", "*.data", "log.*", "dump.*"}

// Collect reads the expected output artifacts of a terminal job and builds
// its RunResult. Completion of the external process does not guarantee valid
// output: a completed job missing an expected artifact yields a failed
// result together with a ResultError.
func (r *Runner) Collect(ctx context.Context, job *Job) (RunResult, error) {
	if !job.Status.Terminal() {
		return RunResult{}, NewResultError(job.Status, errors.New("job has not reached a terminal state"))
	}

	result := RunResult{
		JobID:    job.ID,
		Status:   job.Status,
		ExitCode: job.ExitCode,
	}

	if job.Status == StatusFailed {
		result.Diagnostics = r.readDiagnostics(job)
		if job.ExitCode != nil {
			result.Error = fmt.Sprintf("run failed with exit code %d", *job.ExitCode)
		} else {
			result.Error = "run failed before producing an exit code"
		}
		return result, nil
	}

	if err := r.backend.Fetch(ctx, job); err != nil {
		result.Status = StatusFailed
		result.Error = fmt.Sprintf("fetching artifacts: %v", err)
		return result, NewResultError(job.Status, fmt.Errorf("fetching artifacts: %w", err))
	}

	reader := fileio.NewReader()

	expected := job.Request.Artifacts
	if len(expected) == 0 {
		expected = []string{LogFile}
	}

	artifacts := make([]string, 0, len(expected))
	missing := make([]string, 0)
	for _, name := range expected {
		path := filepath.Join(job.WorkDir, name)
		if err := reader.CheckPathExists(path); err != nil {
			missing = append(missing, name)
			continue
		}
		artifacts = append(artifacts, path)
	}

	if len(missing) > 0 {
		result.Status = StatusFailed
		result.Error = fmt.Sprintf("run completed but expected artifacts are missing: %s", strings.Join(missing, ", "))
		result.Diagnostics = r.readDiagnostics(job)
		return result, NewResultError(job.Status, errors.New(result.Error))
	}

	result.Artifacts = collectExtras(job.WorkDir, artifacts)
	return result, nil
}

// readDiagnostics returns the tail of the run's captured output, if any.
func (r *Runner) readDiagnostics(job *Job) string {
	reader := fileio.NewReader()
	for _, name := range []string{OutputFile, LogFile} {
		data, err := reader.ReadFile(filepath.Join(job.WorkDir, name))
		if err != nil {
			continue
		}
		out := string(data)
		if len(out) > diagnosticsTail {
			out = out[len(out)-diagnosticsTail:]
		}
		return out
	}
	return ""
}

// collectExtras globs the usual output file classes and merges them with the
// expected artifacts, deduplicated and sorted.
func collectExtras(workdir string, artifacts []string) []string {
	seen := make(map[string]struct{}, len(artifacts))
	for _, a := range artifacts {
		seen[a] = struct{}{}
	}
	for _, pattern := range artifactPatterns {
		matches, err := filepath.Glob(filepath.Join(workdir, pattern))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if _, ok := seen[m]; !ok {
				seen[m] = struct{}{}
				artifacts = append(artifacts, m)
			}
		}
	}
	sort.Strings(artifacts)
	return artifacts
}
