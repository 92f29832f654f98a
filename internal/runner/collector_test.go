package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectJob(t *testing.T, status Status, exit *int) *Job {
	t.Helper()
	return &Job{
		ID:       uuid.New(),
		Request:  RunRequest{ScriptPath: "input.lammps"},
		WorkDir:  t.TempDir(),
		Status:   status,
		ExitCode: exit,
	}
}

func writeArtifact(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCollectRequiresTerminalJob(t *testing.T) {
	r := New(&fakeBackend{}, testOptions(t.TempDir()))
	job := collectJob(t, StatusRunning, nil)

	_, err := r.Collect(context.Background(), job)

	var resultErr *ResultError
	require.ErrorAs(t, err, &resultErr)
	assert.Equal(t, StatusRunning, resultErr.LastStatus)
}

func TestCollectCompletedRun(t *testing.T) {
	r := New(&fakeBackend{}, testOptions(t.TempDir()))
	job := collectJob(t, StatusCompleted, intPtr(0))
	logPath := writeArtifact(t, job.WorkDir, LogFile, "LAMMPS (2 Aug 2023)\nTotal wall time: 0:00:03\n")
	dumpPath := writeArtifact(t, job.WorkDir, "dump.relax", "ITEM: TIMESTEP\n0\n")

	result, err := r.Collect(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	require.NotNil(t, result.ExitCode)
	assert.Equal(t, 0, *result.ExitCode)
	assert.Contains(t, result.Artifacts, logPath)
	assert.Contains(t, result.Artifacts, dumpPath)
	assert.Empty(t, result.Error)
}

func TestCollectExplicitArtifacts(t *testing.T) {
	r := New(&fakeBackend{}, testOptions(t.TempDir()))
	job := collectJob(t, StatusCompleted, intPtr(0))
	job.Request.Artifacts = []string{"energies.dat", LogFile}
	writeArtifact(t, job.WorkDir, LogFile, "run done\n")
	datPath := writeArtifact(t, job.WorkDir, "energies.dat", "0 -3.21\n")

	result, err := r.Collect(context.Background(), job)
	require.NoError(t, err)
	assert.Contains(t, result.Artifacts, datPath)
}

func TestCollectMissingArtifactFailsCompletedRun(t *testing.T) {
	r := New(&fakeBackend{}, testOptions(t.TempDir()))
	job := collectJob(t, StatusCompleted, intPtr(0))
	// the process exited cleanly but never wrote its log

	result, err := r.Collect(context.Background(), job)

	var resultErr *ResultError
	require.ErrorAs(t, err, &resultErr)
	assert.Equal(t, StatusCompleted, resultErr.LastStatus)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Error, LogFile)
}

func TestCollectFailedRunDiagnostics(t *testing.T) {
	r := New(&fakeBackend{}, testOptions(t.TempDir()))
	job := collectJob(t, StatusFailed, intPtr(1))
	writeArtifact(t, job.WorkDir, OutputFile, "ERROR: Unknown command: fixx nve (src/input.cpp:232)\n")

	result, err := r.Collect(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "run failed with exit code 1", result.Error)
	assert.Contains(t, result.Diagnostics, "Unknown command")
}

func TestCollectDiagnosticsTailBounded(t *testing.T) {
	r := New(&fakeBackend{}, testOptions(t.TempDir()))
	job := collectJob(t, StatusFailed, intPtr(1))
	head := strings.Repeat("x", 5000)
	writeArtifact(t, job.WorkDir, OutputFile, head+"TAIL MARKER")

	result, err := r.Collect(context.Background(), job)
	require.NoError(t, err)

	assert.Len(t, result.Diagnostics, 1000)
	assert.True(t, strings.HasSuffix(result.Diagnostics, "TAIL MARKER"))
}

func TestCollectFetchFailure(t *testing.T) {
	r := New(&fakeBackend{fetchErr: errors.New("scp: connection refused")}, testOptions(t.TempDir()))
	job := collectJob(t, StatusCompleted, intPtr(0))

	result, err := r.Collect(context.Background(), job)

	var resultErr *ResultError
	require.ErrorAs(t, err, &resultErr)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Error, "fetching artifacts")
}
