package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend scripts the backend's answers so the lifecycle can be
// exercised without an execution environment.
type fakeBackend struct {
	mu sync.Mutex

	submitErr error
	cancelErr error
	fetchErr  error

	// reports are consumed one per status query; the last one sticks.
	reports []StatusReport
	// statusErrs are consumed before reports kick in.
	statusErrs []error

	submitted []*Job
	cancelled []string
	queries   int
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Submit(ctx context.Context, job *Job) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, job)
	return fmt.Sprintf("fake-%d", len(f.submitted)), nil
}

func (f *fakeBackend) Status(ctx context.Context, job *Job) (StatusReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if len(f.statusErrs) > 0 {
		err := f.statusErrs[0]
		f.statusErrs = f.statusErrs[1:]
		return StatusReport{}, err
	}
	if len(f.reports) == 0 {
		return StatusReport{Status: StatusRunning}, nil
	}
	report := f.reports[0]
	if len(f.reports) > 1 {
		f.reports = f.reports[1:]
	}
	return report, nil
}

func (f *fakeBackend) Cancel(ctx context.Context, job *Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, job.BackendID)
	return f.cancelErr
}

func (f *fakeBackend) Fetch(ctx context.Context, job *Job) error {
	return f.fetchErr
}

func testOptions(root string) Options {
	return Options{
		WorkdirRoot:          root,
		PollInterval:         5 * time.Millisecond,
		PollJitter:           time.Millisecond,
		MaxTransientFailures: 3,
		DefaultWaitTimeout:   time.Second,
	}
}

func writeScript(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "input.lammps")
	require.NoError(t, os.WriteFile(path, []byte("units metal\n"), 0644))
	return path
}

func intPtr(i int) *int { return &i }

func TestSubmitCreatesPendingJob(t *testing.T) {
	backend := &fakeBackend{}
	r := New(backend, testOptions(t.TempDir()))

	dir := t.TempDir()
	writeScript(t, dir)

	job, err := r.Submit(context.Background(), RunRequest{ScriptPath: "input.lammps", WorkDir: dir})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, job.Status)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "fake-1", job.BackendID)
	assert.Equal(t, dir, job.WorkDir)

	// identifiers are unique per submission
	other, err := r.Submit(context.Background(), RunRequest{ScriptPath: "input.lammps", WorkDir: dir})
	require.NoError(t, err)
	assert.NotEqual(t, job.ID, other.ID)
}

func TestSubmitCreatesWorkdirUnderRoot(t *testing.T) {
	backend := &fakeBackend{}
	root := t.TempDir()
	r := New(backend, testOptions(root))

	script := writeScript(t, t.TempDir())

	job, err := r.Submit(context.Background(), RunRequest{ScriptPath: script})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, job.ID.String()), job.WorkDir)
	info, err := os.Stat(job.WorkDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSubmitRejectedByBackend(t *testing.T) {
	backend := &fakeBackend{submitErr: errors.New("malformed resource directive")}
	r := New(backend, testOptions(t.TempDir()))

	dir := t.TempDir()
	writeScript(t, dir)

	job, err := r.Submit(context.Background(), RunRequest{ScriptPath: "input.lammps", WorkDir: dir})
	require.Error(t, err)

	var submissionErr *SubmissionError
	require.ErrorAs(t, err, &submissionErr)
	assert.Equal(t, StatusFailed, submissionErr.LastStatus)
	require.NotNil(t, job)
	assert.Equal(t, StatusFailed, job.Status)
}

func TestSubmitMissingInputScript(t *testing.T) {
	backend := &fakeBackend{}
	r := New(backend, testOptions(t.TempDir()))

	job, err := r.Submit(context.Background(), RunRequest{ScriptPath: "input.lammps", WorkDir: t.TempDir()})

	var submissionErr *SubmissionError
	require.ErrorAs(t, err, &submissionErr)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Empty(t, backend.submitted)
}

func TestSubmitInvalidRequest(t *testing.T) {
	backend := &fakeBackend{}
	r := New(backend, testOptions(t.TempDir()))

	job, err := r.Submit(context.Background(), RunRequest{})

	var submissionErr *SubmissionError
	require.ErrorAs(t, err, &submissionErr)
	assert.Nil(t, job)
}

func TestWaitReachesCompleted(t *testing.T) {
	backend := &fakeBackend{
		reports: []StatusReport{
			{Status: StatusPending},
			{Status: StatusRunning},
			{Status: StatusCompleted, ExitCode: intPtr(0)},
		},
	}
	r := New(backend, testOptions(t.TempDir()))

	dir := t.TempDir()
	writeScript(t, dir)
	job, err := r.Submit(context.Background(), RunRequest{ScriptPath: "input.lammps", WorkDir: dir})
	require.NoError(t, err)

	var observed []Status
	err = r.Wait(context.Background(), job, time.Second, func(j *Job) {
		observed = append(observed, j.Status)
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, job.Status)
	require.NotNil(t, job.ExitCode)
	assert.Equal(t, 0, *job.ExitCode)

	// the observed sequence is non-decreasing in the lifecycle order
	last := StatusPending
	for _, s := range observed {
		assert.False(t, s.Before(last), "observed %v after %v", s, last)
		last = s
	}
	assert.Equal(t, StatusCompleted, last)
}

func TestWaitNeverRegresses(t *testing.T) {
	backend := &fakeBackend{
		reports: []StatusReport{
			{Status: StatusRunning},
			{Status: StatusPending}, // backend regression must be ignored
			{Status: StatusCompleted, ExitCode: intPtr(0)},
		},
	}
	r := New(backend, testOptions(t.TempDir()))

	dir := t.TempDir()
	writeScript(t, dir)
	job, err := r.Submit(context.Background(), RunRequest{ScriptPath: "input.lammps", WorkDir: dir})
	require.NoError(t, err)

	var observed []Status
	err = r.Wait(context.Background(), job, time.Second, func(j *Job) {
		observed = append(observed, j.Status)
	})
	require.NoError(t, err)
	assert.NotContains(t, observed[1:], StatusPending)
}

func TestWaitTimesOutOnStuckBackend(t *testing.T) {
	backend := &fakeBackend{
		reports: []StatusReport{{Status: StatusRunning}},
	}
	opts := testOptions(t.TempDir())
	r := New(backend, opts)

	dir := t.TempDir()
	writeScript(t, dir)
	job, err := r.Submit(context.Background(), RunRequest{ScriptPath: "input.lammps", WorkDir: dir})
	require.NoError(t, err)

	timeout := 50 * time.Millisecond
	start := time.Now()
	err = r.Wait(context.Background(), job, timeout, nil)
	elapsed := time.Since(start)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, StatusRunning, timeoutErr.LastStatus)
	assert.Equal(t, StatusRunning, job.Status)
	// returns within the budget plus one poll interval (plus slack for CI)
	assert.Less(t, elapsed, timeout+opts.PollInterval+100*time.Millisecond)
}

func TestWaitAbsorbsTransientFailuresBelowBound(t *testing.T) {
	backend := &fakeBackend{
		statusErrs: []error{errors.New("flake"), errors.New("flake")},
		reports:    []StatusReport{{Status: StatusCompleted, ExitCode: intPtr(0)}},
	}
	r := New(backend, testOptions(t.TempDir()))

	dir := t.TempDir()
	writeScript(t, dir)
	job, err := r.Submit(context.Background(), RunRequest{ScriptPath: "input.lammps", WorkDir: dir})
	require.NoError(t, err)

	// two consecutive failures are below the bound of three
	require.NoError(t, r.Wait(context.Background(), job, time.Second, nil))
	assert.Equal(t, StatusCompleted, job.Status)
}

func TestWaitEscalatesToPollingError(t *testing.T) {
	backend := &fakeBackend{
		statusErrs: []error{errors.New("down"), errors.New("down"), errors.New("down")},
	}
	r := New(backend, testOptions(t.TempDir()))

	dir := t.TempDir()
	writeScript(t, dir)
	job, err := r.Submit(context.Background(), RunRequest{ScriptPath: "input.lammps", WorkDir: dir})
	require.NoError(t, err)

	err = r.Wait(context.Background(), job, time.Second, nil)

	var pollingErr *PollingError
	require.ErrorAs(t, err, &pollingErr)
	assert.Equal(t, 3, pollingErr.Attempts)
	assert.Equal(t, StatusPending, pollingErr.LastStatus)
}

func TestWaitFailureCountResetsOnSuccess(t *testing.T) {
	backend := &fakeBackend{
		statusErrs: []error{errors.New("flake"), errors.New("flake")},
		reports: []StatusReport{
			{Status: StatusRunning},
			{Status: StatusCompleted, ExitCode: intPtr(0)},
		},
	}
	// interleave: two failures, success, then the backend would need three
	// more in a row to escalate
	r := New(backend, testOptions(t.TempDir()))

	dir := t.TempDir()
	writeScript(t, dir)
	job, err := r.Submit(context.Background(), RunRequest{ScriptPath: "input.lammps", WorkDir: dir})
	require.NoError(t, err)

	require.NoError(t, r.Wait(context.Background(), job, time.Second, nil))
	assert.Equal(t, StatusCompleted, job.Status)
}

func TestCancelIsBestEffort(t *testing.T) {
	backend := &fakeBackend{cancelErr: errors.New("cancellation unsupported")}
	r := New(backend, testOptions(t.TempDir()))

	dir := t.TempDir()
	writeScript(t, dir)
	job, err := r.Submit(context.Background(), RunRequest{ScriptPath: "input.lammps", WorkDir: dir})
	require.NoError(t, err)

	assert.NoError(t, r.Cancel(context.Background(), job))

	// terminal jobs are not cancelled at all
	job.Status = StatusCompleted
	assert.NoError(t, r.Cancel(context.Background(), job))
	assert.Len(t, backend.cancelled, 1)
}

func TestStatusOrder(t *testing.T) {
	assert.True(t, StatusPending.Before(StatusRunning))
	assert.True(t, StatusRunning.Before(StatusCompleted))
	assert.True(t, StatusRunning.Before(StatusFailed))
	assert.False(t, StatusCompleted.Before(StatusFailed))
	assert.False(t, StatusFailed.Before(StatusRunning))
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusRunning.Terminal())
}
