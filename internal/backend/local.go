package backend

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/avriza/simrunner/internal/runner"
	"github.com/avriza/simrunner/internal/runner/fileio"
)

// RunScriptFile is the submission artifact written for local runs.
const RunScriptFile = "job.sh"

// LocalBackend runs the simulation as a subprocess in the job's working
// directory. Process handles live only for the lifetime of this process;
// a restarted caller cannot reattach to a local run.
type LocalBackend struct {
	binary string

	mu    sync.Mutex
	procs map[string]*localProc
}

type localProc struct {
	cmd      *exec.Cmd
	done     chan struct{}
	exitCode int
}

func NewLocal(binary string) *LocalBackend {
	return &LocalBackend{
		binary: binary,
		procs:  make(map[string]*localProc),
	}
}

func (b *LocalBackend) Name() string {
	return "local"
}

func (b *LocalBackend) Submit(ctx context.Context, job *runner.Job) (string, error) {
	input := job.InputPath()

	writer := fileio.NewWriter()
	script := fmt.Sprintf("#!/bin/sh\ncd %s\n%s -in %s\n", job.WorkDir, b.binary, input)
	if err := writer.WriteExecutable(filepath.Join(job.WorkDir, RunScriptFile), []byte(script)); err != nil {
		return "", fmt.Errorf("writing run script: %w", err)
	}

	logFile, err := os.Create(filepath.Join(job.WorkDir, runner.OutputFile))
	if err != nil {
		return "", fmt.Errorf("creating output file: %w", err)
	}

	// The process must outlive the submission call, so it is not bound to ctx.
	cmd := exec.Command(b.binary, "-in", input)
	cmd.Dir = job.WorkDir
	cmd.Env = append(os.Environ(), envList(job.Request.Env)...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return "", fmt.Errorf("starting %s: %w", b.binary, err)
	}

	id := strconv.Itoa(cmd.Process.Pid)
	proc := &localProc{cmd: cmd, done: make(chan struct{})}
	b.mu.Lock()
	b.procs[id] = proc
	b.mu.Unlock()

	go func() {
		err := cmd.Wait()
		if cerr := logFile.Close(); cerr != nil {
			zap.S().Named("local").Warnf("closing output file for pid %s: %v", id, cerr)
		}
		if cmd.ProcessState != nil {
			proc.exitCode = cmd.ProcessState.ExitCode()
		} else {
			proc.exitCode = -1
			zap.S().Named("local").Errorf("pid %s finished without process state: %v", id, err)
		}
		close(proc.done)
	}()

	return id, nil
}

func (b *LocalBackend) Status(ctx context.Context, job *runner.Job) (runner.StatusReport, error) {
	proc, ok := b.lookup(job.BackendID)
	if !ok {
		return runner.StatusReport{}, fmt.Errorf("unknown local run %s", job.BackendID)
	}

	select {
	case <-proc.done:
		code := proc.exitCode
		status := runner.StatusCompleted
		if code != 0 {
			status = runner.StatusFailed
		}
		return runner.StatusReport{Status: status, ExitCode: &code}, nil
	default:
		return runner.StatusReport{Status: runner.StatusRunning}, nil
	}
}

func (b *LocalBackend) Cancel(ctx context.Context, job *runner.Job) error {
	proc, ok := b.lookup(job.BackendID)
	if !ok {
		return fmt.Errorf("unknown local run %s", job.BackendID)
	}

	select {
	case <-proc.done:
		return nil
	default:
		return proc.cmd.Process.Kill()
	}
}

// Fetch is a no-op: local runs write their artifacts straight into the
// working directory.
func (b *LocalBackend) Fetch(ctx context.Context, job *runner.Job) error {
	return nil
}

func (b *LocalBackend) lookup(id string) (*localProc, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	proc, ok := b.procs[id]
	return proc, ok
}

func envList(env map[string]string) []string {
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, fmt.Sprintf("%s=%s", k, v))
	}
	return list
}
