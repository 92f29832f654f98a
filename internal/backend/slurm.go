package backend

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/avriza/simrunner/internal/runner"
	"github.com/avriza/simrunner/internal/runner/fileio"
)

// BatchScriptFile is the submission artifact written for scheduler runs.
const BatchScriptFile = "job.sbatch"

type SlurmOptions struct {
	LammpsBinary string
	Partition    string
	Walltime     string
	// SSHHost, when set, drives sbatch/squeue/sacct/scancel through the
	// cluster's login host and stages the working directory to RemoteDir.
	SSHHost   string
	RemoteDir string
}

// SlurmBackend submits runs to a Slurm scheduler and tracks them through
// squeue and sacct.
type SlurmBackend struct {
	opts   SlurmOptions
	sched  CommandRunner
	stager Stager
}

func NewSlurm(opts SlurmOptions) *SlurmBackend {
	exec := NewExecRunner()
	b := &SlurmBackend{opts: opts, sched: exec}
	if opts.SSHHost != "" {
		b.sched = NewSSHRunner(opts.SSHHost, exec)
		b.stager = NewScpStager(opts.SSHHost, exec)
	}
	return b
}

// NewSlurmWithRunner injects the command runner and stager. Used by tests.
func NewSlurmWithRunner(opts SlurmOptions, sched CommandRunner, stager Stager) *SlurmBackend {
	return &SlurmBackend{opts: opts, sched: sched, stager: stager}
}

func (b *SlurmBackend) Name() string {
	return "slurm"
}

func (b *SlurmBackend) Submit(ctx context.Context, job *runner.Job) (string, error) {
	writer := fileio.NewWriter()
	script := b.batchScript(job)
	if err := writer.WriteFile(filepath.Join(job.WorkDir, BatchScriptFile), []byte(script)); err != nil {
		return "", fmt.Errorf("writing batch script: %w", err)
	}

	runDir := b.runDir(job)
	if b.stager != nil {
		if err := b.stager.Stage(ctx, job.WorkDir, runDir); err != nil {
			return "", fmt.Errorf("staging working directory: %w", err)
		}
	}

	stdout, _, err := b.sched.Run(ctx, "sbatch", "--parsable", "--chdir", runDir, path.Join(runDir, BatchScriptFile))
	if err != nil {
		return "", err
	}

	// --parsable prints "jobid[;cluster]"
	id := strings.TrimSpace(strings.Split(strings.TrimSpace(stdout), ";")[0])
	if _, err := strconv.Atoi(id); err != nil {
		return "", fmt.Errorf("sbatch returned an unexpected job id %q", id)
	}
	return id, nil
}

func (b *SlurmBackend) Status(ctx context.Context, job *runner.Job) (runner.StatusReport, error) {
	// While queued or running the job shows up in squeue. Once it left the
	// queue only sacct knows its fate.
	stdout, _, err := b.sched.Run(ctx, "squeue", "-h", "-j", job.BackendID, "-o", "%T")
	if err == nil {
		if state := strings.TrimSpace(stdout); state != "" {
			return queueReport(state), nil
		}
	}

	stdout, _, aerr := b.sched.Run(ctx, "sacct", "-j", job.BackendID, "-n", "-P", "-X", "-o", "State,ExitCode")
	if aerr != nil {
		if err != nil {
			return runner.StatusReport{}, fmt.Errorf("squeue: %v; sacct: %w", err, aerr)
		}
		return runner.StatusReport{}, aerr
	}
	return accountingReport(stdout)
}

func (b *SlurmBackend) Cancel(ctx context.Context, job *runner.Job) error {
	_, _, err := b.sched.Run(ctx, "scancel", job.BackendID)
	return err
}

func (b *SlurmBackend) Fetch(ctx context.Context, job *runner.Job) error {
	if b.stager == nil {
		return nil
	}
	return b.stager.Fetch(ctx, job.WorkDir, b.runDir(job))
}

// runDir is where the scheduler executes the job: the staged remote
// directory, or the working directory itself on a shared filesystem.
func (b *SlurmBackend) runDir(job *runner.Job) string {
	if b.opts.SSHHost != "" {
		return path.Join(b.opts.RemoteDir, job.ID.String())
	}
	return job.WorkDir
}

func (b *SlurmBackend) batchScript(job *runner.Job) string {
	req := job.Request

	walltime := req.Walltime
	if walltime == "" {
		walltime = b.opts.Walltime
	}
	partition := req.Queue
	if partition == "" {
		partition = b.opts.Partition
	}
	nodes := req.Nodes
	if nodes <= 0 {
		nodes = 1
	}

	// The script runs relative to the staged run directory.
	script := req.ScriptPath
	if filepath.IsAbs(script) {
		script = filepath.Base(script)
	}

	var sb strings.Builder
	sb.WriteString("#!/bin/bash\n")
	fmt.Fprintf(&sb, "#SBATCH --job-name=sim-%.8s\n", job.ID)
	fmt.Fprintf(&sb, "#SBATCH --nodes=%d\n", nodes)
	fmt.Fprintf(&sb, "#SBATCH --time=%s\n", walltime)
	if partition != "" {
		fmt.Fprintf(&sb, "#SBATCH --partition=%s\n", partition)
	}
	fmt.Fprintf(&sb, "#SBATCH --output=%s\n", runner.OutputFile)
	sb.WriteString("\n")
	for k, v := range req.Env {
		fmt.Fprintf(&sb, "export %s=%q\n", k, v)
	}
	sb.WriteString("module load lammps\n")
	fmt.Fprintf(&sb, "%s -in %s\n", b.opts.LammpsBinary, script)
	return sb.String()
}

func queueReport(state string) runner.StatusReport {
	switch state {
	case "PENDING", "CONFIGURING", "REQUEUED", "SUSPENDED":
		return runner.StatusReport{Status: runner.StatusPending}
	default:
		// RUNNING, COMPLETING and anything else still in the queue
		return runner.StatusReport{Status: runner.StatusRunning}
	}
}

func accountingReport(stdout string) (runner.StatusReport, error) {
	line := ""
	for _, l := range strings.Split(stdout, "\n") {
		if strings.TrimSpace(l) != "" {
			line = strings.TrimSpace(l)
			break
		}
	}
	if line == "" {
		return runner.StatusReport{}, fmt.Errorf("job not found in accounting")
	}

	fields := strings.Split(line, "|")
	// sacct reports e.g. "CANCELLED by 1000", keep the state word only
	state := strings.Fields(fields[0])[0]

	switch state {
	case "PENDING":
		return runner.StatusReport{Status: runner.StatusPending}, nil
	case "RUNNING", "COMPLETING":
		return runner.StatusReport{Status: runner.StatusRunning}, nil
	case "COMPLETED":
		code := exitCode(fields)
		return runner.StatusReport{Status: runner.StatusCompleted, ExitCode: &code}, nil
	default:
		// FAILED, CANCELLED, TIMEOUT, NODE_FAIL, OUT_OF_MEMORY, PREEMPTED
		code := exitCode(fields)
		return runner.StatusReport{Status: runner.StatusFailed, ExitCode: &code}, nil
	}
}

// exitCode parses sacct's "exit:signal" pair, e.g. "0:0".
func exitCode(fields []string) int {
	if len(fields) < 2 {
		return -1
	}
	code, err := strconv.Atoi(strings.Split(fields[1], ":")[0])
	if err != nil {
		zap.S().Named("slurm").Debugf("unparsable exit code %q", fields[1])
		return -1
	}
	return code
}
