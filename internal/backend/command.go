package backend

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes a scheduler or transfer command and captures its
// output. Injected so backends can be exercised without a scheduler around.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error)
}

type execRunner struct{}

// NewExecRunner runs commands as local subprocesses.
func NewExecRunner() CommandRunner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), stderr.String(), fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), stderr.String(), nil
}

type sshRunner struct {
	host string
	exec CommandRunner
}

// NewSSHRunner wraps a runner so every command is executed on the given
// login host, the way the HPC tooling drives a cluster front end.
func NewSSHRunner(host string, exec CommandRunner) CommandRunner {
	return sshRunner{host: host, exec: exec}
}

func (r sshRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	remote := name
	if len(args) > 0 {
		remote = name + " " + strings.Join(args, " ")
	}
	return r.exec.Run(ctx, "ssh", r.host, remote)
}
