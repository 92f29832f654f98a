package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Stager moves a run's files between the local working directory and the
// directory the scheduler executes in.
type Stager interface {
	Stage(ctx context.Context, workDir, runDir string) error
	Fetch(ctx context.Context, workDir, runDir string) error
}

type scpStager struct {
	host string
	exec CommandRunner
}

// NewScpStager copies files to and from the cluster over scp, the way runs
// are staged to a login host without a shared filesystem.
func NewScpStager(host string, exec CommandRunner) Stager {
	return scpStager{host: host, exec: exec}
}

func (s scpStager) Stage(ctx context.Context, workDir, runDir string) error {
	if _, _, err := s.exec.Run(ctx, "ssh", s.host, fmt.Sprintf("mkdir -p %s", runDir)); err != nil {
		return err
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no files found in %s", workDir)
	}

	args := []string{"-rq"}
	for _, entry := range entries {
		args = append(args, filepath.Join(workDir, entry.Name()))
	}
	args = append(args, fmt.Sprintf("%s:%s/", s.host, runDir))

	_, _, err = s.exec.Run(ctx, "scp", args...)
	return err
}

func (s scpStager) Fetch(ctx context.Context, workDir, runDir string) error {
	_, _, err := s.exec.Run(ctx, "scp", "-rq", fmt.Sprintf("%s:%s/*", s.host, runDir), workDir)
	return err
}
