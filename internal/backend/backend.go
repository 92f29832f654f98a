package backend

import (
	"fmt"

	"github.com/avriza/simrunner/internal/config"
	"github.com/avriza/simrunner/internal/runner"
)

// New selects an execution backend from the configuration. The set of
// backends is closed: local subprocess execution or a Slurm scheduler,
// optionally driven through an SSH login host.
func New(cfg *config.Config) (runner.Backend, error) {
	switch cfg.Runner.Backend {
	case "local":
		return NewLocal(cfg.Runner.LammpsBinary), nil
	case "slurm":
		return NewSlurm(SlurmOptions{
			LammpsBinary: cfg.Runner.LammpsBinary,
			Partition:    cfg.Runner.Slurm.Partition,
			Walltime:     cfg.Runner.Slurm.Walltime,
			SSHHost:      cfg.Runner.Slurm.SSHHost,
			RemoteDir:    cfg.Runner.Slurm.RemoteDir,
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Runner.Backend)
	}
}
