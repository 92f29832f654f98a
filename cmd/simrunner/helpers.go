package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/avriza/simrunner/internal/backend"
	"github.com/avriza/simrunner/internal/config"
	"github.com/avriza/simrunner/internal/runner"
	"github.com/avriza/simrunner/internal/service"
	"github.com/avriza/simrunner/internal/store"
)

// request flags shared by the submitting commands
var (
	flagScript    string
	flagWorkdir   string
	flagNodes     int
	flagWalltime  string
	flagQueue     string
	flagArtifacts []string
	flagTimeout   time.Duration
)

func addRequestFlags(flags *pflag.FlagSet) {
	flags.StringVar(&flagScript, "script", "input.lammps", "input script, absolute or relative to the working directory")
	flags.StringVar(&flagWorkdir, "workdir", "", "working directory for the run (default: a fresh directory under the workdir root)")
	flags.IntVar(&flagNodes, "nodes", 1, "number of nodes to request")
	flags.StringVar(&flagWalltime, "walltime", "", "walltime limit, scheduler format")
	flags.StringVar(&flagQueue, "queue", "", "scheduler partition")
	flags.StringSliceVar(&flagArtifacts, "artifact", nil, "expected output file, relative to the working directory (repeatable)")
}

func requestFromFlags() runner.RunRequest {
	return runner.RunRequest{
		ScriptPath: flagScript,
		WorkDir:    flagWorkdir,
		Nodes:      flagNodes,
		Walltime:   flagWalltime,
		Queue:      flagQueue,
		Artifacts:  flagArtifacts,
	}
}

func newRunner(cfg *config.Config) (*runner.Runner, error) {
	b, err := backend.New(cfg)
	if err != nil {
		return nil, err
	}
	return runner.New(b, runner.OptionsFromConfig(cfg)), nil
}

// newService wires the store-backed run service used by the tracking
// commands. The returned closer must be called before exit.
func newService(cfg *config.Config) (*service.RunService, func(), error) {
	r, err := newRunner(cfg)
	if err != nil {
		return nil, nil, err
	}

	db, err := store.InitDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing data store: %w", err)
	}
	st := store.NewStore(db)
	if err := st.InitialMigration(); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("running initial migration: %w", err)
	}

	svc := service.NewRunService(st, r, cfg.Runner.DefaultWaitTimeout)
	return svc, func() { _ = st.Close() }, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
