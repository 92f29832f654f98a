package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avriza/simrunner/internal/config"
	"github.com/avriza/simrunner/internal/runner"
)

// runCmd drives one run end to end: submit, wait for a terminal state and
// collect the result, all in-process.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Submit a run and wait for its result",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		r, err := newRunner(cfg)
		if err != nil {
			return err
		}

		job, err := r.Submit(cmd.Context(), requestFromFlags())
		if err != nil {
			return err
		}

		if err := r.Wait(cmd.Context(), job, flagTimeout, func(j *runner.Job) {
			zap.S().Infof("run %s is %s", j.ID, j.Status)
		}); err != nil {
			return err
		}

		result, cerr := r.Collect(cmd.Context(), job)
		if perr := printJSON(result); perr != nil {
			return perr
		}
		return cerr
	},
}

// batchCmd submits one run per disp-* directory and waits for all of them,
// the displacement workflow of phonon calculations.
var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Run every disp-* displacement directory under dir",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		r, err := newRunner(cfg)
		if err != nil {
			return err
		}

		jobs, err := r.SubmitDisplacements(cmd.Context(), args[0], requestFromFlags())
		if err != nil {
			return err
		}
		zap.S().Infof("submitted %d displacement runs", len(jobs))

		results := make([]runner.RunResult, 0, len(jobs))
		for _, job := range jobs {
			if werr := r.Wait(cmd.Context(), job, flagTimeout, nil); werr != nil {
				zap.S().Warnf("run %s: %v", job.ID, werr)
				continue
			}
			result, cerr := r.Collect(cmd.Context(), job)
			if cerr != nil {
				zap.S().Warnf("run %s: %v", job.ID, cerr)
			}
			results = append(results, result)
		}
		return printJSON(results)
	},
}

func init() {
	addRequestFlags(runCmd.Flags())
	runCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "wait budget, 0 uses the configured default")
	addRequestFlags(batchCmd.Flags())
	batchCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "wait budget per run, 0 uses the configured default")
}
