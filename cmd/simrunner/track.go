package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/avriza/simrunner/internal/config"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a run and return immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		svc, closer, err := newService(cfg)
		if err != nil {
			return err
		}
		defer closer()

		run, err := svc.CreateRun(cmd.Context(), requestFromFlags())
		if err != nil {
			return err
		}
		return printJSON(run)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show the current status of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return err
		}
		cfg, err := config.New()
		if err != nil {
			return err
		}
		svc, closer, err := newService(cfg)
		if err != nil {
			return err
		}
		defer closer()

		run, err := svc.GetRun(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(run)
	},
}

var waitCmd = &cobra.Command{
	Use:   "wait <run-id>",
	Short: "Block until a run reaches a terminal state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return err
		}
		cfg, err := config.New()
		if err != nil {
			return err
		}
		svc, closer, err := newService(cfg)
		if err != nil {
			return err
		}
		defer closer()

		run, werr := svc.WaitRun(cmd.Context(), id, flagTimeout)
		if run != nil {
			if perr := printJSON(run); perr != nil {
				return perr
			}
		}
		return werr
	},
}

var resultCmd = &cobra.Command{
	Use:   "result <run-id>",
	Short: "Collect and print the result of a finished run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return err
		}
		cfg, err := config.New()
		if err != nil {
			return err
		}
		svc, closer, err := newService(cfg)
		if err != nil {
			return err
		}
		defer closer()

		result, err := svc.GetResult(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <run-id>",
	Short: "Best-effort cancellation of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return err
		}
		cfg, err := config.New()
		if err != nil {
			return err
		}
		svc, closer, err := newService(cfg)
		if err != nil {
			return err
		}
		defer closer()

		run, err := svc.CancelRun(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(run)
	},
}

func init() {
	addRequestFlags(submitCmd.Flags())
	waitCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "wait budget, 0 uses the configured default")
}
