package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avriza/simrunner/internal/config"
	"github.com/avriza/simrunner/pkg/log"
)

// This variable is set during build time.
// It contains the version of the code.
var version string

var rootCmd = &cobra.Command{
	Use:   "simrunner",
	Short: "Submit and track LAMMPS simulation runs",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}
		logger := log.InitLog(log.Level(cfg.Service.LogLevel))
		zap.ReplaceGlobals(logger)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print simrunner version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("simrunner version: %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(resultCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(versionCmd)
}
