package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/pricepipe/internal/printer"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var versionString = "dev"

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// globals are the flags shared by every subcommand
type globals struct {
	logLevel string
	logJSON  bool
	logger   zerolog.Logger
}

// NewRootCmd builds the command tree. Each call returns independent flag state.
func NewRootCmd() *cobra.Command {
	g := &globals{logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "pricepipe",
		Short: "pricepipe - price regression pipeline",
		Long: `pricepipe prepares tabular price datasets for regression training and
drives the fixed pipeline preprocess → train → evaluate → register.

Datasets:
  housing - boolean/categorical remap of the house price table
  airline - compound field decomposition and ordinal encoding of airline fares

Every pipeline run is recorded in a run store (a local JSON file, or Redis
when store.redis_url is configured).`,
		Version: versionString,
		// Prevent silent success when unknown flags are passed to root command
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			printer.Stdout = cmd.OutOrStdout()
			printer.Stderr = cmd.ErrOrStderr()

			logger, err := newLogger(cmd.ErrOrStderr(), g.logLevel, g.logJSON)
			if err != nil {
				return printer.Error(
					"invalid log level",
					err.Error(),
					[]string{"Valid levels: debug, info, warn, error"},
				)
			}
			g.logger = logger
			return nil
		},
		// Silence Cobra's default error and usage printing
		// We print formatted colored errors directly in the printer package
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	root.PersistentFlags().BoolVar(&g.logJSON, "log-json", false, "Write logs as JSON lines instead of console text")

	root.AddCommand(
		newPreprocessCmd(g),
		newEvaluateCmd(g),
		newRunCmd(g),
		newRunsCmd(g),
		newInitCmd(g),
	)

	return root
}

// Execute builds the command tree and runs it. This is called by main.main().
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
