package commands

import (
	"github.com/dyluth/pricepipe/internal/printer"
	"github.com/dyluth/pricepipe/internal/scaffold"
	"github.com/dyluth/pricepipe/internal/transform"
	"github.com/spf13/cobra"
)

func newInitCmd(g *globals) *cobra.Command {
	var (
		force   bool
		dataset string
		dir     string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter pipeline.yml",
		Long: `Write a pipeline.yml for the chosen dataset with default trainer
hyperparameters, a 6.0 MSE registration threshold and a local file run store.

Use --force to overwrite an existing pipeline.yml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := transform.Lookup(dataset, transform.Options{}); err != nil {
				return printer.Error("unknown dataset", err.Error(), nil)
			}

			path, err := scaffold.Initialize(dir, scaffold.DefaultParams(dataset), force)
			if err != nil {
				return printer.Error("initialization failed", err.Error(), nil)
			}
			g.logger.Debug().Str("path", path).Msg("Configuration written")

			printer.Success("Created %s\n", path)
			printer.Info("\nNext steps:\n")
			printer.Info("  1. Point input_data at your dataset and trainer.image at your training image\n")
			printer.Info("  2. Add '.pricepipe/' to your .gitignore file\n")
			printer.Info("  3. Run 'pricepipe run' to execute the pipeline\n")
			return nil
		},
	}

	// Note: -f is the --config shorthand on the other commands
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing pipeline.yml")
	cmd.Flags().StringVar(&dataset, "dataset", "housing", "Dataset variant: housing or airline")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to initialize")

	return cmd
}
