package commands

import (
	"fmt"

	"github.com/dyluth/pricepipe/internal/evaluate"
	"github.com/dyluth/pricepipe/internal/printer"
	"github.com/spf13/cobra"
)

func newEvaluateCmd(g *globals) *cobra.Command {
	var (
		predictionsPath string
		outputPath      string
		threshold       float64
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score predictions and apply the registration gate",
		Long: `Compute the mean squared error of a predictions file and write the
evaluation report. The predictions file has one label,prediction pair per
line, without a header.

The report has the shape:

  {"regression_metrics": {"mse": {"value": ..., "standard_deviation": ...}}}

A model is eligible for registration when its MSE is at or below the threshold.

Examples:
  pricepipe evaluate --predictions /opt/ml/processing/evaluation/predictions.csv \
    --output /opt/ml/processing/evaluation/evaluation.json --threshold 6.0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := evaluate.Run(predictionsPath, outputPath)
			if err != nil {
				return printer.ErrorWithContext(
					"evaluation failed",
					err.Error(),
					map[string]string{"Predictions": predictionsPath},
					[]string{"The predictions file must hold label,prediction pairs with no header."},
				)
			}

			mse := report.RegressionMetrics.MSE
			decision := evaluate.Gate(mse.Value, threshold)
			g.logger.Info().
				Float64("mse", mse.Value).
				Float64("threshold", threshold).
				Bool("register", decision.Register).
				Msg("Model evaluated")

			printer.Success("Evaluation report written to %s\n", outputPath)
			printer.Summary("Metrics", []printer.Field{
				{Key: "mse", Value: fmt.Sprintf("%g", mse.Value)},
				{Key: "standard deviation", Value: fmt.Sprintf("%g", mse.StandardDeviation)},
			})
			if decision.Register {
				printer.Success("%s\n", decision)
			} else {
				printer.Warning("%s\n", decision)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&predictionsPath, "predictions", "", "CSV of label,prediction pairs")
	cmd.Flags().StringVar(&outputPath, "output", "evaluation.json", "Where to write the evaluation report")
	cmd.Flags().Float64Var(&threshold, "threshold", evaluate.DefaultThreshold, "Highest MSE that still registers the model")
	_ = cmd.MarkFlagRequired("predictions")

	return cmd
}
