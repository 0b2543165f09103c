package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/pricepipe/internal/config"
	"github.com/dyluth/pricepipe/internal/evaluate"
	"github.com/dyluth/pricepipe/internal/pipeline"
	"github.com/dyluth/pricepipe/internal/printer"
	"github.com/dyluth/pricepipe/internal/runstore"
	"github.com/dyluth/pricepipe/internal/storage"
	"github.com/dyluth/pricepipe/internal/trainer"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// newTrainer connects the container trainer. Tests replace it.
var newTrainer = func(ctx context.Context, logger zerolog.Logger) (pipeline.Trainer, func(), error) {
	runner, err := trainer.Connect(ctx, logger)
	if err != nil {
		return nil, nil, err
	}
	return runner, func() { runner.Close() }, nil
}

func newRunCmd(g *globals) *cobra.Command {
	var (
		configPath string
		inputData  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: preprocess, train, evaluate, register",
		Long: `Run every pipeline stage in order, as configured in pipeline.yml:

  1. preprocess - encode the dataset and write the three partitions
  2. train      - run the trainer image on train and validation
  3. evaluate   - run the trainer image in predict mode on test and score it
  4. register   - record the model with its approval status if its MSE is
                  at or below evaluation.threshold; otherwise the run is gated

Each stage transition is recorded in the run store. Inspect runs with
'pricepipe runs'.

Requires a running Docker daemon.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(configPath, true)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("input-data") {
				cfg.InputData = inputData
			}
			if err := cfg.ValidateForRun(); err != nil {
				return printer.ErrorWithContext(
					"pipeline is not runnable",
					err.Error(),
					map[string]string{"File": configPath},
					[]string{"Add a trainer section and input_data to pipeline.yml"},
				)
			}

			store, err := openStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer store.Close()

			t, closeTrainer, err := newTrainer(ctx, g.logger)
			if err != nil {
				return printer.Error(
					"trainer unavailable",
					err.Error(),
					[]string{"Start Docker and try again."},
				)
			}
			defer closeTrainer()

			record, err := pipeline.New(store, t, g.logger).Run(ctx, pipelineOptions(cfg))
			if err != nil {
				if record != nil {
					printRunRecord(record)
				}
				return jobError("pipeline run failed", err)
			}

			printRunRecord(record)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "f", defaultConfigFile, "Pipeline configuration file")
	cmd.Flags().StringVar(&inputData, "input-data", "", "Override input_data from the configuration")

	return cmd
}

// pipelineOptions maps a validated configuration to a pipeline run.
func pipelineOptions(cfg *config.PipelineConfig) pipeline.Options {
	return pipeline.Options{
		Name:      cfg.Name,
		Dataset:   cfg.Dataset,
		InputData: cfg.InputData,
		BaseDir:   cfg.BaseDir,
		Transform: cfg.TransformOptions(),
		S3:        storage.S3Options{Region: cfg.Storage.Region, Endpoint: cfg.Storage.Endpoint},
		Trainer: pipeline.TrainerSpec{
			Image:           cfg.Trainer.Image,
			Command:         cfg.Trainer.Command,
			PredictCommand:  cfg.Trainer.PredictCommand,
			Environment:     cfg.Trainer.Environment,
			Hyperparameters: cfg.Trainer.Hyperparameters,
		},
		Threshold:      cfg.Threshold(),
		ApprovalStatus: evaluate.ApprovalStatus(cfg.Evaluation.ApprovalStatus),
	}
}

func printRunRecord(record *runstore.RunRecord) {
	mse := "-"
	if record.MSE != nil {
		mse = fmt.Sprintf("%g (threshold %g)", *record.MSE, record.Threshold)
	}

	fields := []printer.Field{
		{Key: "run", Value: record.ID},
		{Key: "stage", Value: string(record.Stage)},
		{Key: "status", Value: string(record.Status)},
		{Key: "rows", Value: fmt.Sprintf("%d (train %d, validation %d, test %d)",
			record.Rows,
			record.Boundaries.TrainEnd,
			record.Boundaries.ValidationEnd-record.Boundaries.TrainEnd,
			record.Rows-record.Boundaries.ValidationEnd)},
		{Key: "mse", Value: mse},
	}
	if record.Approval != "" {
		fields = append(fields, printer.Field{Key: "approval", Value: record.Approval})
	}
	if record.ModelDir != "" {
		fields = append(fields, printer.Field{Key: "model", Value: record.ModelDir})
	}
	printer.Summary("Pipeline run", fields)

	switch record.Status {
	case runstore.StatusSucceeded:
		printer.Success("Model registered as %s\n", record.Approval)
	case runstore.StatusGated:
		printer.Warning("Model not registered: MSE above threshold\n")
	}
}

// openStore opens the configured run store with a CLI-formatted error.
func openStore(ctx context.Context, sc config.StoreConfig) (runstore.Store, error) {
	store, err := runstore.Open(ctx, runstore.Options{
		RedisURL:  sc.RedisURL,
		Namespace: sc.Namespace,
		File:      sc.File,
	})
	if err != nil {
		return nil, printer.Error(
			"run store unavailable",
			err.Error(),
			[]string{"Check store.redis_url in pipeline.yml, or remove it to use the local file store."},
		)
	}
	return store, nil
}
