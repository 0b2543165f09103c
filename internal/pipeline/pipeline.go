// Package pipeline runs the fixed stage sequence
// preprocess → train → evaluate → register, recording every transition in
// the run store. There is no branching beyond the registration gate.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dyluth/pricepipe/internal/evaluate"
	"github.com/dyluth/pricepipe/internal/preprocess"
	"github.com/dyluth/pricepipe/internal/runstore"
	"github.com/dyluth/pricepipe/internal/storage"
	"github.com/dyluth/pricepipe/internal/trainer"
	"github.com/dyluth/pricepipe/internal/transform"
	"github.com/rs/zerolog"
)

// Directories under the base directory for stage outputs
const (
	ModelDir      = "model"
	EvaluationDir = "evaluation"
	// ReportFile is the evaluation report written into EvaluationDir.
	ReportFile = "evaluation.json"
)

// Trainer runs the training and prediction containers.
type Trainer interface {
	Train(ctx context.Context, job trainer.TrainJob) error
	Predict(ctx context.Context, job trainer.PredictJob) error
}

// TrainerSpec is the container configuration shared by train and predict.
type TrainerSpec struct {
	Image           string
	Command         []string
	PredictCommand  []string
	Environment     []string
	Hyperparameters map[string]string
}

// Options describe one pipeline run.
type Options struct {
	Name      string
	Dataset   string
	InputData string
	BaseDir   string
	Transform transform.Options
	S3        storage.S3Options
	// Fetcher overrides the fetcher chosen from the input location.
	Fetcher        storage.Fetcher
	Trainer        TrainerSpec
	Threshold      float64
	ApprovalStatus evaluate.ApprovalStatus
}

// Runner executes pipeline runs.
type Runner struct {
	store   runstore.Store
	trainer Trainer
	logger  zerolog.Logger
}

func New(store runstore.Store, t Trainer, logger zerolog.Logger) *Runner {
	return &Runner{store: store, trainer: t, logger: logger}
}

// Run executes every stage in order and returns the final run record. A
// model that misses the threshold is not an error: the run ends gated.
func (r *Runner) Run(ctx context.Context, opts Options) (*runstore.RunRecord, error) {
	if opts.BaseDir == "" {
		opts.BaseDir = preprocess.DefaultBaseDir
	}
	if opts.ApprovalStatus == "" {
		opts.ApprovalStatus = evaluate.PendingManualApproval
	}
	if err := opts.ApprovalStatus.Validate(); err != nil {
		return nil, err
	}

	record := runstore.NewRunRecord(opts.Name, opts.Dataset, opts.InputData)
	record.Threshold = opts.Threshold
	logger := r.logger.With().Str("run_id", record.ID).Str("pipeline", opts.Name).Logger()

	if err := r.store.UpsertRun(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}
	logger.Info().Msg("Run started")

	stages := []struct {
		stage runstore.Stage
		fn    func(ctx context.Context, record *runstore.RunRecord, opts Options, logger zerolog.Logger) error
	}{
		{runstore.StagePreprocess, r.preprocess},
		{runstore.StageTrain, r.train},
		{runstore.StageEvaluate, r.evaluate},
		{runstore.StageRegister, r.register},
	}

	for _, s := range stages {
		record.Stage = s.stage
		if err := r.store.UpsertRun(ctx, record); err != nil {
			return r.fail(ctx, record, logger, fmt.Errorf("failed to record stage %s: %w", s.stage, err))
		}
		logger.Info().Str("stage", string(s.stage)).Msg("Stage started")

		if err := s.fn(ctx, record, opts, logger); err != nil {
			return r.fail(ctx, record, logger, fmt.Errorf("%s stage failed: %w", s.stage, err))
		}
		if record.Status.Terminal() {
			break
		}
	}

	if err := r.store.UpsertRun(ctx, record); err != nil {
		return record, fmt.Errorf("failed to record run result: %w", err)
	}
	logger.Info().Str("status", string(record.Status)).Dur("took", record.Duration()).Msg("Run finished")
	return record, nil
}

// fail marks the run failed. The record is written even when ctx is done.
func (r *Runner) fail(ctx context.Context, record *runstore.RunRecord, logger zerolog.Logger, err error) (*runstore.RunRecord, error) {
	record.Finish(runstore.StatusFailed, err)
	if saveErr := r.store.UpsertRun(context.WithoutCancel(ctx), record); saveErr != nil {
		logger.Error().Err(saveErr).Msg("Failed to record run failure")
	}
	logger.Error().Err(err).Str("stage", string(record.Stage)).Msg("Run failed")
	return record, err
}

func (r *Runner) preprocess(ctx context.Context, record *runstore.RunRecord, opts Options, logger zerolog.Logger) error {
	result, err := preprocess.Run(ctx, preprocess.Options{
		InputData: opts.InputData,
		Dataset:   opts.Dataset,
		BaseDir:   opts.BaseDir,
		Transform: opts.Transform,
		S3:        opts.S3,
		Fetcher:   opts.Fetcher,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	record.Rows = result.Rows
	record.Boundaries = result.Boundaries
	record.Unmapped = result.Report.UnmappedTotal()
	return nil
}

func (r *Runner) train(ctx context.Context, record *runstore.RunRecord, opts Options, _ zerolog.Logger) error {
	record.ModelDir = filepath.Join(opts.BaseDir, ModelDir)
	return r.trainer.Train(ctx, trainer.TrainJob{
		RunID:           record.ID,
		Pipeline:        opts.Name,
		Image:           opts.Trainer.Image,
		Command:         opts.Trainer.Command,
		Environment:     opts.Trainer.Environment,
		Hyperparameters: opts.Trainer.Hyperparameters,
		TrainDir:        filepath.Join(opts.BaseDir, storage.TrainName),
		ValidationDir:   filepath.Join(opts.BaseDir, storage.ValidationName),
		ModelDir:        record.ModelDir,
	})
}

func (r *Runner) evaluate(ctx context.Context, record *runstore.RunRecord, opts Options, logger zerolog.Logger) error {
	job := trainer.PredictJob{
		RunID:       record.ID,
		Pipeline:    opts.Name,
		Image:       opts.Trainer.Image,
		Command:     opts.Trainer.PredictCommand,
		Environment: opts.Trainer.Environment,
		ModelDir:    record.ModelDir,
		TestDir:     filepath.Join(opts.BaseDir, storage.TestName),
		OutputDir:   filepath.Join(opts.BaseDir, EvaluationDir),
	}
	if err := r.trainer.Predict(ctx, job); err != nil {
		return err
	}

	reportPath := filepath.Join(job.OutputDir, ReportFile)
	if _, err := evaluate.Run(job.PredictionsPath(), reportPath); err != nil {
		return err
	}

	doc, err := evaluate.LoadReport(reportPath)
	if err != nil {
		return err
	}
	mse, err := evaluate.Lookup(doc, evaluate.MSEPath)
	if err != nil {
		return err
	}
	record.MSE = &mse
	logger.Info().Float64("mse", mse).Msg("Model evaluated")
	return nil
}

func (r *Runner) register(_ context.Context, record *runstore.RunRecord, opts Options, logger zerolog.Logger) error {
	if record.MSE == nil {
		return fmt.Errorf("no evaluation result to gate on")
	}

	decision := evaluate.Gate(*record.MSE, opts.Threshold)
	logger.Info().Str("decision", decision.String()).Msg("Registration gate evaluated")
	if !decision.Register {
		record.Finish(runstore.StatusGated, nil)
		return nil
	}

	record.Approval = string(opts.ApprovalStatus)
	record.Finish(runstore.StatusSucceeded, nil)
	return nil
}
