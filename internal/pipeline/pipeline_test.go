package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/pricepipe/internal/evaluate"
	"github.com/dyluth/pricepipe/internal/runstore"
	"github.com/dyluth/pricepipe/internal/trainer"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const housingCSV = "price,area,bedrooms,bathrooms,stories,mainroad,guestroom,basement,hotwaterheating,airconditioning,parking,prefarea,furnishingstatus\n" +
	"13300000,7420,4,2,3,yes,no,no,no,yes,2,yes,furnished\n" +
	"12250000,8960,4,4,4,yes,no,no,no,yes,3,no,semi-furnished\n" +
	"12250000,9960,3,2,2,yes,no,yes,no,no,2,yes,semi-furnished\n" +
	"12215000,7500,4,2,2,yes,no,yes,no,yes,3,yes,furnished\n" +
	"11410000,7420,4,1,2,yes,yes,yes,no,yes,2,no,furnished\n" +
	"10850000,7500,3,3,1,yes,no,yes,no,yes,2,yes,semi-furnished\n" +
	"10150000,8580,4,3,4,yes,no,no,no,yes,2,yes,semi-furnished\n" +
	"10150000,16200,5,3,2,yes,no,no,no,no,0,no,unfurnished\n" +
	"9870000,8100,4,1,2,yes,yes,yes,no,yes,2,yes,furnished\n" +
	"9800000,5750,3,2,4,yes,yes,no,no,yes,1,yes,unfurnished\n"

// fakeTrainer writes a model file and a fixed predictions file.
type fakeTrainer struct {
	predictions string
	trainErr    error
	predictErr  error
	trainJob    trainer.TrainJob
	predictJob  trainer.PredictJob
}

func (f *fakeTrainer) Train(_ context.Context, job trainer.TrainJob) error {
	f.trainJob = job
	if f.trainErr != nil {
		return f.trainErr
	}
	if err := os.MkdirAll(job.ModelDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(job.ModelDir, "model.tar.gz"), []byte("model"), 0o644)
}

func (f *fakeTrainer) Predict(_ context.Context, job trainer.PredictJob) error {
	f.predictJob = job
	if f.predictErr != nil {
		return f.predictErr
	}
	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(job.PredictionsPath(), []byte(f.predictions), 0o644)
}

func setup(t *testing.T) (Options, runstore.Store) {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "Housing.csv")
	require.NoError(t, os.WriteFile(input, []byte(housingCSV), 0o644))

	opts := Options{
		Name:      "house-price",
		Dataset:   "housing",
		InputData: input,
		BaseDir:   filepath.Join(dir, "processing"),
		Trainer: TrainerSpec{
			Image:           "xgboost:1.0-1",
			Command:         []string{"train"},
			PredictCommand:  []string{"predict"},
			Hyperparameters: map[string]string{"num_round": "50"},
		},
		Threshold: evaluate.DefaultThreshold,
	}
	return opts, runstore.NewFileStore(filepath.Join(dir, "runs.json"))
}

func TestRun_RegistersModelUnderThreshold(t *testing.T) {
	opts, store := setup(t)
	// squared errors 1 and 4: mse 2.5
	fake := &fakeTrainer{predictions: "10,11\n20,22\n"}

	record, err := New(store, fake, zerolog.Nop()).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, runstore.StatusSucceeded, record.Status)
	assert.Equal(t, runstore.StageRegister, record.Stage)
	assert.Equal(t, string(evaluate.PendingManualApproval), record.Approval)
	require.NotNil(t, record.MSE)
	assert.InDelta(t, 2.5, *record.MSE, 1e-12)
	assert.Equal(t, 10, record.Rows)
	assert.Equal(t, 7, record.Boundaries.TrainEnd)
	assert.Equal(t, 8, record.Boundaries.ValidationEnd)
	assert.False(t, record.EndedAt.IsZero())

	assert.Equal(t, filepath.Join(opts.BaseDir, "train"), fake.trainJob.TrainDir)
	assert.Equal(t, filepath.Join(opts.BaseDir, "validation"), fake.trainJob.ValidationDir)
	assert.Equal(t, filepath.Join(opts.BaseDir, "model"), fake.trainJob.ModelDir)
	assert.Equal(t, record.ID, fake.trainJob.RunID)
	assert.Equal(t, filepath.Join(opts.BaseDir, "test"), fake.predictJob.TestDir)
	assert.Equal(t, []string{"predict"}, fake.predictJob.Command)

	doc, err := evaluate.LoadReport(filepath.Join(opts.BaseDir, "evaluation", "evaluation.json"))
	require.NoError(t, err)
	mse, err := evaluate.Lookup(doc, evaluate.MSEPath)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, mse, 1e-12)

	stored, err := store.GetRun(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, runstore.StatusSucceeded, stored.Status)
	assert.Equal(t, string(evaluate.PendingManualApproval), stored.Approval)
}

func TestRun_GatesModelOverThreshold(t *testing.T) {
	opts, store := setup(t)
	// squared errors 9 and 9: mse 9
	fake := &fakeTrainer{predictions: "10,13\n20,17\n"}

	record, err := New(store, fake, zerolog.Nop()).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, runstore.StatusGated, record.Status)
	assert.Empty(t, record.Approval)
	require.NotNil(t, record.MSE)
	assert.InDelta(t, 9.0, *record.MSE, 1e-12)

	stored, err := store.GetRun(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, runstore.StatusGated, stored.Status)
}

func TestRun_ThresholdIsInclusive(t *testing.T) {
	opts, store := setup(t)
	opts.Threshold = 4
	opts.ApprovalStatus = evaluate.Approved
	fake := &fakeTrainer{predictions: "10,12\n"}

	record, err := New(store, fake, zerolog.Nop()).Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, runstore.StatusSucceeded, record.Status)
	assert.Equal(t, "Approved", record.Approval)
}

func TestRun_TrainFailureMarksRunFailed(t *testing.T) {
	opts, store := setup(t)
	fake := &fakeTrainer{trainErr: &trainer.ExitError{Stage: "train", ExitCode: 1, LogTail: "out of memory"}}

	record, err := New(store, fake, zerolog.Nop()).Run(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "train stage failed")

	var exitErr *trainer.ExitError
	assert.True(t, errors.As(err, &exitErr))

	assert.Equal(t, runstore.StatusFailed, record.Status)
	assert.Equal(t, runstore.StageTrain, record.Stage)

	stored, err := store.GetRun(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, runstore.StatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "out of memory")
	assert.Equal(t, 10, stored.Rows)
}

func TestRun_PreprocessFailureStopsBeforeTraining(t *testing.T) {
	opts, store := setup(t)
	require.NoError(t, os.WriteFile(opts.InputData, []byte("price,area\n1,2\n"), 0o644))
	fake := &fakeTrainer{}

	record, err := New(store, fake, zerolog.Nop()).Run(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preprocess stage failed")
	assert.Equal(t, runstore.StagePreprocess, record.Stage)
	assert.Empty(t, fake.trainJob.Image)
}

func TestRun_BadPredictionsFailEvaluation(t *testing.T) {
	opts, store := setup(t)
	fake := &fakeTrainer{predictions: "10,not-a-number\n"}

	record, err := New(store, fake, zerolog.Nop()).Run(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluate stage failed")
	assert.Equal(t, runstore.StatusFailed, record.Status)
	assert.Nil(t, record.MSE)
}

func TestRun_InvalidApprovalStatus(t *testing.T) {
	opts, store := setup(t)
	opts.ApprovalStatus = "Maybe"

	_, err := New(store, &fakeTrainer{}, zerolog.Nop()).Run(context.Background(), opts)
	assert.Error(t, err)

	runs, err := store.ListRuns(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRun_RecordsToRedis(t *testing.T) {
	opts, _ := setup(t)
	mr := miniredis.RunT(t)
	store, err := runstore.NewRedisStore(&redis.Options{Addr: mr.Addr()}, "default")
	require.NoError(t, err)
	defer store.Close()

	record, err := New(store, &fakeTrainer{predictions: "1,1\n"}, zerolog.Nop()).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.True(t, mr.Exists(runstore.RunKey("default", record.ID)))
	assert.Equal(t, "succeeded", mr.HGet(runstore.RunKey("default", record.ID), "status"))
}
