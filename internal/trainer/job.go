// Package trainer runs the model training and prediction containers.
//
// The training container sees the train and validation partitions at
// /opt/ml/input/data/{train,validation} and writes its model to
// /opt/ml/model. Hyperparameters arrive as SM_HP_<NAME> environment
// variables. The prediction container reads the model and the test partition
// and writes label,prediction rows to /opt/ml/processing/evaluation.
package trainer

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
)

// Container paths
const (
	TrainChannelPath      = "/opt/ml/input/data/train"
	ValidationChannelPath = "/opt/ml/input/data/validation"
	ModelPath             = "/opt/ml/model"

	PredictModelPath  = "/opt/ml/processing/model"
	PredictTestPath   = "/opt/ml/processing/test"
	PredictOutputPath = "/opt/ml/processing/evaluation"

	// PredictionsFile is the file the prediction container must write.
	PredictionsFile = "predictions.csv"
)

// TrainJob describes one training run.
type TrainJob struct {
	RunID           string
	Pipeline        string
	Image           string
	Command         []string
	Environment     []string
	Hyperparameters map[string]string
	TrainDir        string
	ValidationDir   string
	ModelDir        string
}

// PredictJob describes one batch prediction over the test partition.
type PredictJob struct {
	RunID       string
	Pipeline    string
	Image       string
	Command     []string
	Environment []string
	ModelDir    string
	TestDir     string
	OutputDir   string
}

// PredictionsPath is where the prediction container leaves its output.
func (j PredictJob) PredictionsPath() string {
	return filepath.Join(j.OutputDir, PredictionsFile)
}

// HyperparameterEnv renders hyperparameters as sorted SM_HP_<NAME>=value
// entries. Names are upper-cased and dashes become underscores.
func HyperparameterEnv(hp map[string]string) []string {
	env := make([]string, 0, len(hp))
	for name, value := range hp {
		key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		env = append(env, fmt.Sprintf("SM_HP_%s=%s", key, value))
	}
	sort.Strings(env)
	return env
}

func bindMount(source, target string, readOnly bool) (mount.Mount, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return mount.Mount{}, fmt.Errorf("failed to resolve %s: %w", source, err)
	}
	return mount.Mount{
		Type:     mount.TypeBind,
		Source:   abs,
		Target:   target,
		ReadOnly: readOnly,
	}, nil
}

func (j TrainJob) validate() error {
	if j.Image == "" {
		return fmt.Errorf("trainer image is required")
	}
	if j.TrainDir == "" || j.ValidationDir == "" || j.ModelDir == "" {
		return fmt.Errorf("train, validation and model directories are required")
	}
	return nil
}

// containerSpec builds the training container configuration.
func (j TrainJob) containerSpec() (*container.Config, *container.HostConfig, error) {
	if err := j.validate(); err != nil {
		return nil, nil, err
	}

	env := append([]string{
		"SM_CHANNEL_TRAIN=" + TrainChannelPath,
		"SM_CHANNEL_VALIDATION=" + ValidationChannelPath,
		"SM_MODEL_DIR=" + ModelPath,
		"PRICEPIPE_RUN_ID=" + j.RunID,
	}, HyperparameterEnv(j.Hyperparameters)...)
	env = append(env, j.Environment...)

	cfg := &container.Config{
		Image:  j.Image,
		Cmd:    j.Command,
		Env:    env,
		Labels: BuildLabels(j.Pipeline, j.RunID, "train"),
	}

	var mounts []mount.Mount
	for _, m := range []struct {
		source, target string
		readOnly       bool
	}{
		{j.TrainDir, TrainChannelPath, true},
		{j.ValidationDir, ValidationChannelPath, true},
		{j.ModelDir, ModelPath, false},
	} {
		bm, err := bindMount(m.source, m.target, m.readOnly)
		if err != nil {
			return nil, nil, err
		}
		mounts = append(mounts, bm)
	}

	return cfg, &container.HostConfig{Mounts: mounts, AutoRemove: false}, nil
}

func (j PredictJob) validate() error {
	if j.Image == "" {
		return fmt.Errorf("prediction image is required")
	}
	if j.ModelDir == "" || j.TestDir == "" || j.OutputDir == "" {
		return fmt.Errorf("model, test and output directories are required")
	}
	return nil
}

// containerSpec builds the prediction container configuration.
func (j PredictJob) containerSpec() (*container.Config, *container.HostConfig, error) {
	if err := j.validate(); err != nil {
		return nil, nil, err
	}

	env := append([]string{
		"SM_MODEL_DIR=" + PredictModelPath,
		"PRICEPIPE_TEST_DIR=" + PredictTestPath,
		"PRICEPIPE_OUTPUT_DIR=" + PredictOutputPath,
		"PRICEPIPE_RUN_ID=" + j.RunID,
	}, j.Environment...)

	cfg := &container.Config{
		Image:  j.Image,
		Cmd:    j.Command,
		Env:    env,
		Labels: BuildLabels(j.Pipeline, j.RunID, "predict"),
	}

	var mounts []mount.Mount
	for _, m := range []struct {
		source, target string
		readOnly       bool
	}{
		{j.ModelDir, PredictModelPath, true},
		{j.TestDir, PredictTestPath, true},
		{j.OutputDir, PredictOutputPath, false},
	} {
		bm, err := bindMount(m.source, m.target, m.readOnly)
		if err != nil {
			return nil, nil, err
		}
		mounts = append(mounts, bm)
	}

	return cfg, &container.HostConfig{Mounts: mounts, AutoRemove: false}, nil
}
