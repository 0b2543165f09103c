package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/dyluth/pricepipe/internal/evaluate"
	"github.com/dyluth/pricepipe/internal/transform"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Validate
const (
	DefaultBaseDir   = "/opt/ml/processing"
	DefaultStoreFile = ".pricepipe/runs.json"
	DefaultNamespace = "default"
)

// PipelineConfig represents the top-level pipeline.yml configuration
type PipelineConfig struct {
	Version    string            `yaml:"version"`
	Name       string            `yaml:"name"`
	Dataset    string            `yaml:"dataset"`
	InputData  string            `yaml:"input_data"`
	BaseDir    string            `yaml:"base_dir,omitempty"`
	Transform  TransformConfig   `yaml:"transform,omitempty"`
	Storage    StorageConfig     `yaml:"storage,omitempty"`
	Trainer    *TrainerConfig    `yaml:"trainer,omitempty"`
	Evaluation *EvaluationConfig `yaml:"evaluation,omitempty"`
	Store      StoreConfig       `yaml:"store,omitempty"`
}

// TransformConfig tightens handling of questionable input values
type TransformConfig struct {
	StrictCategories bool `yaml:"strict_categories,omitempty"`
	StrictTimes      bool `yaml:"strict_times,omitempty"`
}

// StorageConfig configures S3 access for s3:// inputs
type StorageConfig struct {
	Region   string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"` // S3-compatible endpoint, path-style addressing
}

// TrainerConfig specifies the training and prediction container
type TrainerConfig struct {
	Image           string            `yaml:"image"`
	Command         []string          `yaml:"command,omitempty"`
	PredictCommand  []string          `yaml:"predict_command,omitempty"`
	Environment     []string          `yaml:"environment,omitempty"`
	Hyperparameters map[string]string `yaml:"hyperparameters,omitempty"`
}

// EvaluationConfig specifies the registration gate
type EvaluationConfig struct {
	Threshold      *float64 `yaml:"threshold,omitempty"`       // Highest MSE that still registers (default = 6.0)
	ApprovalStatus string   `yaml:"approval_status,omitempty"` // Default: PendingManualApproval
}

// StoreConfig selects where run records are kept
type StoreConfig struct {
	RedisURL  string `yaml:"redis_url,omitempty"` // Redis store when set, file store otherwise
	File      string `yaml:"file,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
}

// Validate checks the configuration and fills in defaults
func (c *PipelineConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name is required")
	}

	if _, err := transform.Lookup(c.Dataset, transform.Options{}); err != nil {
		return fmt.Errorf("dataset: %w", err)
	}

	if c.BaseDir == "" {
		c.BaseDir = DefaultBaseDir
	}

	if c.Evaluation == nil {
		c.Evaluation = &EvaluationConfig{}
	}
	if c.Evaluation.Threshold == nil {
		threshold := evaluate.DefaultThreshold
		c.Evaluation.Threshold = &threshold
	}
	if *c.Evaluation.Threshold < 0 {
		return fmt.Errorf("evaluation.threshold must be >= 0, got %g", *c.Evaluation.Threshold)
	}
	if c.Evaluation.ApprovalStatus == "" {
		c.Evaluation.ApprovalStatus = string(evaluate.PendingManualApproval)
	}
	if err := evaluate.ApprovalStatus(c.Evaluation.ApprovalStatus).Validate(); err != nil {
		return fmt.Errorf("evaluation.approval_status: %w", err)
	}

	if c.Store.File == "" {
		c.Store.File = DefaultStoreFile
	}
	if c.Store.Namespace == "" {
		c.Store.Namespace = DefaultNamespace
	}
	if strings.ContainsAny(c.Store.Namespace, ":*") {
		return fmt.Errorf("store.namespace must not contain ':' or '*': %s", c.Store.Namespace)
	}

	if c.Trainer != nil {
		if err := c.Trainer.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Validate performs validation on the trainer configuration
func (t *TrainerConfig) Validate() error {
	if t.Image == "" {
		return fmt.Errorf("trainer: image is required")
	}
	for _, kv := range t.Environment {
		if !strings.Contains(kv, "=") {
			return fmt.Errorf("trainer: environment entry %q must be KEY=VALUE", kv)
		}
	}
	for name := range t.Hyperparameters {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("trainer: hyperparameter names cannot be empty")
		}
	}
	return nil
}

// ValidateForRun checks the parts only the full pipeline needs
func (c *PipelineConfig) ValidateForRun() error {
	if c.Trainer == nil {
		return fmt.Errorf("trainer section is required to run the pipeline")
	}
	if strings.TrimSpace(c.InputData) == "" {
		return fmt.Errorf("input_data is required to run the pipeline")
	}
	return nil
}

// Threshold returns the registration threshold after defaults are applied
func (c *PipelineConfig) Threshold() float64 {
	if c.Evaluation == nil || c.Evaluation.Threshold == nil {
		return evaluate.DefaultThreshold
	}
	return *c.Evaluation.Threshold
}

// TransformOptions converts the transform section for the transform package
func (c *PipelineConfig) TransformOptions() transform.Options {
	return transform.Options{
		StrictCategories: c.Transform.StrictCategories,
		StrictTimes:      c.Transform.StrictTimes,
	}
}

// Load reads and validates pipeline.yml from the specified path
func Load(path string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config PipelineConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
