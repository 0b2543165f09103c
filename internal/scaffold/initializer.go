package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/dyluth/pricepipe/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// ConfigFile is the pipeline configuration written by Initialize
const ConfigFile = "pipeline.yml"

// Hyperparameter is one default trainer hyperparameter
type Hyperparameter struct {
	Key   string
	Value string
}

// Params fill in the pipeline.yml template
type Params struct {
	Name            string
	Dataset         string
	InputData       string
	Image           string
	Hyperparameters []Hyperparameter
}

// DefaultParams returns starter values for the named dataset variant
func DefaultParams(dataset string) Params {
	p := Params{
		Dataset: dataset,
		Image:   "683313688378.dkr.ecr.us-east-1.amazonaws.com/sagemaker-xgboost:1.0-1-cpu-py3",
		Hyperparameters: []Hyperparameter{
			{Key: "objective", Value: "reg:linear"},
			{Key: "num_round", Value: "50"},
			{Key: "max_depth", Value: "5"},
			{Key: "eta", Value: "0.2"},
			{Key: "gamma", Value: "4"},
			{Key: "min_child_weight", Value: "6"},
			{Key: "subsample", Value: "0.7"},
		},
	}
	switch dataset {
	case "airline":
		p.Name = "airline-price"
		p.InputData = "s3://my-bucket/dataset/airline_price.csv"
	default:
		p.Name = "house-price"
		p.InputData = "s3://my-bucket/dataset/Housing.csv"
	}
	return p
}

// Initialize writes pipeline.yml into dir and creates the run store directory.
// If force is true an existing pipeline.yml is replaced.
func Initialize(dir string, params Params, force bool) (string, error) {
	if force {
		if err := handleForce(dir); err != nil {
			return "", err
		}
	} else if err := CheckExisting(dir); err != nil {
		return "", err
	}

	content, err := render(params)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Join(dir, ".pricepipe"), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory .pricepipe: %w", err)
	}

	path := filepath.Join(dir, ConfigFile)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", ConfigFile, err)
	}

	// The template must always produce a configuration Load accepts
	if _, err := config.Load(path); err != nil {
		return "", fmt.Errorf("created %s is invalid: %w", ConfigFile, err)
	}

	return path, nil
}

// handleForce removes an existing pipeline.yml if --force was specified
func handleForce(dir string) error {
	path := filepath.Join(dir, ConfigFile)
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", ConfigFile, err)
		}
	}
	return nil
}

func render(params Params) ([]byte, error) {
	raw, err := templatesFS.ReadFile("templates/pipeline.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read %s template: %w", ConfigFile, err)
	}

	tmpl, err := template.New(ConfigFile).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s template: %w", ConfigFile, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", ConfigFile, err)
	}
	return buf.Bytes(), nil
}
