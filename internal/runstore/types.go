package runstore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dyluth/pricepipe/internal/dataset"
	"github.com/google/uuid"
)

// Stage is the pipeline step a run last entered.
type Stage string

const (
	StagePreprocess Stage = "preprocess"
	StageTrain      Stage = "train"
	StageEvaluate   Stage = "evaluate"
	StageRegister   Stage = "register"
)

// Validate checks the stage is one of the known pipeline steps.
func (s Stage) Validate() error {
	switch s {
	case StagePreprocess, StageTrain, StageEvaluate, StageRegister:
		return nil
	default:
		return fmt.Errorf("invalid stage: %q", s)
	}
}

// Status is the state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	// StatusGated marks a run whose model missed the evaluation threshold.
	StatusGated Status = "gated"
)

// Validate checks the status is one of the known run states.
func (s Status) Validate() error {
	switch s {
	case StatusRunning, StatusSucceeded, StatusFailed, StatusGated:
		return nil
	default:
		return fmt.Errorf("invalid status: %q (valid: running, succeeded, failed, gated)", s)
	}
}

// Terminal reports whether a run in this state will not change again.
func (s Status) Terminal() bool {
	return s != StatusRunning
}

// RunRecord is the persisted state of one pipeline run.
type RunRecord struct {
	ID         string             `json:"id"`
	Pipeline   string             `json:"pipeline"`
	Dataset    string             `json:"dataset"`
	Input      string             `json:"input,omitempty"`
	Stage      Stage              `json:"stage"`
	Status     Status             `json:"status"`
	StartedAt  time.Time          `json:"started_at"`
	EndedAt    time.Time          `json:"ended_at"`
	Rows       int                `json:"rows"`
	Boundaries dataset.Boundaries `json:"boundaries"`
	Unmapped   int                `json:"unmapped"`
	MSE        *float64           `json:"mse,omitempty"`
	Threshold  float64            `json:"threshold,omitempty"`
	Approval   string             `json:"approval,omitempty"`
	ModelDir   string             `json:"model_dir,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// NewRunRecord starts a record for a fresh run with a random UUID.
func NewRunRecord(pipeline, datasetName, input string) *RunRecord {
	return &RunRecord{
		ID:        uuid.New().String(),
		Pipeline:  pipeline,
		Dataset:   datasetName,
		Input:     input,
		Stage:     StagePreprocess,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

// Validate checks the record can be stored.
func (r *RunRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("run ID is required")
	}
	if _, err := uuid.Parse(r.ID); err != nil {
		return fmt.Errorf("invalid run ID %q: %w", r.ID, err)
	}
	if strings.TrimSpace(r.Pipeline) == "" {
		return errors.New("pipeline name is required")
	}
	if err := r.Stage.Validate(); err != nil {
		return err
	}
	if err := r.Status.Validate(); err != nil {
		return err
	}
	if r.StartedAt.IsZero() {
		return errors.New("start time is required")
	}
	return nil
}

// Finish stamps the end time and final status.
func (r *RunRecord) Finish(status Status, err error) {
	r.Status = status
	r.EndedAt = time.Now().UTC()
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration is the wall time of the run, up to now if it is still running.
func (r *RunRecord) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.EndedAt.Sub(r.StartedAt)
}
