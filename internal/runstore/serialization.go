package runstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dyluth/pricepipe/internal/dataset"
)

// Redis stores records as string-to-string hashes. Times are Unix
// milliseconds, boundaries are JSON-encoded into one field and a missing MSE
// is an empty string.

// RunToHash converts a record to Redis hash fields.
func RunToHash(r *RunRecord) (map[string]interface{}, error) {
	boundaries, err := json.Marshal(r.Boundaries)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal boundaries: %w", err)
	}

	mse := ""
	if r.MSE != nil {
		mse = strconv.FormatFloat(*r.MSE, 'g', -1, 64)
	}

	return map[string]interface{}{
		"id":            r.ID,
		"pipeline":      r.Pipeline,
		"dataset":       r.Dataset,
		"input":         r.Input,
		"stage":         string(r.Stage),
		"status":        string(r.Status),
		"started_at_ms": timeToMs(r.StartedAt),
		"ended_at_ms":   timeToMs(r.EndedAt),
		"rows":          r.Rows,
		"boundaries":    string(boundaries),
		"unmapped":      r.Unmapped,
		"mse":           mse,
		"threshold":     strconv.FormatFloat(r.Threshold, 'g', -1, 64),
		"approval":      r.Approval,
		"model_dir":     r.ModelDir,
		"error":         r.Error,
	}, nil
}

// HashToRun converts Redis hash fields back to a record.
func HashToRun(hash map[string]string) (*RunRecord, error) {
	r := &RunRecord{
		ID:       hash["id"],
		Pipeline: hash["pipeline"],
		Dataset:  hash["dataset"],
		Input:    hash["input"],
		Stage:    Stage(hash["stage"]),
		Status:   Status(hash["status"]),
		Approval: hash["approval"],
		ModelDir: hash["model_dir"],
		Error:    hash["error"],
	}

	var err error
	if r.StartedAt, err = msToTime(hash["started_at_ms"]); err != nil {
		return nil, fmt.Errorf("invalid started_at_ms field: %w", err)
	}
	if r.EndedAt, err = msToTime(hash["ended_at_ms"]); err != nil {
		return nil, fmt.Errorf("invalid ended_at_ms field: %w", err)
	}
	if r.Rows, err = atoiOrZero(hash["rows"]); err != nil {
		return nil, fmt.Errorf("invalid rows field: %w", err)
	}
	if r.Unmapped, err = atoiOrZero(hash["unmapped"]); err != nil {
		return nil, fmt.Errorf("invalid unmapped field: %w", err)
	}

	if raw := hash["boundaries"]; raw != "" {
		var b dataset.Boundaries
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, fmt.Errorf("failed to unmarshal boundaries: %w", err)
		}
		r.Boundaries = b
	}

	if raw := hash["mse"]; raw != "" {
		mse, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid mse field: %w", err)
		}
		r.MSE = &mse
	}
	if raw := hash["threshold"]; raw != "" {
		if r.Threshold, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, fmt.Errorf("invalid threshold field: %w", err)
		}
	}

	return r, nil
}

func timeToMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func msToTime(raw string) (time.Time, error) {
	if raw == "" || raw == "0" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func atoiOrZero(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
