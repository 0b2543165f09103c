package runstore

import (
	"strconv"
	"testing"
	"time"

	"github.com/dyluth/pricepipe/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashStrings(t *testing.T, fields map[string]interface{}) map[string]string {
	t.Helper()
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			out[k] = val
		case int:
			out[k] = strconv.Itoa(val)
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		default:
			t.Fatalf("unexpected hash field type %T for %s", v, k)
		}
	}
	return out
}

func TestRunHash_PreservesFields(t *testing.T) {
	mse := 4.25
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &RunRecord{
		ID:         "550e8400-e29b-41d4-a716-446655440000",
		Pipeline:   "house-price",
		Dataset:    "housing",
		Input:      "s3://bucket/Housing.csv",
		Stage:      StageRegister,
		Status:     StatusSucceeded,
		StartedAt:  started,
		EndedAt:    started.Add(90 * time.Second),
		Rows:       545,
		Boundaries: dataset.Boundaries{TrainEnd: 381, ValidationEnd: 463},
		Unmapped:   2,
		MSE:        &mse,
		Threshold:  6,
		Approval:   "PendingManualApproval",
		ModelDir:   "/opt/ml/processing/model",
	}

	fields, err := RunToHash(r)
	require.NoError(t, err)
	assert.Equal(t, `{"train_end":381,"validation_end":463}`, fields["boundaries"])
	assert.Equal(t, "4.25", fields["mse"])

	back, err := HashToRun(hashStrings(t, fields))
	require.NoError(t, err)
	assert.Equal(t, r, back)
}

func TestRunHash_OptionalFields(t *testing.T) {
	r := &RunRecord{
		ID:        "550e8400-e29b-41d4-a716-446655440000",
		Pipeline:  "p",
		Stage:     StagePreprocess,
		Status:    StatusRunning,
		StartedAt: time.UnixMilli(1700000000123).UTC(),
	}

	fields, err := RunToHash(r)
	require.NoError(t, err)
	assert.Equal(t, "", fields["mse"])
	assert.Equal(t, int64(0), fields["ended_at_ms"])

	back, err := HashToRun(hashStrings(t, fields))
	require.NoError(t, err)
	assert.Nil(t, back.MSE)
	assert.True(t, back.EndedAt.IsZero())
	assert.Equal(t, r.StartedAt, back.StartedAt)
}

func TestHashToRun_Invalid(t *testing.T) {
	for field, value := range map[string]string{
		"started_at_ms": "yesterday",
		"rows":          "many",
		"mse":           "low",
		"boundaries":    "{",
	} {
		t.Run(field, func(t *testing.T) {
			_, err := HashToRun(map[string]string{"id": "x", field: value})
			assert.Error(t, err)
		})
	}
}
