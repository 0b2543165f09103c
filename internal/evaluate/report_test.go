package evaluate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndLoadReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evaluation", "evaluation.json")
	report := &Report{RegressionMetrics: RegressionMetrics{MSE: Metric{Value: 4.5, StandardDeviation: 1.25}}}

	require.NoError(t, WriteReport(path, report))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"regression_metrics":{"mse":{"value":4.5,"standard_deviation":1.25}}}`, string(raw))

	doc, err := LoadReport(path)
	require.NoError(t, err)
	value, err := Lookup(doc, MSEPath)
	require.NoError(t, err)
	assert.Equal(t, 4.5, value)
}

func TestLookup_Errors(t *testing.T) {
	doc := map[string]any{
		"regression_metrics": map[string]any{
			"mse":  map[string]any{"value": "high"},
			"rmse": 2.0,
		},
	}

	tests := []struct {
		path    string
		wantErr string
	}{
		{"", "empty json path"},
		{"regression_metrics.mae.value", `"regression_metrics.mae" not found`},
		{"regression_metrics.rmse.value", `"regression_metrics.rmse" is not an object`},
		{"regression_metrics.mse.value", "not a number"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := Lookup(doc, tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadReport_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evaluation.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := LoadReport(path)
	assert.Error(t, err)

	_, err = LoadReport(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	predictions := filepath.Join(dir, "predictions.csv")
	require.NoError(t, os.WriteFile(predictions, []byte("3,2\n5,5\n7,8\n9,11\n"), 0o644))
	reportPath := filepath.Join(dir, "out", "evaluation.json")

	report, err := Run(predictions, reportPath)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, report.RegressionMetrics.MSE.Value, 1e-12)

	doc, err := LoadReport(reportPath)
	require.NoError(t, err)
	value, err := Lookup(doc, MSEPath)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, value, 1e-12)

	_, err = Run(filepath.Join(dir, "missing.csv"), reportPath)
	assert.Error(t, err)
}
