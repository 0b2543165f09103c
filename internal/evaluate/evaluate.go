// Package evaluate scores model predictions and decides whether the model
// may be registered.
package evaluate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// MSEPath is the report path the registration gate reads.
const MSEPath = "regression_metrics.mse.value"

// DefaultThreshold is the highest MSE a model may have and still be registered.
const DefaultThreshold = 6.0

// Metric is one scalar metric with its spread.
type Metric struct {
	Value             float64 `json:"value"`
	StandardDeviation float64 `json:"standard_deviation"`
}

// RegressionMetrics groups the regression metrics of a report.
type RegressionMetrics struct {
	MSE Metric `json:"mse"`
}

// Report is the evaluation report written next to the model.
type Report struct {
	RegressionMetrics RegressionMetrics `json:"regression_metrics"`
}

// Compute returns the mean squared error of predictions against labels and
// the population standard deviation of the residuals.
func Compute(labels, predictions []float64) (*Report, error) {
	if len(labels) == 0 {
		return nil, errors.New("no predictions to evaluate")
	}
	if len(labels) != len(predictions) {
		return nil, fmt.Errorf("got %d labels and %d predictions", len(labels), len(predictions))
	}

	residuals := make([]float64, len(labels))
	squared := make([]float64, len(labels))
	for i := range labels {
		r := labels[i] - predictions[i]
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, fmt.Errorf("row %d: non-finite residual", i)
		}
		residuals[i] = r
		squared[i] = r * r
	}

	_, variance := stat.PopMeanVariance(residuals, nil)

	return &Report{
		RegressionMetrics: RegressionMetrics{
			MSE: Metric{
				Value:             stat.Mean(squared, nil),
				StandardDeviation: math.Sqrt(variance),
			},
		},
	}, nil
}

// ReadPairs reads headerless label,prediction rows.
func ReadPairs(r io.Reader) (labels, predictions []float64, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2

	for row := 0; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read predictions: %w", err)
		}

		label, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: invalid label %q", row, record[0])
		}
		prediction, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: invalid prediction %q", row, record[1])
		}
		labels = append(labels, label)
		predictions = append(predictions, prediction)
	}

	return labels, predictions, nil
}
