package evaluate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteReport writes the report as JSON, creating the directory if needed.
func WriteReport(path string, report *Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write evaluation report: %w", err)
	}
	return nil
}

// LoadReport reads a report file as a generic JSON document, so any metric
// path can be looked up.
func LoadReport(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read evaluation report: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse evaluation report %s: %w", path, err)
	}
	return doc, nil
}

// Lookup follows a dotted path such as "regression_metrics.mse.value" to a
// number.
func Lookup(doc map[string]any, path string) (float64, error) {
	if path == "" {
		return 0, fmt.Errorf("empty json path")
	}

	var current any = doc
	walked := make([]string, 0, strings.Count(path, ".")+1)
	for _, key := range strings.Split(path, ".") {
		walked = append(walked, key)
		obj, ok := current.(map[string]any)
		if !ok {
			return 0, fmt.Errorf("json path %q: %q is not an object", path, strings.Join(walked[:len(walked)-1], "."))
		}
		current, ok = obj[key]
		if !ok {
			return 0, fmt.Errorf("json path %q: %q not found", path, strings.Join(walked, "."))
		}
	}

	value, ok := current.(float64)
	if !ok {
		return 0, fmt.Errorf("json path %q: value is %T, not a number", path, current)
	}
	return value, nil
}

// Run scores a label,prediction file and writes the report to reportPath.
func Run(predictionsPath, reportPath string) (*Report, error) {
	f, err := os.Open(predictionsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open predictions: %w", err)
	}
	defer f.Close()

	labels, predictions, err := ReadPairs(f)
	if err != nil {
		return nil, err
	}
	report, err := Compute(labels, predictions)
	if err != nil {
		return nil, err
	}
	if err := WriteReport(reportPath, report); err != nil {
		return nil, err
	}
	return report, nil
}
