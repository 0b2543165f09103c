package history

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/pricepipe/internal/runstore"
)

// OutputFormat specifies how to format the run list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table with one run per line
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete run records as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates a user-supplied --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSONL:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format: %s (valid: default, jsonl)", s)
	}
}

// ListRuns fetches the runs matching filter, oldest first, and writes them in
// the requested format.
func ListRuns(ctx context.Context, store runstore.Store, filter *runstore.Filter, format OutputFormat, w io.Writer) error {
	runs, err := store.ListRuns(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	switch format {
	case OutputFormatDefault:
		FormatTable(w, runs, time.Now())
	case OutputFormatJSONL:
		if err := FormatJSONL(w, runs); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}
