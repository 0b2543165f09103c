package history

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/pricepipe/internal/runstore"
	"github.com/google/uuid"
)

// GetRun retrieves a single run by full ID and writes it as pretty-printed JSON.
func GetRun(ctx context.Context, store runstore.Store, runID string, w io.Writer) error {
	if _, err := uuid.Parse(runID); err != nil {
		return fmt.Errorf("invalid run ID format: must be a valid UUID")
	}

	run, err := store.GetRun(ctx, runID)
	if err != nil {
		if runstore.IsNotFound(err) {
			return &RunNotFoundError{RunID: runID}
		}
		return fmt.Errorf("failed to fetch run: %w", err)
	}

	if err := FormatSingleJSON(w, run); err != nil {
		return fmt.Errorf("failed to format run: %w", err)
	}

	return nil
}

// RunNotFoundError lets callers tell a missing run apart from other failures.
type RunNotFoundError struct {
	RunID string
}

func (e *RunNotFoundError) Error() string {
	return fmt.Sprintf("run with ID '%s' not found", e.RunID)
}

// IsNotFound returns true if the error is a RunNotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*RunNotFoundError)
	return ok
}
