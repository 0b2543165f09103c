package history

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dyluth/pricepipe/internal/runstore"
)

// FormatTable writes runs as a table with columns ID, PIPELINE, DATASET,
// STAGE, STATUS, MSE, AGE and TOOK. Returns the number of runs formatted.
func FormatTable(w io.Writer, runs []*runstore.RunRecord, now time.Time) int {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return 0
	}

	fmt.Fprintf(w, "%-8s  %-16s  %-8s  %-10s  %-9s  %-8s  %-8s  %s\n",
		"ID", "PIPELINE", "DATASET", "STAGE", "STATUS", "MSE", "AGE", "TOOK")
	fmt.Fprintf(w, "%-8s  %-16s  %-8s  %-10s  %-9s  %-8s  %-8s  %s\n",
		"--------", "----------------", "--------", "----------", "---------", "--------", "--------", "--------")

	for _, r := range runs {
		fmt.Fprintf(w, "%-8s  %-16s  %-8s  %-10s  %-9s  %-8s  %-8s  %s\n",
			formatID(r.ID),
			truncate(r.Pipeline, 16),
			truncate(r.Dataset, 8),
			r.Stage,
			r.Status,
			formatMSE(r.MSE),
			formatAge(r.StartedAt, now),
			formatDuration(r),
		)
	}

	noun := "run"
	if len(runs) != 1 {
		noun = "runs"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(runs), noun)

	return len(runs)
}

// FormatJSONL writes runs as line-delimited JSON, one record per line.
func FormatJSONL(w io.Writer, runs []*runstore.RunRecord) error {
	enc := json.NewEncoder(w)
	for _, r := range runs {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes one run as pretty-printed JSON.
func FormatSingleJSON(w io.Writer, run *runstore.RunRecord) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// formatID truncates a run ID to its first 8 characters.
func formatID(id string) string {
	return truncateRaw(id, 8)
}

func truncate(s string, n int) string {
	if s == "" {
		return "-"
	}
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func truncateRaw(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// formatMSE shows the metric to four decimals, or "-" before evaluation.
func formatMSE(mse *float64) string {
	if mse == nil {
		return "-"
	}
	return strconv.FormatFloat(*mse, 'f', 4, 64)
}

// formatAge renders how long ago t was, like "2m ago" or "3d ago".
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

// formatDuration is the run's wall time, or "-" while it is still running.
func formatDuration(r *runstore.RunRecord) string {
	if r.EndedAt.IsZero() {
		return "-"
	}
	return r.Duration().Round(time.Second).String()
}

// FormatEvent writes a one-line summary of a run update, as seen at now.
func FormatEvent(w io.Writer, r *runstore.RunRecord, now time.Time) {
	fmt.Fprintf(w, "[%s] %s  %-16s  %-10s  %-9s  mse=%s\n",
		now.Format(time.TimeOnly),
		formatID(r.ID),
		truncate(r.Pipeline, 16),
		r.Stage,
		r.Status,
		formatMSE(r.MSE),
	)
}
