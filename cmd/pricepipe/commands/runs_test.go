package commands

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dyluth/pricepipe/internal/runstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRuns(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.json")
	store := runstore.NewFileStore(path)
	ctx := context.Background()

	started := time.Now().UTC().Add(-2 * time.Hour)
	for i, status := range []runstore.Status{runstore.StatusSucceeded, runstore.StatusFailed, runstore.StatusGated} {
		record := runstore.NewRunRecord("house-price", "housing", "Housing.csv")
		record.ID = []string{
			"a1b2c3d4-0000-4000-8000-000000000001",
			"a1b2c3ff-0000-4000-8000-000000000002",
			"bbbbbbbb-0000-4000-8000-000000000003",
		}[i]
		record.StartedAt = started.Add(time.Duration(i) * 30 * time.Minute)
		record.Stage = runstore.StageRegister
		record.Finish(status, nil)
		require.NoError(t, store.UpsertRun(ctx, record))
	}
	return path
}

func TestRuns_ListTable(t *testing.T) {
	storeFile := seedRuns(t)

	stdout, _, err := execute(t, "runs", "--store-file", storeFile)
	require.NoError(t, err)
	assert.Contains(t, stdout, "a1b2c3d4")
	assert.Contains(t, stdout, "bbbbbbbb")
	assert.Contains(t, stdout, "3 runs found")
}

func TestRuns_ListJSONLWithFilters(t *testing.T) {
	storeFile := seedRuns(t)

	stdout, _, err := execute(t, "runs", "--store-file", storeFile, "-o", "jsonl", "--status", "gated")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 1)
	var record runstore.RunRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "bbbbbbbb-0000-4000-8000-000000000003", record.ID)

	stdout, _, err = execute(t, "runs", "--store-file", storeFile, "--since", "100m")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "a1b2c3d4")
	assert.Contains(t, stdout, "2 runs found")
}

func TestRuns_GetByShortID(t *testing.T) {
	storeFile := seedRuns(t)

	stdout, _, err := execute(t, "runs", "--store-file", storeFile, "bbbbbb")
	require.NoError(t, err)

	var record runstore.RunRecord
	require.NoError(t, json.Unmarshal([]byte(stdout), &record))
	assert.Equal(t, runstore.StatusGated, record.Status)
}

func TestRuns_GetErrors(t *testing.T) {
	storeFile := seedRuns(t)

	_, stderr, err := execute(t, "runs", "--store-file", storeFile, "a1b2c3")
	require.Error(t, err)
	assert.Equal(t, "ambiguous short ID", err.Error())
	assert.Contains(t, stderr, "a1b2c3d4-0000-4000-8000-000000000001")

	_, _, err = execute(t, "runs", "--store-file", storeFile, "cccccc")
	require.Error(t, err)
	assert.Equal(t, "run with ID 'cccccc' not found", err.Error())
}

func TestRuns_InvalidFlags(t *testing.T) {
	storeFile := seedRuns(t)

	_, _, err := execute(t, "runs", "--store-file", storeFile, "-o", "xml")
	require.Error(t, err)
	assert.Equal(t, "invalid output format", err.Error())

	_, _, err = execute(t, "runs", "--store-file", storeFile, "--status", "done")
	require.Error(t, err)
	assert.Equal(t, "invalid status filter", err.Error())

	_, _, err = execute(t, "runs", "--store-file", storeFile, "--since", "1h", "--until", "2h")
	require.Error(t, err)
	assert.Equal(t, "invalid time filter", err.Error())
}

func TestRuns_WatchNeedsRedis(t *testing.T) {
	storeFile := seedRuns(t)

	_, _, err := execute(t, "runs", "--store-file", storeFile, "--watch")
	require.Error(t, err)
	assert.Equal(t, "watch needs the Redis run store", err.Error())
}
