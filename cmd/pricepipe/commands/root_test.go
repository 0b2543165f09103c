package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// execute runs a fresh command tree and captures its output.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	// A nil slice would make cobra fall back to os.Args
	root.SetArgs(append([]string{}, args...))
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestRootCommand_ShowsHelpWhenNoSubcommand tests that the root command
// shows help instead of silently succeeding when invoked without a subcommand
func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	stdout, _, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Usage:")
	assert.Contains(t, stdout, "pricepipe")
	for _, sub := range []string{"preprocess", "evaluate", "run", "runs", "init"} {
		assert.Contains(t, stdout, sub)
	}
}

// TestRootCommand_RejectsUnknownFlags tests that unknown flags
// passed to the root command cause an error instead of being silently ignored
func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, _, err := execute(t, "--unknown-flag", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

// TestRootCommand_RejectsSubcommandFlags tests that flags meant for
// subcommands are rejected when passed to the root command
func TestRootCommand_RejectsSubcommandFlags(t *testing.T) {
	_, _, err := execute(t, "--input-data", "Housing.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag: --input-data")
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	_, stderr, err := execute(t, "--log-level", "chatty", "init", "--dir", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, "invalid log level", err.Error())
	assert.Contains(t, stderr, `unknown log level "chatty"`)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "WARN", true)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("column", "mainroad").Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"column":"mainroad"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)

	_, err = newLogger(&buf, "", false)
	assert.Error(t, err)
}
