package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (stdout, stderr *bytes.Buffer) {
	t.Helper()
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr, prevNoColor := Stdout, Stderr, color.NoColor
	Stdout, Stderr, color.NoColor = stdout, stderr, true
	t.Cleanup(func() {
		Stdout, Stderr, color.NoColor = prevOut, prevErr, prevNoColor
	})
	return stdout, stderr
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, stderr := capture(t)
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, stderr.String(), "This is a test error")
	})

	t.Run("single suggestion is printed bare", func(t *testing.T) {
		_, stderr := capture(t)
		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, stderr.String(), "\nTry this fix\n")
		assert.NotContains(t, stderr.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		_, stderr := capture(t)
		err := Error("Test Error", "Explanation", []string{"First option", "Second option"})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, stderr.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, stderr := capture(t)
	context := map[string]string{
		"Run":     "a1b2c3d4",
		"Dataset": "housing",
	}
	err := ErrorWithContext("Test Error", "Explanation", context, nil)
	require.Equal(t, "Test Error", err.Error())
	assert.Contains(t, stderr.String(), "  Dataset: housing\n  Run: a1b2c3d4\n")
}

func TestSummary(t *testing.T) {
	stdout, _ := capture(t)
	Summary("Partitions", []Field{
		{Key: "train", Value: "7"},
		{Key: "validation", Value: "2"},
	})
	assert.Equal(t, "Partitions\n  train:       7\n  validation:  2\n", stdout.String())
}

func TestSuccessAndWarningPrefixes(t *testing.T) {
	stdout, _ := capture(t)
	Success("done\n")
	Warning("careful\n")
	Step("next\n")
	assert.Equal(t, "✓ done\n⚠️  careful\n→ next\n", stdout.String())
}
