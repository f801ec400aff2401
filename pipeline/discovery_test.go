package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverRuns(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"run_002", "run_001", "RunA7", "R0042", "scratch", "archive"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, name), 0o755))
	}
	// Regular files never count as runs even with a matching name.
	require.NoError(t, os.WriteFile(filepath.Join(root, "run_003"), []byte("not a dir"), 0o644))

	runs, err := DiscoverRuns(root)
	require.NoError(t, err)

	names := make([]string, len(runs))
	for i, r := range runs {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"R0042", "RunA7", "run_001", "run_002"}, names)

	for _, r := range runs {
		assert.Equal(t, filepath.Join(root, r.Name), r.Path)
	}
}

func TestDiscoverRunsMissingRoot(t *testing.T) {
	_, err := DiscoverRuns(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discovering runs")
}

func TestDiscoverRunsEmptyRoot(t *testing.T) {
	runs, err := DiscoverRuns(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunNamePattern(t *testing.T) {
	matches := []string{"run_001", "run-0042", "RunA7", "RUN12", "R0001", "run9"}
	for _, name := range matches {
		assert.True(t, runNamePattern.MatchString(name), name)
	}
	misses := []string{"archive", "logs", "r", "Rabc", "running room"}
	for _, name := range misses {
		assert.False(t, runNamePattern.MatchString(name), name)
	}
}
