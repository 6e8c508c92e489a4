package graphbuilder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphbuilder.toml")
	content := "AllowExplicitTrapChecks = false\nEagerResolution = true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.False(t, opts.AllowExplicitTrapChecks)
	assert.True(t, opts.EagerResolution)
	assert.True(t, opts.BranchPrediction, "unset fields keep their defaults")
	assert.True(t, opts.CacheGraphs)
}

func TestLoadOptionsMissingFile(t *testing.T) {
	_, err := LoadOptions(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}
