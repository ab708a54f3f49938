package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/maxpert/shapebench/cfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	original := cfg.Config
	t.Cleanup(func() { cfg.Config = original })
	cfg.Config = cfg.Default()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.toml")))
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "shapebench dev")
}

func TestVersionSkipsConfig(t *testing.T) {
	out, err := execute(t, "version", "--driver", "oracle")
	require.NoError(t, err)
	assert.Contains(t, out, "shapebench dev")
}

func TestVariantsCommand(t *testing.T) {
	out, err := execute(t, "variants", "--driver", "sqlite", "--variants", "join_*", "--show-sql")
	require.NoError(t, err)

	assert.Contains(t, out, "baseline")
	assert.Contains(t, out, "join_temp")
	assert.NotContains(t, out, "cte_pruned")
	assert.Contains(t, out, "CREATE TEMP TABLE filter_states_join")
	assert.Contains(t, out, "fingerprint")
}

func TestOverrides(t *testing.T) {
	_, err := execute(t, "variants", "--driver", "sqlite", "--iterations", "7", "--states", "WA,OR",
		"--years", "2020", "--no-validate", "--format", "markdown")
	require.NoError(t, err)

	// execute restores the config on cleanup, so inspect it before then
	assert.Equal(t, "sqlite", cfg.Config.Engine.Driver)
	assert.Equal(t, 7, cfg.Config.Benchmark.Iterations)
	assert.Equal(t, []string{"WA", "OR"}, cfg.Config.Benchmark.States)
	assert.Equal(t, []int{2020}, cfg.Config.Benchmark.Years)
	assert.False(t, cfg.Config.Validation.Enabled)
	assert.Equal(t, "markdown", cfg.Config.Report.Format)
}

func TestInvalidOverride(t *testing.T) {
	_, err := execute(t, "variants", "--driver", "oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRunCommandJSON(t *testing.T) {
	out, err := execute(t, "run", "--driver", "sqlite", "--rows", "800", "--iterations", "2",
		"--variants", "in_pushdown", "--format", "json")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "baseline", decoded["baseline_id"])
	assert.Len(t, decoded["variants"], 2)
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "--driver", "sqlite", "--rows", "500")
	require.NoError(t, err)
	assert.Contains(t, out, "Equivalence validation")
	assert.Contains(t, out, "match")
}
