package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSimScenario lays out a components.cue plus a scenario YAML and
// returns the scenario path. The failing variant expects a row count
// the dataset cannot produce.
func writeSimScenario(t *testing.T, failing bool) string {
	t.Helper()
	dir := t.TempDir()

	cueSrc := `component: {
	psm_table: {
		dataset:        "comet"
		sort_column:    "score"
		sort_direction: "asc"
		interactivity: {
			identification: {column: "id_idx", mode: "highlight"}
		}
	}
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "components.cue"), []byte(cueSrc), 0o644))

	expected := "render component=psm_table rows=2"
	if failing {
		expected = "render component=psm_table rows=7"
	}
	yamlSrc := `
name: sim
components: components.cue
dataset:
  name: comet
  version: v1
  rows:
    - {id_idx: 1, score: 0.2}
    - {id_idx: 2, score: 0.8}
flow:
  - select: {identifier: identification, value: 2}
assertions:
  - type: trace_contains
    event: "` + expected + `"
`
	path := filepath.Join(dir, "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlSrc), 0o644))
	return path
}

func TestSimulate_PassingScenario(t *testing.T) {
	path := writeSimScenario(t, false)

	buf := &bytes.Buffer{}
	cmd := NewSimulateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "Scenario: sim")
	assert.Contains(t, out, "render component=psm_table rows=2")
	assert.Contains(t, out, "highlight component=psm_table identifier=identification row=1")
	assert.Contains(t, out, "1 assertion(s) passed")
}

func TestSimulate_FailingAssertionExitsOne(t *testing.T) {
	path := writeSimScenario(t, true)

	buf := &bytes.Buffer{}
	cmd := NewSimulateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Assertions failed")
}

func TestSimulate_MissingScenario(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSimulateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope.yaml")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
