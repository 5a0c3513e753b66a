package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario places a scenario YAML plus a minimal component
// declaration file in a temp dir and returns the scenario path.
func writeScenario(t *testing.T, yamlBody string) string {
	t.Helper()
	dir := t.TempDir()

	cueSrc := `component: {
	psm_table: {
		dataset:        "comet"
		sort_column:    "score"
		sort_direction: "asc"
	}
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "components.cue"), []byte(cueSrc), 0o644))

	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenario(t, `
name: smoke
components: components.cue
dataset:
  name: comet
  version: v1
  rows:
    - {id_idx: 1, score: 0.5}
flow:
  - rerender: "*"
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "smoke", scenario.Name)
	assert.True(t, filepath.IsAbs(scenario.Components), "components path should be resolved relative to the scenario file")
	assert.Len(t, scenario.Flow, 1)
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "missing name",
			yaml: `
components: components.cue
dataset: {name: comet, version: v1, rows: []}
flow: [{rerender: "*"}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing dataset version",
			yaml: `
name: s
components: components.cue
dataset: {name: comet, rows: []}
flow: [{rerender: "*"}]
`,
			wantErr: "dataset.version is required",
		},
		{
			name: "empty flow",
			yaml: `
name: s
components: components.cue
dataset: {name: comet, version: v1, rows: []}
flow: []
`,
			wantErr: "flow list is required",
		},
		{
			name: "flow step with two actions",
			yaml: `
name: s
components: components.cue
dataset: {name: comet, version: v1, rows: []}
flow:
  - rerender: "*"
    select: {identifier: identification, value: 1}
`,
			wantErr: "exactly one of select, rerender, dataset",
		},
		{
			name: "select without identifier",
			yaml: `
name: s
components: components.cue
dataset: {name: comet, version: v1, rows: []}
flow:
  - select: {value: 1}
`,
			wantErr: "identifier is required",
		},
		{
			name: "unknown assertion type",
			yaml: `
name: s
components: components.cue
dataset: {name: comet, version: v1, rows: []}
flow: [{rerender: "*"}]
assertions:
  - type: trace_matches
    event: x
`,
			wantErr: "unknown assertion type",
		},
		{
			name: "trace_order without events",
			yaml: `
name: s
components: components.cue
dataset: {name: comet, version: v1, rows: []}
flow: [{rerender: "*"}]
assertions:
  - type: trace_order
`,
			wantErr: "events list is required",
		},
		{
			name: "unknown field rejected",
			yaml: `
name: s
components: components.cue
datset: {name: comet, version: v1, rows: []}
flow: [{rerender: "*"}]
`,
			wantErr: "not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, tt.yaml)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_FileMissing(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario file")
}

func TestLoadScenario_ComponentsFileMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	body := `
name: s
components: missing.cue
dataset: {name: comet, version: v1, rows: []}
flow: [{rerender: "*"}]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "components file not found")
}
