package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omicsview/insight/internal/frame"
	"github.com/omicsview/insight/internal/view"
)

const declSrc = `
component: psm_table: {
	dataset:        "comet"
	sort_column:    "score"
	sort_direction: "asc"
	interactivity: {
		identification: {column: "id_idx", mode: "highlight"}
		spectrum: {column: "scan_id", mode: "filter"}
	}
}

component: psm_heatmap: {
	dataset:           "comet"
	sort_column:       "score"
	top_layer:         "low"
	resolution_target: 2000
	x_column:          "rt"
	y_column:          "mz"
	interactivity: {
		identification: {column: "id_idx", mode: "highlight"}
	}
}
`

func TestCompileSource(t *testing.T) {
	decls, err := CompileSource("components.cue", declSrc)
	require.NoError(t, err)
	require.Len(t, decls, 2)

	table := decls[0]
	assert.Equal(t, "psm_table", table.Config.Component)
	assert.Equal(t, "comet", table.Dataset)
	assert.Equal(t, "score", table.Config.SortColumn)
	assert.Equal(t, frame.Asc, table.Config.SortDirection)
	assert.Zero(t, table.Config.ResolutionTarget)
	require.Len(t, table.Config.Interactivity, 2)
	assert.Equal(t, view.InteractivityEntry{
		Identifier: "identification", Column: "id_idx", Mode: view.ModeHighlight,
	}, table.Config.Interactivity[0])
	assert.Equal(t, view.ModeFilter, table.Config.Interactivity[1].Mode)

	heatmap := decls[1]
	assert.Equal(t, "psm_heatmap", heatmap.Config.Component)
	// top_layer "low" normalizes to ascending priority.
	assert.Equal(t, frame.Asc, heatmap.Config.SortDirection)
	assert.Empty(t, heatmap.Config.TopLayer)
	assert.Equal(t, 2000, heatmap.Config.ResolutionTarget)
	assert.Equal(t, "rt", heatmap.Config.XColumn)
}

func TestCompileSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "missing dataset",
			src:     `component: c: {sort_column: "score", sort_direction: "asc"}`,
			wantErr: "dataset is required",
		},
		{
			name:    "missing sort column",
			src:     `component: c: {dataset: "d", sort_direction: "asc"}`,
			wantErr: "sort_column is required",
		},
		{
			name:    "invalid direction",
			src:     `component: c: {dataset: "d", sort_column: "s", sort_direction: "sideways"}`,
			wantErr: "sort_direction",
		},
		{
			name: "top layer and direction both set",
			src: `component: c: {
				dataset: "d", sort_column: "s",
				sort_direction: "asc", top_layer: "low",
			}`,
			wantErr: "mutually exclusive",
		},
		{
			name: "invalid mode",
			src: `component: c: {
				dataset: "d", sort_column: "s", sort_direction: "asc"
				interactivity: i: {column: "x", mode: "tooltip"}
			}`,
			wantErr: "mode",
		},
		{
			name: "resolution without axes",
			src: `component: c: {
				dataset: "d", sort_column: "s", sort_direction: "asc"
				resolution_target: 100
			}`,
			wantErr: "x_column and y_column are required",
		},
		{
			name:    "no components",
			src:     `other: {}`,
			wantErr: "no component declarations",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileSource("test.cue", tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompileError_CarriesPosition(t *testing.T) {
	src := strings.TrimSpace(`
component: c: {
	dataset: "d"
	sort_column: "s"
	sort_direction: 42
}
`)
	_, err := CompileSource("bad.cue", src)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Pos.IsValid(), "compile errors must carry CUE positions")
	assert.Contains(t, err.Error(), "bad.cue")
}

func TestCompileSource_SyntaxError(t *testing.T) {
	_, err := CompileSource("broken.cue", `component: { unterminated`)
	require.Error(t, err)
}
