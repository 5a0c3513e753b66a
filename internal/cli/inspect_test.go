package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omicsview/insight/internal/frame"
	"github.com/omicsview/insight/internal/query"
)

func TestParsePredicates(t *testing.T) {
	preds, err := parsePredicates([]string{
		"component_id==psm_table",
		"seq>3",
		"row_count<=10",
		"fingerprint!=null",
	})
	require.NoError(t, err)
	require.Len(t, preds, 4)

	assert.Equal(t, query.Predicate{Column: "component_id", Op: query.OpEq, Value: frame.String("psm_table")}, preds[0])
	assert.Equal(t, query.Predicate{Column: "seq", Op: query.OpGt, Value: frame.Int(3)}, preds[1])
	assert.Equal(t, query.Predicate{Column: "row_count", Op: query.OpLe, Value: frame.Int(10)}, preds[2])
	assert.Equal(t, query.Predicate{Column: "fingerprint", Op: query.OpNe, Value: frame.Null{}}, preds[3])
}

func TestParsePredicates_Invalid(t *testing.T) {
	_, err := parsePredicates([]string{"component_id"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid predicate")

	_, err = parsePredicates([]string{"==psm_table"})
	require.Error(t, err)
}

func TestInspect_EmptyStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	buf := &bytes.Buffer{}
	cmd := NewInspectCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "no entries")
}

func TestInspect_UndeclaredColumnRejected(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	buf := &bytes.Buffer{}
	cmd := NewInspectCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--where", "rows_json==x"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
