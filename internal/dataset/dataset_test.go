package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omicsview/insight/internal/frame"
)

const psmCSV = `id_idx,scan_id,sequence,rt,mz,score
0,1201,PEPTIDER,100.5,450.22,0.01
1,1202,SEQVENCEK,101.2,512.8,0.5
2,1203,,102.0,388.1,0.9
`

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "comet.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVFile_ParsesTypedCells(t *testing.T) {
	p := OpenCSV("comet", writeCSV(t, psmCSV))

	rows, err := p.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, frame.Int(0), rows[0]["id_idx"])
	assert.Equal(t, frame.Int(1201), rows[0]["scan_id"])
	assert.Equal(t, frame.String("PEPTIDER"), rows[0]["sequence"])
	assert.Equal(t, frame.Float(100.5), rows[0]["rt"])
	assert.Equal(t, frame.Float(0.01), rows[0]["score"])
	assert.Equal(t, frame.Null{}, rows[2]["sequence"], "empty cell parses as null")

	assert.Equal(t, []string{"id_idx", "scan_id", "sequence", "rt", "mz", "score"}, p.Columns())
}

func TestCSVFile_ReloadBumpsVersion(t *testing.T) {
	path := writeCSV(t, psmCSV)
	p := OpenCSV("comet", path)

	_, err := p.Rows(context.Background())
	require.NoError(t, err)
	v1 := p.Version()

	require.NoError(t, os.WriteFile(path, []byte(psmCSV+"3,1204,NEWPEP,103.0,400.0,0.2\n"), 0o644))
	require.NoError(t, p.Reload())

	assert.NotEqual(t, v1, p.Version(), "reload must bump the version token")

	rows, err := p.Rows(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestCSVFile_MissingFile(t *testing.T) {
	p := OpenCSV("gone", filepath.Join(t.TempDir(), "nope.csv"))
	_, err := p.Rows(context.Background())
	assert.Error(t, err)
}

func TestCSVFile_WatchReloadsOnRewrite(t *testing.T) {
	path := writeCSV(t, psmCSV)
	p := OpenCSV("comet", path)

	_, err := p.Rows(context.Background())
	require.NoError(t, err)
	v1 := p.Version()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop, err := p.Watch(ctx, nil)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte(psmCSV), 0o644))

	require.Eventually(t, func() bool {
		return p.Version() != v1
	}, 2*time.Second, 10*time.Millisecond, "watcher should bump version after rewrite")
}

func TestMemory_ReplaceBumpsVersion(t *testing.T) {
	m := NewMemory("mem", []string{"id_idx"}, []frame.Row{{"id_idx": frame.Int(1)}})
	v1 := m.Version()

	m.Replace([]frame.Row{{"id_idx": frame.Int(2)}})
	assert.NotEqual(t, v1, m.Version())

	rows, err := m.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, frame.Int(2), rows[0]["id_idx"])
}

func TestMemory_RowsCopies(t *testing.T) {
	m := NewMemory("mem", nil, []frame.Row{{"a": frame.Int(1)}})

	rows, err := m.Rows(context.Background())
	require.NoError(t, err)
	rows[0] = frame.Row{"a": frame.Int(99)}

	again, err := m.Rows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, frame.Int(1), again[0]["a"], "callers must not mutate provider state")
}

func TestMemory_ContextCancelled(t *testing.T) {
	m := NewMemory("mem", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Rows(ctx)
	assert.Error(t, err)
}
