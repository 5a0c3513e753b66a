package lod

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omicsview/insight/internal/frame"
)

func point(id int, rt, mz, score float64) frame.Row {
	return frame.Row{
		"id_idx": frame.Int(int64(id)),
		"rt":     frame.Float(rt),
		"mz":     frame.Float(mz),
		"score":  frame.Float(score),
	}
}

func psmOpts(target int, dir frame.Direction) Options {
	return Options{
		OrderColumn:    "score",
		OrderDirection: dir,
		XColumn:        "rt",
		YColumn:        "mz",
		TargetCount:    target,
	}
}

func TestDownsample_OverlappingPointsKeepBestScores(t *testing.T) {
	// Two pairs of overlapping coordinates; asc means lower score wins.
	rows := []frame.Row{
		point(0, 1, 1, 0.01),
		point(1, 1, 1, 0.5),
		point(2, 10, 10, 0.9),
		point(3, 10, 10, 0.2),
	}

	out, err := Downsample(rows, psmOpts(2, frame.Asc))
	require.NoError(t, err)
	require.Len(t, out, 2)

	// Survivors are the two lowest scores; 0.01 is drawn LAST (top layer).
	assert.Equal(t, frame.Float(0.2), out[0]["score"])
	assert.Equal(t, frame.Float(0.01), out[1]["score"])
}

func TestDownsample_ReversedDirectionInvertsSurvivor(t *testing.T) {
	rows := []frame.Row{
		point(0, 1, 1, 0.01),
		point(1, 1, 1, 0.5),
		point(2, 10, 10, 0.9),
		point(3, 10, 10, 0.2),
	}

	out, err := Downsample(rows, psmOpts(2, frame.Desc))
	require.NoError(t, err)
	require.Len(t, out, 2)

	// Under desc, the higher score in each cell survives and 0.9 is on top.
	assert.Equal(t, frame.Float(0.5), out[0]["score"])
	assert.Equal(t, frame.Float(0.9), out[1]["score"])
}

func TestDownsample_AtMostOneRowPerCell(t *testing.T) {
	// 100 points clustered on a 4x4 lattice; target 16 cells.
	var rows []frame.Row
	for i := 0; i < 100; i++ {
		rows = append(rows, point(i, float64(i%4), float64((i/4)%4), float64(i)/100))
	}

	out, err := Downsample(rows, psmOpts(16, frame.Asc))
	require.NoError(t, err)

	assert.LessOrEqual(t, len(out), 16)

	// No two survivors share a lattice position.
	seen := make(map[string]bool)
	for _, row := range out {
		rt, _ := frame.AsFloat(row["rt"])
		mz, _ := frame.AsFloat(row["mz"])
		key := fmt.Sprintf("%v/%v", rt, mz)
		assert.False(t, seen[key], "duplicate cell %s", key)
		seen[key] = true
	}
}

func TestDownsample_HighestPriorityNeverDropped(t *testing.T) {
	var rows []frame.Row
	for i := 0; i < 50; i++ {
		rows = append(rows, point(i, float64(i), float64(i), 1.0-float64(i)*0.01))
	}
	rows = append(rows, point(99, 25, 25, 0.0001)) // global best, overlaps the middle

	out, err := Downsample(rows, psmOpts(10, frame.Asc))
	require.NoError(t, err)
	require.NotEmpty(t, out)

	// The single highest-priority row always survives its cell and is
	// emitted last.
	assert.Equal(t, frame.Int(99), out[len(out)-1]["id_idx"])
}

func TestDownsample_NoReductionStillOrdersForRender(t *testing.T) {
	rows := []frame.Row{
		point(0, 1, 1, 0.5),
		point(1, 2, 2, 0.01),
	}

	out, err := Downsample(rows, psmOpts(100, frame.Asc))
	require.NoError(t, err)
	require.Len(t, out, 2, "target above input size must not drop rows")

	assert.Equal(t, frame.Float(0.5), out[0]["score"])
	assert.Equal(t, frame.Float(0.01), out[1]["score"], "best score drawn last")
}

func TestDownsample_DropsRowsWithoutCoordinates(t *testing.T) {
	rows := []frame.Row{
		point(0, 1, 1, 0.5),
		{"id_idx": frame.Int(1), "score": frame.Float(0.01)}, // no rt/mz
		point(2, 3, 3, 0.2),
		point(3, 4, 4, 0.9),
	}

	out, err := Downsample(rows, psmOpts(3, frame.Asc))
	require.NoError(t, err)
	for _, row := range out {
		assert.NotEqual(t, frame.Int(1), row["id_idx"])
	}
}

func TestDownsample_DegenerateSingleCoordinate(t *testing.T) {
	// All points at the same coordinate collapse to one cell.
	rows := []frame.Row{
		point(0, 5, 5, 0.9),
		point(1, 5, 5, 0.01),
		point(2, 5, 5, 0.5),
	}

	out, err := Downsample(rows, psmOpts(2, frame.Asc))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, frame.Float(0.01), out[0]["score"])
}

func TestDownsample_InvalidOptions(t *testing.T) {
	_, err := Downsample(nil, Options{OrderDirection: frame.Asc})
	assert.Error(t, err, "missing order column")

	_, err = Downsample(nil, Options{OrderColumn: "score", OrderDirection: "sideways"})
	assert.Error(t, err)
}

func TestDirectionFor(t *testing.T) {
	d, err := DirectionFor(TopLayerLow)
	require.NoError(t, err)
	assert.Equal(t, frame.Asc, d)

	d, err = DirectionFor(TopLayerHigh)
	require.NoError(t, err)
	assert.Equal(t, frame.Desc, d)

	_, err = DirectionFor("middle")
	assert.Error(t, err)
}
