// Package lod implements priority-preserving level-of-detail reduction
// for large point sets.
//
// The reduction is ORDER-SENSITIVE: rows are sorted by the priority
// column BEFORE spatial binning, never after. Binning keeps the earliest
// row per occupied grid cell, so sorting afterwards would destroy the
// priority information the bin-selection step depends on. This is how the
// best-scoring points (numerically lowest, by convention) stay visible
// when overlapping worse points at reduced resolution.
package lod

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/omicsview/insight/internal/frame"
)

// Options configures one downsampling pass.
type Options struct {
	// OrderColumn drives priority. Under Asc, lower values are higher
	// priority; the same column with the same semantics drives color
	// mapping upstream.
	OrderColumn    string
	OrderDirection frame.Direction

	// XColumn and YColumn are the two rendered axes used for binning.
	XColumn string
	YColumn string

	// TargetCount is the approximate output size. The grid cell count is
	// chosen so the expected output is close to it. Zero or negative
	// disables binning (rows are only ordered for rendering).
	TargetCount int
}

// TopLayer selects which end of the order column is drawn last (on top).
type TopLayer string

const (
	// TopLayerLow draws the numerically lowest values on top.
	// The convention for search engine scores where lower is better.
	TopLayerLow TopLayer = "low"
	// TopLayerHigh draws the numerically highest values on top.
	TopLayerHigh TopLayer = "high"
)

// DirectionFor normalizes a top-layer choice to the sort direction
// consumed by Downsample: "draw low on top" means ascending priority.
func DirectionFor(layer TopLayer) (frame.Direction, error) {
	switch layer {
	case TopLayerLow:
		return frame.Asc, nil
	case TopLayerHigh:
		return frame.Desc, nil
	}
	return "", fmt.Errorf("invalid top layer %q: must be %q or %q", layer, TopLayerLow, TopLayerHigh)
}

// Downsample reduces rows to approximately opts.TargetCount points.
//
// Steps:
//  1. Sort by OrderColumn/OrderDirection (highest priority first).
//  2. Partition the coordinate space into a grid sized for TargetCount.
//  3. Keep only the earliest-sorted row per occupied cell.
//  4. Emit survivors in REVERSE priority order, so the highest-priority
//     point is drawn last and occludes everything beneath it.
//
// Rows without numeric coordinates cannot be placed in the grid and are
// dropped. The input slice is not modified.
func Downsample(rows []frame.Row, opts Options) ([]frame.Row, error) {
	if opts.OrderColumn == "" {
		return nil, fmt.Errorf("downsample: order column is required")
	}
	if _, err := frame.ParseDirection(string(opts.OrderDirection)); err != nil {
		return nil, fmt.Errorf("downsample: %w", err)
	}

	sorted := make([]frame.Row, len(rows))
	copy(sorted, rows)
	frame.SortRows(sorted, opts.OrderColumn, opts.OrderDirection)

	kept := sorted
	if opts.TargetCount > 0 && len(sorted) > opts.TargetCount {
		var dropped int
		kept, dropped = binByGrid(sorted, opts)
		if dropped > 0 {
			slog.Debug("downsample dropped unplaceable rows",
				"count", dropped,
				"x_column", opts.XColumn,
				"y_column", opts.YColumn,
			)
		}
	}

	// Render order: lowest priority first, highest priority last. kept
	// is this call's own slice, so reversing in place is safe.
	frame.Reverse(kept)
	return kept, nil
}

// binByGrid keeps the first row (in priority order) for each occupied
// grid cell. Returns survivors in priority order plus the count of rows
// dropped for lacking numeric coordinates.
func binByGrid(sorted []frame.Row, opts Options) ([]frame.Row, int) {
	minX, maxX, minY, maxY, any := bounds(sorted, opts.XColumn, opts.YColumn)
	if !any {
		return nil, len(sorted)
	}

	// cellsPerAxis^2 ~= TargetCount occupied cells in the dense case.
	cellsPerAxis := int(math.Ceil(math.Sqrt(float64(opts.TargetCount))))
	if cellsPerAxis < 1 {
		cellsPerAxis = 1
	}

	type cellKey struct{ cx, cy int }
	seen := make(map[cellKey]bool, opts.TargetCount)

	var kept []frame.Row
	var dropped int
	for _, row := range sorted {
		x, okX := frame.AsFloat(row[opts.XColumn])
		y, okY := frame.AsFloat(row[opts.YColumn])
		if !okX || !okY {
			dropped++
			continue
		}

		key := cellKey{
			cx: cellIndex(x, minX, maxX, cellsPerAxis),
			cy: cellIndex(y, minY, maxY, cellsPerAxis),
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, row)
	}
	return kept, dropped
}

// cellIndex maps a coordinate to its grid cell, clamping the max value
// into the last cell.
func cellIndex(v, lo, hi float64, cells int) int {
	if hi <= lo {
		return 0
	}
	idx := int(float64(cells) * (v - lo) / (hi - lo))
	if idx >= cells {
		idx = cells - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

func bounds(rows []frame.Row, xCol, yCol string) (minX, maxX, minY, maxY float64, any bool) {
	for _, row := range rows {
		x, okX := frame.AsFloat(row[xCol])
		y, okY := frame.AsFloat(row[yCol])
		if !okX || !okY {
			continue
		}
		if !any {
			minX, maxX, minY, maxY = x, x, y, y
			any = true
			continue
		}
		minX = math.Min(minX, x)
		maxX = math.Max(maxX, x)
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
	}
	return
}
