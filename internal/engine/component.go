package engine

import (
	"github.com/omicsview/insight/internal/frame"
	"github.com/omicsview/insight/internal/view"
)

// Effect is the visible-side contract a component adapter implements.
//
// The scheduler calls these from its single-writer loop: implementations
// must not block and must not call back into the scheduler or the
// selection store synchronously.
//
// Highlight marks a row without mutating the materialized row set;
// ClearHighlight removes a previous mark. Render replaces the
// component's displayed rows wholesale with a fresh materialization.
type Effect interface {
	Render(rows []frame.Row)
	Highlight(identifier string, rowIndex int)
	ClearHighlight(identifier string)
}

// Component is one visual widget's registration with the scheduler: its
// closed declaration, the dataset it views, and the effect sink the
// scheduler drives.
type Component struct {
	Config  view.Config
	Dataset string
	Effect  Effect
}

// NopEffect discards all effects. Useful for components that only
// materialize (no interactivity) and in the CLI.
type NopEffect struct{}

func (NopEffect) Render([]frame.Row)    {}
func (NopEffect) Highlight(string, int) {}
func (NopEffect) ClearHighlight(string) {}
