// Package view declares the closed configuration surface for visual
// components (table, heatmap/scatter, sequence view, spectrum plot).
//
// The configuration enumerates exactly: sort column, sort direction,
// resolution target, render axes, and the interactivity map. There are no
// open-ended option bags - a component either has a declared knob here or
// it does not have it at all.
package view

import (
	"fmt"

	"github.com/omicsview/insight/internal/frame"
	"github.com/omicsview/insight/internal/lod"
)

// Mode is the interactivity mode of one identifier entry.
//
// Highlight mode must never remove rows; filter mode always subsets.
// The mode is declared, never inferred, and the two are mutually
// exclusive per identifier per component.
type Mode string

const (
	ModeHighlight Mode = "highlight"
	ModeFilter    Mode = "filter"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeHighlight, ModeFilter:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid interactivity mode %q: must be %q or %q", s, ModeHighlight, ModeFilter)
}

// InteractivityEntry maps one selection identifier to the local column a
// component resolves it against.
type InteractivityEntry struct {
	Identifier string
	Column     string
	Mode       Mode
}

// Config is a component's complete, immutable declaration.
//
// Interactivity is ORDERED: the declaration order is preserved for the
// component's lifetime so iteration is deterministic. Recency arbitration
// in the scheduler makes resolution independent of that order, but logs
// and traces stay stable.
type Config struct {
	// Component is the unique component instance ID (e.g. "psm_table").
	Component string

	// SortColumn/SortDirection govern both color mapping and LOD
	// priority; they must share the same semantics ("asc" = lower values
	// are higher priority).
	SortColumn    string
	SortDirection frame.Direction

	// TopLayer optionally expresses direction as "which values end up
	// drawn on top"; Normalize folds it into SortDirection.
	TopLayer lod.TopLayer

	// ResolutionTarget caps approximately how many points survive LOD
	// reduction. Zero disables reduction (tabular components).
	ResolutionTarget int

	// XColumn/YColumn are the rendered axes used for LOD binning.
	// Required when ResolutionTarget > 0.
	XColumn string
	YColumn string

	// Interactivity entries in declaration order.
	Interactivity []InteractivityEntry
}

// Normalize folds the TopLayer knob into SortDirection and clears it.
// A Config with both TopLayer and an explicit SortDirection is rejected -
// callers choose one spelling.
func (c *Config) Normalize() error {
	if c.TopLayer == "" {
		return nil
	}
	if c.SortDirection != "" {
		return fmt.Errorf("component %s: top_layer and sort_direction are mutually exclusive", c.Component)
	}
	dir, err := lod.DirectionFor(c.TopLayer)
	if err != nil {
		return fmt.Errorf("component %s: %w", c.Component, err)
	}
	c.SortDirection = dir
	c.TopLayer = ""
	return nil
}

// Validate checks the declaration is complete and internally consistent.
func (c *Config) Validate() error {
	if c.Component == "" {
		return fmt.Errorf("component id is required")
	}
	if c.SortColumn == "" {
		return fmt.Errorf("component %s: sort_column is required", c.Component)
	}
	if _, err := frame.ParseDirection(string(c.SortDirection)); err != nil {
		return fmt.Errorf("component %s: %w", c.Component, err)
	}
	if c.ResolutionTarget < 0 {
		return fmt.Errorf("component %s: resolution_target must be >= 0", c.Component)
	}
	if c.ResolutionTarget > 0 && (c.XColumn == "" || c.YColumn == "") {
		return fmt.Errorf("component %s: x_column and y_column are required when resolution_target > 0", c.Component)
	}

	seen := make(map[string]bool, len(c.Interactivity))
	for _, entry := range c.Interactivity {
		if entry.Identifier == "" {
			return fmt.Errorf("component %s: interactivity identifier is required", c.Component)
		}
		if entry.Column == "" {
			return fmt.Errorf("component %s: interactivity %q: column is required", c.Component, entry.Identifier)
		}
		if _, err := ParseMode(string(entry.Mode)); err != nil {
			return fmt.Errorf("component %s: interactivity %q: %w", c.Component, entry.Identifier, err)
		}
		if seen[entry.Identifier] {
			return fmt.Errorf("component %s: duplicate interactivity identifier %q", c.Component, entry.Identifier)
		}
		seen[entry.Identifier] = true
	}
	return nil
}

// Entry returns the interactivity entry for an identifier.
func (c *Config) Entry(identifier string) (InteractivityEntry, bool) {
	for _, entry := range c.Interactivity {
		if entry.Identifier == identifier {
			return entry, true
		}
	}
	return InteractivityEntry{}, false
}

// Identifiers returns the declared identifiers in declaration order.
func (c *Config) Identifiers() []string {
	out := make([]string, len(c.Interactivity))
	for i, entry := range c.Interactivity {
		out[i] = entry.Identifier
	}
	return out
}
