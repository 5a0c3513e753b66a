// Package compiler turns CUE component declarations into validated
// view.Config values.
//
// Declarations are CUE structs under a top-level "component" field:
//
//	component: psm_heatmap: {
//		dataset:           "comet"
//		sort_column:       "score"
//		top_layer:         "low"
//		resolution_target: 2000
//		x_column:          "rt"
//		y_column:          "mz"
//		interactivity: {
//			identification: {column: "id_idx", mode: "highlight"}
//		}
//	}
//
// Compile errors carry CUE source positions so a misdeclared component
// points at the offending line, not at the engine.
package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/omicsview/insight/internal/frame"
	"github.com/omicsview/insight/internal/lod"
	"github.com/omicsview/insight/internal/view"
)

// Declaration is one compiled component: its closed configuration plus
// the dataset it views.
type Declaration struct {
	Config  view.Config
	Dataset string
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileFile loads a CUE file and compiles every component declared in
// it, in declaration order.
func CompileFile(path string) ([]Declaration, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read declarations: %w", err)
	}
	return CompileSource(path, string(src))
}

// CompileSource compiles CUE source text. The filename is used for
// error positions only.
func CompileSource(filename, src string) ([]Declaration, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	root := v.LookupPath(cue.ParsePath("component"))
	if !root.Exists() {
		return nil, &CompileError{
			Field:   "component",
			Message: "no component declarations found",
			Pos:     v.Pos(),
		}
	}

	iter, err := root.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var decls []Declaration
	for iter.Next() {
		decl, err := CompileComponent(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		decls = append(decls, *decl)
	}

	if len(decls) == 0 {
		return nil, &CompileError{
			Field:   "component",
			Message: "at least one component is required",
			Pos:     root.Pos(),
		}
	}
	return decls, nil
}

// CompileComponent parses a single CUE component struct.
// Uses the CUE SDK's Go API directly (not CLI subprocess).
func CompileComponent(name string, v cue.Value) (*Declaration, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	decl := &Declaration{Config: view.Config{Component: name}}

	// dataset (required)
	dataset, err := requiredString(v, "dataset")
	if err != nil {
		return nil, err
	}
	decl.Dataset = dataset

	// sort_column (required)
	decl.Config.SortColumn, err = requiredString(v, "sort_column")
	if err != nil {
		return nil, err
	}

	// sort_direction and top_layer are alternative spellings; Normalize
	// rejects declaring both.
	if dirVal := v.LookupPath(cue.ParsePath("sort_direction")); dirVal.Exists() {
		s, err := dirVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		dir, err := frame.ParseDirection(s)
		if err != nil {
			return nil, &CompileError{Field: "sort_direction", Message: err.Error(), Pos: dirVal.Pos()}
		}
		decl.Config.SortDirection = dir
	}
	if layerVal := v.LookupPath(cue.ParsePath("top_layer")); layerVal.Exists() {
		s, err := layerVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		decl.Config.TopLayer = lod.TopLayer(s)
	}

	// resolution_target + axes (optional; tabular components omit them)
	if resVal := v.LookupPath(cue.ParsePath("resolution_target")); resVal.Exists() {
		n, err := resVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		decl.Config.ResolutionTarget = int(n)
	}
	if xVal := v.LookupPath(cue.ParsePath("x_column")); xVal.Exists() {
		if decl.Config.XColumn, err = xVal.String(); err != nil {
			return nil, formatCUEError(err)
		}
	}
	if yVal := v.LookupPath(cue.ParsePath("y_column")); yVal.Exists() {
		if decl.Config.YColumn, err = yVal.String(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	// interactivity (optional) - declaration order is preserved
	if err := parseInteractivity(v, decl); err != nil {
		return nil, err
	}

	if err := decl.Config.Normalize(); err != nil {
		return nil, &CompileError{Field: name, Message: err.Error(), Pos: v.Pos()}
	}
	if err := decl.Config.Validate(); err != nil {
		return nil, &CompileError{Field: name, Message: err.Error(), Pos: v.Pos()}
	}
	return decl, nil
}

func parseInteractivity(v cue.Value, decl *Declaration) error {
	interVal := v.LookupPath(cue.ParsePath("interactivity"))
	if !interVal.Exists() {
		return nil
	}

	iter, err := interVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}

	for iter.Next() {
		identifier := iter.Label()
		entryVal := iter.Value()

		column, err := entryVal.LookupPath(cue.ParsePath("column")).String()
		if err != nil {
			return &CompileError{
				Field:   fmt.Sprintf("interactivity.%s.column", identifier),
				Message: "column is required",
				Pos:     entryVal.Pos(),
			}
		}

		modeStr, err := entryVal.LookupPath(cue.ParsePath("mode")).String()
		if err != nil {
			return &CompileError{
				Field:   fmt.Sprintf("interactivity.%s.mode", identifier),
				Message: "mode is required",
				Pos:     entryVal.Pos(),
			}
		}
		mode, err := view.ParseMode(modeStr)
		if err != nil {
			return &CompileError{
				Field:   fmt.Sprintf("interactivity.%s.mode", identifier),
				Message: err.Error(),
				Pos:     entryVal.Pos(),
			}
		}

		decl.Config.Interactivity = append(decl.Config.Interactivity, view.InteractivityEntry{
			Identifier: identifier,
			Column:     column,
			Mode:       mode,
		})
	}
	return nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fieldVal := v.LookupPath(cue.ParsePath(field))
	if !fieldVal.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fieldVal.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
