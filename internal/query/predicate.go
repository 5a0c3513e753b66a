// Package query defines the closed predicate IR used for filter-mode
// row subsetting.
//
// A predicate is a single {column, op, value} comparison. Filter-mode
// interactivity injects an equality predicate (e.g. id_idx == 42) into a
// component's query signature; the CLI inspect path compiles predicates
// to parameterized SQL against the persistent cache.
//
// The set of operators is deliberately closed - no expressions, no
// functions, no OR. Components that need disjunctions declare separate
// identifiers.
package query

import (
	"fmt"

	"github.com/omicsview/insight/internal/frame"
)

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// ParseOp validates an operator string.
func ParseOp(s string) (Op, error) {
	switch Op(s) {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return Op(s), nil
	}
	return "", fmt.Errorf("invalid predicate operator %q", s)
}

// Predicate is one column comparison.
type Predicate struct {
	Column string
	Op     Op
	Value  frame.Value
}

// Eq builds the equality predicate filter mode injects.
func Eq(column string, value frame.Value) Predicate {
	return Predicate{Column: column, Op: OpEq, Value: value}
}

// Validate checks the predicate is well-formed.
// When columns is non-nil, the predicate column must be declared in it.
func (p Predicate) Validate(columns []string) error {
	if p.Column == "" {
		return fmt.Errorf("predicate column is required")
	}
	if _, err := ParseOp(string(p.Op)); err != nil {
		return err
	}
	if p.Value == nil {
		return fmt.Errorf("predicate %s %s: value is required", p.Column, p.Op)
	}
	if _, isNull := p.Value.(frame.Null); isNull && p.Op != OpEq && p.Op != OpNe {
		return fmt.Errorf("predicate %s %s: null only supports == and !=", p.Column, p.Op)
	}
	if columns != nil {
		found := false
		for _, c := range columns {
			if c == p.Column {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("predicate column %q not declared by component", p.Column)
		}
	}
	return nil
}

// Matches reports whether a row satisfies the predicate.
// A row missing the column is treated as holding Null.
func (p Predicate) Matches(row frame.Row) bool {
	v, ok := row[p.Column]
	if !ok {
		v = frame.Null{}
	}

	switch p.Op {
	case OpEq:
		return frame.Equal(v, p.Value)
	case OpNe:
		return !frame.Equal(v, p.Value)
	}

	// Ordering comparisons never match null on either side.
	if _, isNull := v.(frame.Null); isNull {
		return false
	}
	if _, isNull := p.Value.(frame.Null); isNull {
		return false
	}

	c := frame.Compare(v, p.Value)
	switch p.Op {
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	}
	return false
}

// Filter returns the rows satisfying all predicates, preserving order.
func Filter(rows []frame.Row, preds []Predicate) []frame.Row {
	if len(preds) == 0 {
		return rows
	}
	out := make([]frame.Row, 0, len(rows))
	for _, row := range rows {
		keep := true
		for _, p := range preds {
			if !p.Matches(row) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out
}

// String renders the predicate for logs and signature maps.
func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %s", p.Column, p.Op, renderValue(p.Value))
}

func renderValue(v frame.Value) string {
	switch val := v.(type) {
	case frame.Null:
		return "null"
	case frame.String:
		return fmt.Sprintf("%q", string(val))
	case frame.Int:
		return fmt.Sprintf("%d", int64(val))
	case frame.Float:
		return fmt.Sprintf("%g", float64(val))
	case frame.Bool:
		return fmt.Sprintf("%t", bool(val))
	}
	return fmt.Sprintf("%v", v)
}
