package query

import (
	"fmt"
	"strings"

	"github.com/omicsview/insight/internal/frame"
)

// sqlOps maps predicate operators to SQL operators.
// Only != differs in spelling; the rest pass through.
var sqlOps = map[Op]string{
	OpEq: "=",
	OpNe: "<>",
	OpLt: "<",
	OpLe: "<=",
	OpGt: ">",
	OpGe: ">=",
}

// CompileWhere compiles predicates to a parameterized SQL WHERE fragment
// for the persistent cache inspect path.
//
// CRITICAL: All values are parameterized, never interpolated. Column names
// are validated against the allowed set before quoting, since identifiers
// cannot be parameterized.
//
// Returns (fragment, params, error). The fragment is empty when there are
// no predicates.
func CompileWhere(preds []Predicate, allowedColumns []string) (string, []any, error) {
	if len(preds) == 0 {
		return "", nil, nil
	}

	var clauses []string
	var params []any

	for _, p := range preds {
		if err := p.Validate(allowedColumns); err != nil {
			return "", nil, fmt.Errorf("compile where: %w", err)
		}

		sqlOp, ok := sqlOps[p.Op]
		if !ok {
			return "", nil, fmt.Errorf("compile where: no SQL operator for %q", p.Op)
		}

		if _, isNull := p.Value.(frame.Null); isNull {
			switch p.Op {
			case OpEq:
				clauses = append(clauses, fmt.Sprintf("%q IS NULL", p.Column))
			case OpNe:
				clauses = append(clauses, fmt.Sprintf("%q IS NOT NULL", p.Column))
			}
			continue
		}

		clauses = append(clauses, fmt.Sprintf("%q %s ?", p.Column, sqlOp))
		params = append(params, sqlParam(p.Value))
	}

	return strings.Join(clauses, " AND "), params, nil
}

func sqlParam(v frame.Value) any {
	switch val := v.(type) {
	case frame.String:
		return string(val)
	case frame.Int:
		return int64(val)
	case frame.Float:
		return float64(val)
	case frame.Bool:
		return bool(val)
	}
	return nil
}
