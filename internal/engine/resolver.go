package engine

import "github.com/omicsview/insight/internal/frame"

// Binding is the ephemeral outcome of resolving a selection value inside
// a materialized row set. It is recomputed on every synchronization
// attempt and never persisted.
type Binding struct {
	Identifier string
	RowIndex   int
	Found      bool
}

// ResolveBinding scans rows for the first exact match of value in column
// and returns its index in materialized order.
//
// "Not found" is an expected outcome, not an error: the component's
// current filter or LOD reduction may simply exclude the selected row.
// When the identifier column is not unique the first match in
// materialized order wins; uniqueness is the declaring component's
// contract, not enforced here.
func ResolveBinding(identifier, column string, value frame.Value, rows []frame.Row) Binding {
	if _, isNull := value.(frame.Null); isNull || value == nil {
		return Binding{Identifier: identifier, RowIndex: -1}
	}

	for i, row := range rows {
		cell, ok := row[column]
		if !ok {
			continue
		}
		if frame.Equal(cell, value) {
			return Binding{Identifier: identifier, RowIndex: i, Found: true}
		}
	}
	return Binding{Identifier: identifier, RowIndex: -1}
}
