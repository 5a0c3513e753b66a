package frame

import (
	"fmt"
	"sort"
)

// Direction is the sort direction for an order column.
type Direction string

const (
	// Asc sorts lower values first. By convention lower values are
	// higher priority when the column drives render order (lower score
	// = better identification).
	Asc Direction = "asc"
	// Desc sorts higher values first.
	Desc Direction = "desc"
)

// ParseDirection validates a direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Asc, Desc:
		return Direction(s), nil
	}
	return "", fmt.Errorf("invalid sort direction %q: must be %q or %q", s, Asc, Desc)
}

// SortRows stably sorts rows in place by the named column.
// Rows missing the column sort as Null (first under asc).
// The sort is stable so input order breaks ties deterministically.
func SortRows(rows []Row, column string, dir Direction) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, ok := rows[i][column]
		if !ok {
			a = Null{}
		}
		b, ok := rows[j][column]
		if !ok {
			b = Null{}
		}
		c := Compare(a, b)
		if dir == Desc {
			return c > 0
		}
		return c < 0
	})
}

// Reverse reverses rows in place.
func Reverse(rows []Row) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
