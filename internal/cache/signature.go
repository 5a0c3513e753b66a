package cache

import (
	"fmt"

	"github.com/omicsview/insight/internal/frame"
	"github.com/omicsview/insight/internal/query"
)

// Signature identifies what a component wants materialized: dataset
// reference, active filters, sort spec, and requested resolution.
//
// The dataset VERSION is deliberately not part of the signature. A
// version advance re-materializes the same signature; the cache entry
// remembers which version it was built from.
type Signature struct {
	Dataset        string
	Filters        []query.Predicate
	SortColumn     string
	SortDirection  frame.Direction
	Resolution     int
	XColumn        string
	YColumn        string
}

// WithFilter returns a copy with one more predicate appended.
// Filter-mode interactivity uses this to inject its equality predicate.
func (s Signature) WithFilter(p query.Predicate) Signature {
	filters := make([]query.Predicate, 0, len(s.Filters)+1)
	filters = append(filters, s.Filters...)
	filters = append(filters, p)
	s.Filters = filters
	return s
}

// Hash computes the content-addressed signature hash. Semantically equal
// signatures hash identically regardless of construction order.
func (s Signature) Hash() (string, error) {
	filters := make([]string, len(s.Filters))
	for i, p := range s.Filters {
		filters[i] = p.String()
	}

	h, err := frame.SignatureHash(map[string]any{
		"dataset":        s.Dataset,
		"filters":        filters,
		"sort_column":    s.SortColumn,
		"sort_direction": string(s.SortDirection),
		"resolution":     s.Resolution,
		"x_column":       s.XColumn,
		"y_column":       s.YColumn,
	})
	if err != nil {
		return "", fmt.Errorf("signature hash: %w", err)
	}
	return h, nil
}

// Result is a materialized row set plus its identity.
//
// Consumers treat Rows as read-only and replace their previous copy
// wholesale on each fresh delivery. Changed reports whether the result
// differs from the previous one delivered to the same component.
type Result struct {
	Rows           []frame.Row
	Fingerprint    string
	Changed        bool
	SignatureHash  string
	DatasetVersion string

	// Pending marks a first-phase return: a job is in flight and the
	// fresh result will arrive through the completion notifier. Pending
	// results carry the previous materialization (or nothing) and must
	// not be resolved against.
	Pending bool

	// Seq is the logical clock stamp of the completion that produced
	// this result (0 for never-materialized empty results).
	Seq int64
}

// Empty returns the explicit empty result handed out before any
// materialization has completed for a component.
func Empty(sigHash string) Result {
	return Result{Rows: []frame.Row{}, SignatureHash: sigHash, Pending: true}
}
