// Package dataset defines the dataset provider contract: a lazy,
// re-orderable row source keyed by a version token.
//
// Providers MUST bump their version token whenever the underlying data
// changes. The materialization cache compares version tokens to decide
// whether previously materialized results are still valid; a stale token
// is the only invalidation signal it has.
package dataset

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/omicsview/insight/internal/frame"
)

// Provider is an external collaborator exposing rows to the engine.
type Provider interface {
	// Name identifies the dataset (part of every query signature).
	Name() string

	// Version returns the current dataset version token.
	Version() string

	// Columns lists the column names rows may carry.
	Columns() []string

	// Rows materializes the full row set at the current version.
	Rows(ctx context.Context) ([]frame.Row, error)
}

// NewVersionToken generates a time-sortable UUIDv7 version token.
// Sortability is helpful when eyeballing cache contents, not relied upon
// for ordering - ordering always uses logical clocks.
func NewVersionToken() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Memory is an in-memory Provider for tests and harness scenarios.
//
// Replace swaps the row set and bumps the version token in one step, the
// way a workflow rewrite of a result file would.
type Memory struct {
	mu      sync.Mutex
	name    string
	version string
	columns []string
	rows    []frame.Row
}

// NewMemory creates a Memory provider with an initial row set.
func NewMemory(name string, columns []string, rows []frame.Row) *Memory {
	return &Memory{
		name:    name,
		version: NewVersionToken(),
		columns: columns,
		rows:    rows,
	}
}

// Name implements Provider.
func (m *Memory) Name() string { return m.name }

// Version implements Provider.
func (m *Memory) Version() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// Columns implements Provider.
func (m *Memory) Columns() []string { return m.columns }

// Rows implements Provider.
func (m *Memory) Rows(ctx context.Context) ([]frame.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]frame.Row, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

// Replace swaps the row set and bumps the version token.
func (m *Memory) Replace(rows []frame.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = rows
	m.version = NewVersionToken()
}

// SetVersion overrides the version token. Test helper for deterministic
// fingerprints.
func (m *Memory) SetVersion(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version = v
}
