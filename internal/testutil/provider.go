package testutil

import (
	"context"
	"sync"

	"github.com/omicsview/insight/internal/dataset"
	"github.com/omicsview/insight/internal/frame"
)

// GatedProvider wraps a dataset provider whose Rows call blocks until
// Release is called (or the context is canceled). Used to exercise the
// cache's supersede/cancel paths with controllable job timing.
type GatedProvider struct {
	inner *dataset.Memory

	mu   sync.Mutex
	gate chan struct{}
}

// NewGatedProvider creates a gated provider around an in-memory dataset.
// The gate starts open; call Hold to close it.
func NewGatedProvider(name string, columns []string, rows []frame.Row) *GatedProvider {
	return &GatedProvider{inner: dataset.NewMemory(name, columns, rows)}
}

// Hold makes subsequent Rows calls block until Release.
func (g *GatedProvider) Hold() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gate == nil {
		g.gate = make(chan struct{})
	}
}

// Release unblocks all pending and future Rows calls.
func (g *GatedProvider) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gate != nil {
		close(g.gate)
		g.gate = nil
	}
}

// Name implements dataset.Provider.
func (g *GatedProvider) Name() string { return g.inner.Name() }

// Version implements dataset.Provider.
func (g *GatedProvider) Version() string { return g.inner.Version() }

// Columns implements dataset.Provider.
func (g *GatedProvider) Columns() []string { return g.inner.Columns() }

// Rows implements dataset.Provider, honoring the gate.
func (g *GatedProvider) Rows(ctx context.Context) ([]frame.Row, error) {
	g.mu.Lock()
	gate := g.gate
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.inner.Rows(ctx)
}

// Replace swaps rows and bumps the version, like a workflow rewrite.
func (g *GatedProvider) Replace(rows []frame.Row) {
	g.inner.Replace(rows)
}

// SetVersion overrides the version token for deterministic fingerprints.
func (g *GatedProvider) SetVersion(v string) {
	g.inner.SetVersion(v)
}
