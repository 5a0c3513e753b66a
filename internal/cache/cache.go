// Package cache implements the two-phase materialization cache.
//
// fetch() NEVER blocks on materialization work. When a component's entry
// is missing, its query signature changed, or the dataset version
// advanced, a job is started and fetch returns immediately with the
// previous result (or an explicit empty result) and changed=false. Once
// the job completes, the fresh result is delivered through the
// completion notifier with changed=true. Consumers must never assume a
// single fetch yields final data.
//
// INVARIANTS:
//   - At most one in-flight job per component; a new signature or
//     version supersedes and cancels the old job (last request wins)
//   - Results of a superseded job arriving late are discarded and
//     logged, never applied
//   - Fingerprints are content-addressed: semantically equal results
//     fingerprint identically even when recomputed independently
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/omicsview/insight/internal/dataset"
	"github.com/omicsview/insight/internal/frame"
	"github.com/omicsview/insight/internal/lod"
	"github.com/omicsview/insight/internal/query"
)

// Clock is the logical clock completions are stamped with. The engine
// shares one clock between the cache and the scheduler so completion and
// selection events are globally ordered.
type Clock interface {
	Next() int64
}

// Completion is the second phase of a fetch: the fresh result (or the
// typed failure) for a previously dispatched materialization job.
type Completion struct {
	ComponentID string
	Token       string
	Result      Result
	Err         error
}

// Notifier receives completions. The scheduler's notifier only enqueues
// an event; notifiers must not call back into the cache synchronously.
type Notifier func(Completion)

// Option configures a Cache.
type Option func(*Cache)

// WithStore attaches a persistent store. Disk hits serve fetches across
// process restarts; completed jobs are written through.
func WithStore(s *Store) Option {
	return func(c *Cache) { c.store = s }
}

// WithTokenGenerator overrides the job token generator (tests).
func WithTokenGenerator(g TokenGenerator) Option {
	return func(c *Cache) { c.tokens = g }
}

// WithSynchronousJobs runs materialization jobs inline instead of on a
// goroutine. Used by the harness and CLI for deterministic execution:
// the completion is delivered (to the notifier) before fetch returns.
func WithSynchronousJobs() Option {
	return func(c *Cache) { c.run = func(fn func()) { fn() } }
}

// Cache materializes per-component views of versioned datasets.
type Cache struct {
	mu        sync.Mutex
	providers map[string]dataset.Provider
	entries   map[string]*entry
	inflight  map[string]*job

	store  *Store
	clock  Clock
	tokens TokenGenerator
	notify Notifier
	run    func(func())
}

type entry struct {
	sigHash     string
	version     string
	fingerprint string
	rows        []frame.Row
	seq         int64

	// deliveredFp tracks the fingerprint last handed to the component,
	// so changed is computed relative to the previous call with the
	// same component identity.
	deliveredFp string
}

type job struct {
	componentID string
	sig         Signature
	sigHash     string
	version     string
	token       string
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a Cache. The notifier may be nil (completions then only
// update cache state; the next fetch observes them).
func New(clock Clock, notify Notifier, opts ...Option) *Cache {
	c := &Cache{
		providers: make(map[string]dataset.Provider),
		entries:   make(map[string]*entry),
		inflight:  make(map[string]*job),
		clock:     clock,
		tokens:    UUIDv7Generator{},
		notify:    notify,
		run:       func(fn func()) { go fn() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterProvider makes a dataset available to fetches by name.
func (c *Cache) RegisterProvider(p dataset.Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[p.Name()] = p
}

// Fetch implements the two-phase contract. It returns immediately: either
// the valid cached result (changed reflects whether it differs from the
// previous delivery), or - with a job dispatched - the previous result or
// an explicit empty result with changed=false.
//
// Errors are returned only for synchronous misconfiguration (unknown
// dataset, unhashable signature). Materialization failures arrive through
// the notifier as a typed MaterializeError.
func (c *Cache) Fetch(ctx context.Context, componentID string, sig Signature) (Result, error) {
	sigHash, err := sig.Hash()
	if err != nil {
		return Result{}, err
	}

	c.mu.Lock()

	p, ok := c.providers[sig.Dataset]
	if !ok {
		c.mu.Unlock()
		return Result{}, fmt.Errorf("fetch %s: unknown dataset %q", componentID, sig.Dataset)
	}
	version := p.Version()

	e := c.entries[componentID]
	if e != nil && e.sigHash == sigHash && e.version == version {
		res := c.resultLocked(e, true)
		c.mu.Unlock()
		return res, nil
	}

	// Memory miss: a reopened persistent store may already hold this
	// exact materialization at the current dataset version.
	if e == nil && c.store != nil {
		if pe, found, err := c.store.Get(ctx, componentID, sigHash); err != nil {
			slog.Warn("cache store read failed",
				"component", componentID,
				"error", err,
			)
		} else if found && pe.DatasetVersion == version {
			e = &entry{
				sigHash:     pe.SignatureHash,
				version:     pe.DatasetVersion,
				fingerprint: pe.Fingerprint,
				rows:        pe.Rows,
				seq:         pe.Seq,
			}
			c.entries[componentID] = e
			slog.Debug("cache warmed from store",
				"component", componentID,
				"fingerprint", pe.Fingerprint,
			)
			res := c.resultLocked(e, true)
			c.mu.Unlock()
			return res, nil
		}
	}

	// A materialization job is needed.
	if j := c.inflight[componentID]; j != nil {
		if j.sigHash == sigHash && j.version == version {
			// Same request already running; first phase again.
			res := c.staleLocked(componentID, sigHash)
			c.mu.Unlock()
			return res, nil
		}
		// Last request wins: cancel the stale in-flight job.
		j.cancel()
		delete(c.inflight, componentID)
		slog.Debug("materialization superseded",
			"component", componentID,
			"old_token", j.token,
		)
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	j := &job{
		componentID: componentID,
		sig:         sig,
		sigHash:     sigHash,
		version:     version,
		token:       c.tokens.Generate(),
		ctx:         jobCtx,
		cancel:      cancel,
	}
	c.inflight[componentID] = j

	slog.Debug("materialization dispatched",
		"component", componentID,
		"token", j.token,
		"dataset", sig.Dataset,
		"dataset_version", version,
	)

	res := c.staleLocked(componentID, sigHash)
	c.mu.Unlock()

	c.run(func() { c.execute(j, p) })
	return res, nil
}

// resultLocked builds the Result for a valid entry. When delivered is
// true the entry's delivery tracking advances, which is what computes
// the changed flag for this component identity.
func (c *Cache) resultLocked(e *entry, delivered bool) Result {
	changed := e.fingerprint != e.deliveredFp
	if delivered {
		e.deliveredFp = e.fingerprint
	}
	return Result{
		Rows:           e.rows,
		Fingerprint:    e.fingerprint,
		Changed:        changed,
		SignatureHash:  e.sigHash,
		DatasetVersion: e.version,
		Seq:            e.seq,
	}
}

// staleLocked is the first-phase return: previous result if any, else an
// explicit empty result. Always changed=false.
func (c *Cache) staleLocked(componentID, sigHash string) Result {
	if e := c.entries[componentID]; e != nil {
		return Result{
			Rows:           e.rows,
			Fingerprint:    e.fingerprint,
			Changed:        false,
			SignatureHash:  e.sigHash,
			DatasetVersion: e.version,
			Pending:        true,
			Seq:            e.seq,
		}
	}
	return Empty(sigHash)
}

// execute runs one materialization job to completion.
func (c *Cache) execute(j *job, p dataset.Provider) {
	rows, err := Materialize(j.ctx, p, j.sig)
	if err != nil {
		c.complete(j, nil, "", err)
		return
	}

	fp, err := frame.Fingerprint(len(rows), j.sig.SortColumn, j.sig.SortDirection, j.sig.Resolution, j.version)
	if err != nil {
		c.complete(j, nil, "", err)
		return
	}

	c.complete(j, rows, fp, nil)
}

// complete applies a finished job's outcome, discarding it when the job
// was superseded or canceled in flight.
func (c *Cache) complete(j *job, rows []frame.Row, fp string, jobErr error) {
	c.mu.Lock()

	if c.inflight[j.componentID] != j {
		c.mu.Unlock()
		slog.Warn("late result for superseded job discarded",
			"component", j.componentID,
			"token", j.token,
		)
		return
	}
	delete(c.inflight, j.componentID)

	if j.ctx.Err() != nil {
		c.mu.Unlock()
		slog.Warn("result for canceled job discarded",
			"component", j.componentID,
			"token", j.token,
		)
		return
	}

	if jobErr != nil {
		c.mu.Unlock()
		me := &MaterializeError{
			ComponentID:   j.componentID,
			SignatureHash: j.sigHash,
			Dataset:       j.sig.Dataset,
			Err:           jobErr,
		}
		slog.Error("materialization failed",
			"component", j.componentID,
			"token", j.token,
			"dataset", j.sig.Dataset,
			"error", jobErr,
		)
		if c.notify != nil {
			c.notify(Completion{ComponentID: j.componentID, Token: j.token, Err: me})
		}
		return
	}

	seq := c.clock.Next()
	e := &entry{
		sigHash:     j.sigHash,
		version:     j.version,
		fingerprint: fp,
		rows:        rows,
		seq:         seq,
		deliveredFp: fp, // the completion below is the delivery
	}
	c.entries[j.componentID] = e

	if c.store != nil {
		ctx := context.Background()
		if err := c.store.Put(ctx, Entry{
			ComponentID:    j.componentID,
			SignatureHash:  j.sigHash,
			Fingerprint:    fp,
			Dataset:        j.sig.Dataset,
			DatasetVersion: j.version,
			Rows:           rows,
			Seq:            seq,
		}); err != nil {
			slog.Warn("cache store write failed",
				"component", j.componentID,
				"error", err,
			)
		} else if _, err := c.store.Prune(ctx, j.componentID, j.sigHash); err != nil {
			slog.Warn("cache store prune failed",
				"component", j.componentID,
				"error", err,
			)
		}
	}

	res := Result{
		Rows:           rows,
		Fingerprint:    fp,
		Changed:        true,
		SignatureHash:  j.sigHash,
		DatasetVersion: j.version,
		Seq:            seq,
	}
	c.mu.Unlock()

	slog.Info("materialization complete",
		"component", j.componentID,
		"token", j.token,
		"rows", len(rows),
		"fingerprint", fp,
		"seq", seq,
	)

	if c.notify != nil {
		c.notify(Completion{ComponentID: j.componentID, Token: j.token, Result: res})
	}
}

// Materialize produces the concrete row set for a signature: list rows
// at the current version, apply filters, then either LOD-reduce (sort by
// priority, bin, reverse for render order) or plain-sort for tabular
// components.
func Materialize(ctx context.Context, p dataset.Provider, sig Signature) ([]frame.Row, error) {
	rows, err := p.Rows(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows = query.Filter(rows, sig.Filters)

	if sig.Resolution > 0 && sig.XColumn != "" && sig.YColumn != "" {
		return lod.Downsample(rows, lod.Options{
			OrderColumn:    sig.SortColumn,
			OrderDirection: sig.SortDirection,
			XColumn:        sig.XColumn,
			YColumn:        sig.YColumn,
			TargetCount:    sig.Resolution,
		})
	}

	sorted := make([]frame.Row, len(rows))
	copy(sorted, rows)
	frame.SortRows(sorted, sig.SortColumn, sig.SortDirection)
	return sorted, nil
}
