package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/omicsview/insight/internal/cache"
	"github.com/omicsview/insight/internal/frame"
	"github.com/omicsview/insight/internal/query"
	"github.com/omicsview/insight/internal/selection"
	"github.com/omicsview/insight/internal/view"
)

// Scheduler is the single-writer sync loop.
//
// It subscribes once (wildcard) to the selection store, receives cache
// completions through NotifyCompletion, and processes everything in FIFO
// order on one goroutine.
//
// CRITICAL: All component state mutation happens in the Run loop
// goroutine. External callers only enqueue:
//   - selection store callbacks enqueue selection events
//   - the cache notifier enqueues completion events
//   - Rerender enqueues render triggers
//
// INVARIANTS:
//   - Components are iterated in registration order (deterministic
//     logs and traces)
//   - Resolution never runs against a pending (first-phase) result
//   - When several identifiers of one component changed, the one with
//     the highest selection seq is resolved; the choice is never
//     iteration-order dependent
type Scheduler struct {
	store *selection.Store
	cache *cache.Cache
	clock *Clock
	queue *eventQueue

	// Registration order is preserved; byID is a lookup over the same
	// states.
	components []*componentState
	byID       map[string]*componentState
}

// componentState is the per-component sync state.
type componentState struct {
	comp Component
	base cache.Signature

	// filters holds the active filter-mode predicates keyed by
	// identifier. The effective signature appends them in declaration
	// order so equal filter sets hash identically.
	filters map[string]query.Predicate

	// lastResolved remembers the last value successfully resolved (or
	// confirmed not-found) per identifier, so repeated notifications for
	// an unchanged value are idempotent no-ops.
	lastResolved map[string]frame.Value

	// pending is the most recent unresolved highlight change, waiting
	// for confirmed data. A newer change replaces an older one (recency
	// arbitration by selection seq).
	pending *selection.Change

	// active is the change most recently resolved; it is re-resolved
	// once per fresh fingerprint so a newer materialization never keeps
	// a binding computed against an older one.
	active     *selection.Change
	resolvedFp string

	// stale marks a component whose last materialization failed; it
	// keeps showing its last good result.
	stale bool
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock substitutes the logical clock (replay, tests).
func WithClock(c *Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// New creates a Scheduler subscribed to the selection store.
//
// The cache is attached afterwards with BindCache; construct it with the
// scheduler's clock and NotifyCompletion so selection events and
// completions share one seq order:
//
//	sched := engine.New(store)
//	c := cache.New(sched.Clock(), sched.NotifyCompletion)
//	sched.BindCache(c)
func New(store *selection.Store, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store: store,
		clock: NewClock(),
		queue: newEventQueue(),
		byID:  make(map[string]*componentState),
	}
	for _, opt := range opts {
		opt(s)
	}

	// The subscriber runs under the store mutex: enqueue only.
	store.Subscribe(selection.Wildcard, func(ch Change) {
		c := ch
		s.queue.Enqueue(Event{Type: EventTypeSelection, Selection: &c})
	})

	return s
}

// Change aliases the selection store's change record.
type Change = selection.Change

// BindCache attaches the materialization cache. Must be called before
// Register.
func (s *Scheduler) BindCache(c *cache.Cache) {
	s.cache = c
}

// Clock returns the scheduler's logical clock, shared with the cache.
func (s *Scheduler) Clock() *Clock {
	return s.clock
}

// NotifyCompletion is the cache.Notifier: it enqueues the completion for
// the Run loop. Thread-safe: may be called from any goroutine.
func (s *Scheduler) NotifyCompletion(c cache.Completion) {
	comp := c
	s.queue.Enqueue(Event{Type: EventTypeCompletion, Completion: &comp})
}

// Register adds a component. The declaration is normalized and
// validated; the first fetch is enqueued as a rerender event.
//
// CRITICAL: Register before Run. Component state is owned by the Run
// loop goroutine once the loop starts.
func (s *Scheduler) Register(comp Component) error {
	if err := comp.Config.Normalize(); err != nil {
		return newConfigError(comp.Config.Component, err)
	}
	if err := comp.Config.Validate(); err != nil {
		return newConfigError(comp.Config.Component, err)
	}
	if comp.Dataset == "" {
		return newConfigError(comp.Config.Component, fmt.Errorf("dataset reference is required"))
	}
	if comp.Effect == nil {
		comp.Effect = NopEffect{}
	}

	id := comp.Config.Component
	if _, exists := s.byID[id]; exists {
		return newDuplicateError(id)
	}

	st := &componentState{
		comp: comp,
		base: cache.Signature{
			Dataset:       comp.Dataset,
			SortColumn:    comp.Config.SortColumn,
			SortDirection: comp.Config.SortDirection,
			Resolution:    comp.Config.ResolutionTarget,
			XColumn:       comp.Config.XColumn,
			YColumn:       comp.Config.YColumn,
		},
		filters:      make(map[string]query.Predicate),
		lastResolved: make(map[string]frame.Value),
	}
	s.components = append(s.components, st)
	s.byID[id] = st

	slog.Info("component registered",
		"component", id,
		"dataset", comp.Dataset,
		"identifiers", comp.Config.Identifiers(),
	)

	s.queue.Enqueue(Event{Type: EventTypeRerender, ComponentID: id})
	return nil
}

// Rerender enqueues a fresh fetch cycle for one component, or for all
// components when componentID is empty. Thread-safe.
// Returns false if the scheduler has been stopped.
func (s *Scheduler) Rerender(componentID string) bool {
	return s.queue.Enqueue(Event{Type: EventTypeRerender, ComponentID: componentID})
}

// QueueLen returns the number of pending events. Useful for tests and
// for the harness to drain deterministically.
func (s *Scheduler) QueueLen() int {
	return s.queue.Len()
}

// Stale reports whether a component's last materialization failed, so it
// is showing its last good result. Adapters can surface this as a
// staleness indicator. Unknown components report false.
//
// Like Drain, must not be called concurrently with Run.
func (s *Scheduler) Stale(componentID string) bool {
	st, ok := s.byID[componentID]
	return ok && st.stale
}

// Run starts the single-writer loop. Blocks until the context is
// cancelled or Stop is called.
//
// ERROR HANDLING: processing failures are logged with event context and
// the loop continues; retries would make replay non-deterministic.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("scheduler starting")

	for {
		event, ok := s.queue.TryDequeue()
		if ok {
			s.processEvent(ctx, event)
			continue
		}

		// Queue is empty. Closed means no producer can refill it; open
		// means wait for the next wakeup. A stale coalesced token from
		// an already-drained burst just loops back here once.
		if s.queue.Closed() {
			slog.Info("scheduler stopping: queue closed")
			return nil
		}

		select {
		case <-ctx.Done():
			slog.Info("scheduler stopping: context cancelled")
			s.queue.Close()
			return ctx.Err()

		case <-s.queue.Wait():
		}
	}
}

// Stop gracefully shuts down the scheduler; Run returns once the queue
// drains.
func (s *Scheduler) Stop() {
	s.queue.Close()
}

// Drain processes all currently queued events inline, without the Run
// loop. The harness and CLI use it with a synchronous-job cache for
// fully deterministic execution.
//
// CRITICAL: Never call Drain concurrently with Run.
func (s *Scheduler) Drain(ctx context.Context) {
	for {
		event, ok := s.queue.TryDequeue()
		if !ok {
			return
		}
		s.processEvent(ctx, event)
	}
}

// processEvent routes one event. Called only from the loop goroutine.
func (s *Scheduler) processEvent(ctx context.Context, event Event) {
	switch event.Type {
	case EventTypeSelection:
		if event.Selection == nil {
			slog.Error("selection event missing change data")
			return
		}
		s.processSelection(ctx, *event.Selection)

	case EventTypeCompletion:
		if event.Completion == nil {
			slog.Error("completion event missing completion data")
			return
		}
		s.processCompletion(ctx, *event.Completion)

	case EventTypeRerender:
		s.processRerender(ctx, event.ComponentID)

	default:
		slog.Error("unknown event type", "event_type", int(event.Type))
	}
}

// processSelection applies one effective selection change to every
// component that declares the identifier.
func (s *Scheduler) processSelection(ctx context.Context, ch selection.Change) {
	slog.Debug("processing selection change",
		"identifier", ch.Identifier,
		"seq", ch.Seq,
	)

	for _, st := range s.components {
		entry, ok := st.comp.Config.Entry(ch.Identifier)
		if !ok {
			continue
		}

		if entry.Mode == view.ModeFilter {
			s.applyFilter(ctx, st, entry, ch)
			continue
		}

		// Highlight mode. Repeated notifications for a value already
		// resolved are idempotent no-ops.
		if prev, resolved := st.lastResolved[ch.Identifier]; resolved && frame.Equal(prev, ch.Value) {
			slog.Debug("selection already resolved, skipping",
				"component", st.comp.Config.Component,
				"identifier", ch.Identifier,
			)
			continue
		}

		// Recency arbitration: the change with the highest seq wins,
		// independent of declaration or iteration order.
		if st.pending == nil || ch.Seq > st.pending.Seq {
			if st.pending != nil && st.pending.Identifier != ch.Identifier {
				slog.Debug("pending resolution superseded by newer change",
					"component", st.comp.Config.Component,
					"old_identifier", st.pending.Identifier,
					"new_identifier", ch.Identifier,
					"seq", ch.Seq,
				)
			}
			c := ch
			st.pending = &c
		}

		s.fetchAndHandle(ctx, st)
	}
}

// applyFilter recomputes the component's query signature with the
// changed identifier as a row-subsetting predicate and re-fetches. No
// binding is produced in filter mode.
func (s *Scheduler) applyFilter(ctx context.Context, st *componentState, entry view.InteractivityEntry, ch selection.Change) {
	if _, isNull := ch.Value.(frame.Null); isNull {
		delete(st.filters, ch.Identifier)
	} else {
		st.filters[ch.Identifier] = query.Eq(entry.Column, ch.Value)
	}
	st.lastResolved[ch.Identifier] = ch.Value

	slog.Debug("filter predicate updated",
		"component", st.comp.Config.Component,
		"identifier", ch.Identifier,
		"column", entry.Column,
		"seq", ch.Seq,
	)

	s.fetchAndHandle(ctx, st)
}

// signature builds the effective query signature: the base plus active
// filter-mode predicates in declaration order.
func (st *componentState) signature() cache.Signature {
	sig := st.base
	for _, entry := range st.comp.Config.Interactivity {
		if entry.Mode != view.ModeFilter {
			continue
		}
		if p, ok := st.filters[entry.Identifier]; ok {
			sig = sig.WithFilter(p)
		}
	}
	return sig
}

// fetchAndHandle runs the first phase of a fetch and handles whatever
// comes back synchronously. Pending results are deferred to the
// completion path.
func (s *Scheduler) fetchAndHandle(ctx context.Context, st *componentState) {
	res, err := s.cache.Fetch(ctx, st.comp.Config.Component, st.signature())
	if err != nil {
		slog.Error("fetch dispatch failed",
			"component", st.comp.Config.Component,
			"error", err,
		)
		return
	}
	s.handleResult(st, res)
}

// handleResult is the single place resolution decisions are made, shared
// by the synchronous fetch path and the completion path.
func (s *Scheduler) handleResult(st *componentState, res cache.Result) {
	if res.Pending {
		if st.pending != nil {
			slog.Debug("resolution deferred until materialization completes",
				"component", st.comp.Config.Component,
				"identifier", st.pending.Identifier,
				"seq", st.pending.Seq,
			)
		}
		return
	}

	if res.Changed {
		st.comp.Effect.Render(res.Rows)
	}

	switch {
	case st.pending != nil:
		s.resolve(st, *st.pending, res)

	case st.active != nil && res.Fingerprint != st.resolvedFp:
		// A newer materialization arrived with no new selection event:
		// re-resolve so the binding never outlives the result it was
		// computed against. Once per fresh fingerprint, not per frame.
		s.resolve(st, *st.active, res)
	}
}

// processCompletion applies a delivered materialization result.
func (s *Scheduler) processCompletion(ctx context.Context, comp cache.Completion) {
	st, ok := s.byID[comp.ComponentID]
	if !ok {
		slog.Warn("completion for unknown component discarded",
			"component", comp.ComponentID,
			"token", comp.Token,
		)
		return
	}

	if comp.Err != nil {
		st.stale = true
		slog.Error("materialization failed, component keeps last good result",
			"component", comp.ComponentID,
			"token", comp.Token,
			"error", comp.Err,
		)
		return
	}

	// A completion can race a just-changed filter signature in flight;
	// the cache cancels superseded jobs, but an already-delivered
	// completion for an outdated signature must still be discarded here.
	sigHash, err := st.signature().Hash()
	if err == nil && comp.Result.SignatureHash != sigHash {
		slog.Warn("late result for outdated signature discarded",
			"component", comp.ComponentID,
			"token", comp.Token,
		)
		return
	}

	st.stale = false
	s.handleResult(st, comp.Result)
}

// processRerender runs a fetch cycle for the targeted components.
func (s *Scheduler) processRerender(ctx context.Context, componentID string) {
	for _, st := range s.components {
		if componentID != "" && st.comp.Config.Component != componentID {
			continue
		}
		s.fetchAndHandle(ctx, st)
	}
}

// resolve runs the binding resolver against confirmed data and applies
// the visible effect.
func (s *Scheduler) resolve(st *componentState, ch selection.Change, res cache.Result) {
	entry, ok := st.comp.Config.Entry(ch.Identifier)
	if !ok {
		return
	}

	b := ResolveBinding(ch.Identifier, entry.Column, ch.Value, res.Rows)
	if b.Found {
		st.comp.Effect.Highlight(ch.Identifier, b.RowIndex)
		slog.Info("binding resolved",
			"component", st.comp.Config.Component,
			"identifier", ch.Identifier,
			"row_index", b.RowIndex,
			"fingerprint", res.Fingerprint,
			"seq", ch.Seq,
		)
	} else {
		st.comp.Effect.ClearHighlight(ch.Identifier)
		slog.Info("binding not found, highlight cleared",
			"component", st.comp.Config.Component,
			"identifier", ch.Identifier,
			"fingerprint", res.Fingerprint,
			"seq", ch.Seq,
		)
	}

	st.lastResolved[ch.Identifier] = ch.Value
	st.resolvedFp = res.Fingerprint
	c := ch
	st.active = &c
	st.pending = nil
}
