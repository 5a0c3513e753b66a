// Package selection implements the shared selection store: the single
// source of truth for "what is currently selected" across all linked
// visualization components.
//
// The store is an explicit, injected object - never a singleton. Every
// component receives the same *Store at construction, and the store is the
// only shared mutable resource in the engine. Mutation is a single atomic
// replace-and-notify step under one mutex.
package selection

import (
	"log/slog"
	"sync"

	"github.com/omicsview/insight/internal/frame"
)

// Wildcard subscribes a callback to every identifier.
const Wildcard = "*"

// Change describes one effective selection change.
//
// Seq is a strictly increasing logical sequence number stamped at set()
// time. Consumers use it for recency arbitration - NEVER wall-clock
// timestamps.
type Change struct {
	Identifier string
	Value      frame.Value
	Previous   frame.Value
	Seq        int64
}

// Callback receives effective changes, in the order they were applied.
type Callback func(Change)

// Store holds at most one value per selection identifier.
//
// set() replaces the stored value and notifies subscribers only when the
// new value actually differs (by frame.Equal, including null <-> non-null
// transitions). Notifications are delivered synchronously, in set order,
// to every subscriber: in-order, no-drop delivery.
//
// INVARIANTS:
//   - At most one value per identifier at any time
//   - Each subscriber sees a duplicate-free stream of effective changes
//     with strictly increasing seq numbers
//   - Callbacks run under the store mutex and must not call back into
//     Set/Subscribe (the scheduler's subscriber only enqueues an event)
type Store struct {
	mu     sync.Mutex
	seq    int64
	values map[string]frame.Value

	// subs: identifier (or Wildcard) -> callbacks in subscription order
	subs map[string][]Callback
}

// NewStore creates an empty selection store.
func NewStore() *Store {
	return &Store{
		values: make(map[string]frame.Value),
		subs:   make(map[string][]Callback),
	}
}

// Set replaces the value stored for identifier.
// No-ops (no notification, no seq consumed) if the value is equal to the
// currently stored one. A nil value is normalized to frame.Null.
//
// Setting an identifier no component subscribes to is tolerated: the
// value is stored and there is simply nobody to notify.
func (s *Store) Set(identifier string, value frame.Value) {
	if value == nil {
		value = frame.Null{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.values[identifier]
	if !ok {
		prev = frame.Null{}
	}
	if frame.Equal(prev, value) {
		return
	}

	s.seq++
	s.values[identifier] = value

	ch := Change{
		Identifier: identifier,
		Value:      value,
		Previous:   prev,
		Seq:        s.seq,
	}

	slog.Debug("selection changed",
		"identifier", identifier,
		"seq", ch.Seq,
	)

	// Synchronous fan-out: identifier subscribers first, then wildcard
	// subscribers, each in subscription order.
	for _, cb := range s.subs[identifier] {
		cb(ch)
	}
	for _, cb := range s.subs[Wildcard] {
		cb(ch)
	}
}

// Get returns the current value for identifier, or frame.Null if none was
// ever set.
func (s *Store) Get(identifier string) frame.Value {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.values[identifier]; ok {
		return v
	}
	return frame.Null{}
}

// Subscribe registers a callback for effective changes to identifier.
// Pass Wildcard to receive changes for every identifier.
//
// The callback is invoked exactly once per effective change, in the order
// changes are applied, before the triggering Set returns.
func (s *Store) Subscribe(identifier string, cb Callback) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs[identifier] = append(s.subs[identifier], cb)
}

// Seq returns the sequence number of the most recent effective change.
func (s *Store) Seq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}
