package engine

import (
	"sync"

	"github.com/omicsview/insight/internal/cache"
	"github.com/omicsview/insight/internal/selection"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeSelection is an effective selection store change.
	EventTypeSelection EventType = iota + 1
	// EventTypeCompletion is a finished materialization job.
	EventTypeCompletion
	// EventTypeRerender asks a component (or all, when the ID is empty)
	// to run a fresh fetch cycle.
	EventTypeRerender
)

// Event wraps the inputs of the scheduler loop.
type Event struct {
	Type       EventType
	Selection  *selection.Change
	Completion *cache.Completion

	// ComponentID targets rerender events. Empty means every component.
	ComponentID string
}

// eventQueue is a thread-safe FIFO queue for scheduler events.
//
// The queue is unbounded so cascading work (a filter-mode re-fetch
// completing while more selection changes queue up) never blocks a
// producer. Producers are the selection store's subscriber callback, the
// cache's completion notifier, and rerender triggers; the scheduler's
// Run loop is the only consumer.
//
// A buffered signal channel of size 1 coalesces wakeups and lets the Run
// loop wait with context awareness.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]

	// Nil out the slot so the Event's pointers become collectable; the
	// underlying array otherwise retains them until reallocation.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
// The channel closes when the queue is closed, waking all waiters.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Closed reports whether Close was called and every queued event has
// been consumed. Emptiness alone never implies closure: the signal
// channel coalesces wakeups, so a drained burst can leave one stale
// token behind.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.events) == 0
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
