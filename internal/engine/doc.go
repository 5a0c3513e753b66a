// Package engine implements the sync scheduler: the single-writer event
// loop that keeps every registered visual component consistent with the
// shared selection store.
//
// The scheduler arbitrates when a binding resolution may run. Resolution
// only happens against confirmed materialized data (a valid cache hit or
// a delivered completion), never against the stale first phase of a
// two-phase fetch. When several identifiers of one component changed in
// overlapping flight, the most recent change wins, decided by the
// selection store's sequence numbers rather than map iteration order.
package engine
