// Package engine implements the client-side synchronization engine: the one
// mutable GameView, the reducers that fold authoritative server events into
// it, and the optimistic-action protocol for the two player-initiated moves
// (bid, play-card).
//
// ARCHITECTURE:
//
// Single-writer state:
// The GameView is owned exclusively by the Engine. Inbound events arrive from
// the transport's read pump, one at a time; user actions arrive from the
// presentation goroutine. A mutex serializes the two, so every mutation runs
// to completion before the next one starts and reducers never overlap.
// Callers only ever see deep copies.
//
// Reducer contract:
// Each reducer maps (previous GameView, event payload) to the next GameView.
// Missing or malformed payload fields keep the previous value; reducers never
// panic and there is no unhandled-error path inside them. Two events writing
// the same field resolve by last-reducer-wins.
//
// Optimistic protocol:
// submit -> pending -> confirm (no-op, state already matches) or rollback.
// The pre-action value needed for exact rollback is recorded at submit time
// (for a played card, its original hand index). The action_error reducer is
// the single rollback path; action_sync idempotently clears an already
// confirmed pending slot.
//
// Notification:
// Subscribers receive the full GameView after every change. Ordinary
// subscribers are throttled (coalescing, the latest state is always delivered
// eventually); critical subscribers get synchronous, unthrottled delivery in
// mutation order, so no transition is dropped or reordered from their
// perspective. A panicking subscriber neither corrupts engine state nor
// blocks the others.
package engine
