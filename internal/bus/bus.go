// Package bus provides the in-process event dispatcher that decouples the
// transport adapter from the synchronization engine.
//
// Dispatch is synchronous and in registration order. Emit iterates a stable
// snapshot of the listener set, so handlers added or removed during a dispatch
// do not affect the pass in flight. A panicking handler never blocks delivery
// to the remaining listeners: the first panic is captured and re-raised after
// the pass completes.
package bus

import (
	"encoding/json"
	"sync"
)

// Handler receives the raw JSON payload of one event.
type Handler func(payload json.RawMessage)

// Subscription identifies one registered handler for removal via Off.
type Subscription struct {
	event string
	id    uint64
}

type listener struct {
	id      uint64
	fn      Handler
	oneShot bool
}

// Bus is a multi-listener event dispatcher.
//
// Thread-safety: registration and emission are safe from any goroutine,
// but the client runtime dispatches all inbound events from the transport's
// single read pump, so handlers never run concurrently with each other.
type Bus struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[string][]listener
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{listeners: make(map[string][]listener)}
}

// On registers a handler for an event type.
func (b *Bus) On(event string, fn Handler) Subscription {
	return b.register(event, fn, false)
}

// Once registers a handler that is removed before its first invocation.
// Removal happens before the call so a handler that re-emits the same event
// cannot fire itself again.
func (b *Bus) Once(event string, fn Handler) Subscription {
	return b.register(event, fn, true)
}

func (b *Bus) register(event string, fn Handler, oneShot bool) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.listeners[event] = append(b.listeners[event], listener{id: b.nextID, fn: fn, oneShot: oneShot})
	return Subscription{event: event, id: b.nextID}
}

// Off removes a previously registered handler. Removing an already-removed
// subscription is a no-op.
func (b *Bus) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remove(sub.event, sub.id)
}

func (b *Bus) remove(event string, id uint64) {
	ls := b.listeners[event]
	for i, l := range ls {
		if l.id == id {
			b.listeners[event] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// Emit delivers payload to every listener registered for event, in
// registration order. One-shot listeners are unregistered first. If any
// handler panics, the first panic value is re-raised after all listeners
// have been invoked.
func (b *Bus) Emit(event string, payload json.RawMessage) {
	b.mu.Lock()
	ls := b.listeners[event]
	snapshot := make([]listener, len(ls))
	copy(snapshot, ls)
	for _, l := range snapshot {
		if l.oneShot {
			b.remove(event, l.id)
		}
	}
	b.mu.Unlock()

	var firstPanic any
	for _, l := range snapshot {
		func() {
			defer func() {
				if r := recover(); r != nil && firstPanic == nil {
					firstPanic = r
				}
			}()
			l.fn(payload)
		}()
	}
	if firstPanic != nil {
		panic(firstPanic)
	}
}

// Len returns the number of listeners registered for event.
func (b *Bus) Len(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[event])
}
