// Package testutil provides shared test doubles for the client runtime.
package testutil

import (
	"sync"
	"time"

	"fodinha-client/internal/protocol"
)

// Emission is one recorded Emit call.
type Emission struct {
	Event   string
	Payload any
}

// Emitter records every emitted action instead of writing to a socket.
//
// Implements engine.Emitter. Set Err to make every Emit fail, for exercising
// the engine's emit-failure rollback.
type Emitter struct {
	mu        sync.Mutex
	emissions []Emission

	Err error
}

// Emit records the action. The ack callback is never invoked; tests that
// need acks deliver them through the bus instead.
func (f *Emitter) Emit(event string, payload any, _ func(protocol.Ack)) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emissions = append(f.emissions, Emission{Event: event, Payload: payload})
	return nil
}

// Emissions returns a copy of everything emitted so far.
func (f *Emitter) Emissions() []Emission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Emission(nil), f.emissions...)
}

// Last returns the most recent emission, or (Emission{}, false) when nothing
// was emitted.
func (f *Emitter) Last() (Emission, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.emissions) == 0 {
		return Emission{}, false
	}
	return f.emissions[len(f.emissions)-1], true
}

// FixedClock returns a clock function frozen at a deterministic instant,
// for golden snapshots that embed timestamps.
func FixedClock() func() time.Time {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}
