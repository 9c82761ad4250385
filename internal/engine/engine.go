package engine

import (
	"log/slog"
	"sync"
	"time"

	"fodinha-client/internal/protocol"
)

// Emitter is the transport surface the engine needs: fire one action frame.
// Implemented by transport.Adapter (production) and testutil.Emitter (tests).
type Emitter interface {
	Emit(event string, payload any, ack func(protocol.Ack)) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock injects the time source for pending-action and error timestamps.
// Tests use a fixed clock for deterministic snapshots.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithNotifyInterval sets the minimum interval between throttled subscriber
// notifications. Zero disables throttling. Default: ~30 per second.
func WithNotifyInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval = d }
}

type subscriber struct {
	id int
	fn func(GameView)
}

// Engine is the synchronization engine. Construct one per connection at the
// composition root; there are no process-wide singletons and independent
// instances share nothing.
type Engine struct {
	mu    sync.Mutex
	state GameView

	// pubMu serializes snapshot delivery so subscribers observe transitions
	// in mutation order. Always locked before mu is released.
	pubMu sync.Mutex

	emitter  Emitter
	log      *slog.Logger
	now      func() time.Time
	interval time.Duration

	subMu    sync.Mutex
	nextSub  int
	subs     []subscriber
	critical []subscriber
	notifier *notifier
}

// New creates an Engine with the all-default initial GameView.
func New(emitter Emitter, opts ...Option) *Engine {
	e := &Engine{
		state:    NewGameView(),
		emitter:  emitter,
		log:      slog.Default(),
		now:      time.Now,
		interval: time.Second / 30,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.notifier = newNotifier(e.interval, e.fanOut)
	return e
}

// GetState returns a deep-copied snapshot of the current GameView.
func (e *Engine) GetState() GameView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// SetState applies a mutation to the GameView and notifies subscribers.
// The bounded histories are re-truncated after every mutation, so no caller
// can leave them over their limits.
func (e *Engine) SetState(fn func(*GameView)) {
	e.mu.Lock()
	fn(&e.state)
	e.state.enforceBounds()
	e.publishOrdered(e.state.Clone())
}

// Reset forces the GameView back to defaults and notifies. The reset is
// always wholesale, never partial.
func (e *Engine) Reset() {
	e.SetState(func(v *GameView) {
		*v = NewGameView()
	})
}

// Subscribe registers a throttled listener invoked with the full GameView on
// every state change (coalesced under load, latest state always delivered).
// The returned function unregisters it.
func (e *Engine) Subscribe(fn func(GameView)) func() {
	return e.addSubscriber(&e.subs, fn)
}

// SubscribeCritical registers an unthrottled listener with synchronous
// delivery on every change, in mutation order. Meant for cross-cutting
// bookkeeping that must not miss a transition, not for rendering. Callbacks
// get the snapshot as an argument and must not call back into the engine.
func (e *Engine) SubscribeCritical(fn func(GameView)) func() {
	return e.addSubscriber(&e.critical, fn)
}

func (e *Engine) addSubscriber(list *[]subscriber, fn func(GameView)) func() {
	e.subMu.Lock()
	e.nextSub++
	id := e.nextSub
	*list = append(*list, subscriber{id: id, fn: fn})
	e.subMu.Unlock()

	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		ls := *list
		for i, s := range ls {
			if s.id == id {
				*list = append(ls[:i:i], ls[i+1:]...)
				return
			}
		}
	}
}

// Close stops the coalescing timer. The engine is not usable afterwards.
func (e *Engine) Close() {
	e.notifier.stop()
}

// publishOrdered releases e.mu only after claiming the publish slot, so two
// racing mutations cannot deliver their snapshots in swapped order. The
// caller holds e.mu.
func (e *Engine) publishOrdered(snapshot GameView) {
	e.pubMu.Lock()
	e.mu.Unlock()
	defer e.pubMu.Unlock()
	e.publish(snapshot)
}

// publish delivers a snapshot: critical sinks synchronously, ordinary
// subscribers through the throttle.
func (e *Engine) publish(snapshot GameView) {
	e.subMu.Lock()
	critical := append([]subscriber(nil), e.critical...)
	e.subMu.Unlock()

	for _, s := range critical {
		e.invoke(s, snapshot)
	}
	e.notifier.publish(snapshot)
}

// fanOut is the throttled delivery sink.
func (e *Engine) fanOut(snapshot GameView) {
	e.subMu.Lock()
	subs := append([]subscriber(nil), e.subs...)
	e.subMu.Unlock()

	for _, s := range subs {
		e.invoke(s, snapshot)
	}
}

// invoke shields the engine from a panicking subscriber: the panic is logged
// and the remaining subscribers still run.
func (e *Engine) invoke(s subscriber, snapshot GameView) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("subscriber panicked", "panic", r)
		}
	}()
	s.fn(snapshot.Clone())
}
