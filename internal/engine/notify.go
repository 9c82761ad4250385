package engine

import (
	"sync"
	"time"
)

// notifier rate-limits subscriber fan-out. Deliveries are coalesced: when a
// change arrives inside the minimum interval, only the latest state is held
// and a timer flushes it once the interval elapses. Nothing is permanently
// dropped; the final state always reaches the sink.
type notifier struct {
	interval time.Duration
	deliver  func(GameView)

	mu     sync.Mutex
	last   time.Time
	latest *GameView
	timer  *time.Timer
}

func newNotifier(interval time.Duration, deliver func(GameView)) *notifier {
	return &notifier{interval: interval, deliver: deliver}
}

// publish hands a state snapshot to the sink, immediately if the rate cap
// allows, otherwise via the coalescing timer.
func (n *notifier) publish(s GameView) {
	n.mu.Lock()
	now := time.Now()
	if n.interval <= 0 || now.Sub(n.last) >= n.interval {
		n.last = now
		n.latest = nil
		n.mu.Unlock()
		n.deliver(s)
		return
	}
	n.latest = &s
	if n.timer == nil {
		wait := n.interval - now.Sub(n.last)
		n.timer = time.AfterFunc(wait, n.flush)
	}
	n.mu.Unlock()
}

func (n *notifier) flush() {
	n.mu.Lock()
	s := n.latest
	n.latest = nil
	n.timer = nil
	n.last = time.Now()
	n.mu.Unlock()
	if s != nil {
		n.deliver(*s)
	}
}

// stop cancels a scheduled flush. Used on Close; a pending state may be
// discarded at that point since the engine is going away.
func (n *notifier) stop() {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.latest = nil
	n.mu.Unlock()
}
