package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fodinha-client/internal/bus"
	"fodinha-client/internal/protocol"
	"fodinha-client/internal/testutil"
)

// newTestEngine builds an engine with synchronous notification, a fixed
// clock and a recording emitter, bound to a fresh bus.
func newTestEngine(t *testing.T) (*Engine, *testutil.Emitter, *bus.Bus) {
	t.Helper()
	emitter := &testutil.Emitter{}
	e := New(emitter,
		WithClock(testutil.FixedClock()),
		WithNotifyInterval(0))
	t.Cleanup(e.Close)

	b := bus.New()
	e.Bind(b)
	return e, emitter, b
}

func TestNew_InitialState(t *testing.T) {
	e, _, _ := newTestEngine(t)

	v := e.GetState()
	assert.Equal(t, PhaseIdle, v.Phase)
	assert.Empty(t, v.Hand)
	assert.Empty(t, v.Bids)
	assert.Nil(t, v.Pending.Bid)
	assert.Nil(t, v.Pending.Card)
}

func TestGetState_ReturnsIsolatedCopy(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.SetState(func(v *GameView) {
		v.Bids["p1"] = 2
		v.Hand = []protocol.Card{{Rank: "7", Suit: "♦"}}
	})

	got := e.GetState()
	got.Bids["p1"] = 99
	got.Hand[0] = protocol.Card{Rank: "X", Suit: "X"}

	fresh := e.GetState()
	assert.Equal(t, 2, fresh.Bids["p1"], "mutating a snapshot must not reach engine state")
	assert.Equal(t, "7", fresh.Hand[0].Rank)
}

func TestSubscribe_NotifiedWithFullState(t *testing.T) {
	e, _, _ := newTestEngine(t)

	var got []GameView
	unsub := e.Subscribe(func(v GameView) { got = append(got, v) })
	defer unsub()

	e.SetState(func(v *GameView) { v.RoomID = "r1" })

	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].RoomID)
}

func TestSubscribe_UnsubscribeStopsDelivery(t *testing.T) {
	e, _, _ := newTestEngine(t)

	calls := 0
	unsub := e.Subscribe(func(GameView) { calls++ })
	e.SetState(func(v *GameView) { v.RoomID = "r1" })
	unsub()
	e.SetState(func(v *GameView) { v.RoomID = "r2" })

	assert.Equal(t, 1, calls)

	// Unsubscribing twice is harmless.
	unsub()
}

func TestSubscribe_PanickingHandlerDoesNotBlockOthers(t *testing.T) {
	e, _, _ := newTestEngine(t)

	survived := false
	e.Subscribe(func(GameView) { panic("renderer bug") })
	e.Subscribe(func(GameView) { survived = true })

	require.NotPanics(t, func() {
		e.SetState(func(v *GameView) { v.RoomID = "r1" })
	})
	assert.True(t, survived)

	// Engine state is intact after the panic.
	assert.Equal(t, "r1", e.GetState().RoomID)
}

func TestSubscribeCritical_AlwaysSynchronous(t *testing.T) {
	emitter := &testutil.Emitter{}
	// Heavy throttle for ordinary subscribers; critical must still see
	// every transition.
	e := New(emitter, WithNotifyInterval(time.Hour))
	defer e.Close()

	var criticalSeen []string
	e.SubscribeCritical(func(v GameView) { criticalSeen = append(criticalSeen, v.RoomID) })

	e.SetState(func(v *GameView) { v.RoomID = "a" })
	e.SetState(func(v *GameView) { v.RoomID = "b" })
	e.SetState(func(v *GameView) { v.RoomID = "c" })

	assert.Equal(t, []string{"a", "b", "c"}, criticalSeen,
		"critical sink must observe every state transition")
}

func TestSubscribeCritical_MutationOrderUnderConcurrency(t *testing.T) {
	e, _, _ := newTestEngine(t)

	var mu sync.Mutex
	var seen []int
	e.SubscribeCritical(func(v GameView) {
		mu.Lock()
		seen = append(seen, v.CurrentTrick.Number)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				e.SetState(func(v *GameView) { v.CurrentTrick.Number++ })
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, 400)
	for i := 1; i < len(seen); i++ {
		require.GreaterOrEqual(t, seen[i], seen[i-1],
			"snapshots must reach the critical sink in mutation order")
	}
	assert.Equal(t, 400, seen[len(seen)-1])
}

func TestSubscribe_ThrottledDeliveryCoalescesToLatest(t *testing.T) {
	emitter := &testutil.Emitter{}
	e := New(emitter, WithNotifyInterval(20*time.Millisecond))
	defer e.Close()

	var mu sync.Mutex
	var seen []string
	e.Subscribe(func(v GameView) {
		mu.Lock()
		seen = append(seen, v.RoomID)
		mu.Unlock()
	})

	// A burst inside one throttle window: the first delivery is immediate,
	// the rest coalesce into one trailing delivery of the latest state.
	e.SetState(func(v *GameView) { v.RoomID = "a" })
	e.SetState(func(v *GameView) { v.RoomID = "b" })
	e.SetState(func(v *GameView) { v.RoomID = "c" })

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 2 && seen[len(seen)-1] == "c"
	}, time.Second, 5*time.Millisecond, "latest state must eventually be delivered")

	mu.Lock()
	defer mu.Unlock()
	assert.Less(t, len(seen), 3, "burst must coalesce")
	assert.Equal(t, "a", seen[0])
}

func TestReset_RestoresDefaultsAndNotifies(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.SetState(func(v *GameView) {
		v.RoomID = "r1"
		v.Phase = PhasePlaying
		v.Bids["p1"] = 2
		v.Pending.Bid = &PendingBid{Value: 2}
	})

	notified := false
	e.Subscribe(func(GameView) { notified = true })
	e.Reset()

	v := e.GetState()
	assert.Equal(t, PhaseIdle, v.Phase)
	assert.Empty(t, v.RoomID)
	assert.Empty(t, v.Bids)
	assert.Nil(t, v.Pending.Bid)
	assert.True(t, notified)
}

func TestEngines_AreIndependentInstances(t *testing.T) {
	e1, _, _ := newTestEngine(t)
	e2, _, _ := newTestEngine(t)

	e1.SetState(func(v *GameView) { v.RoomID = "one" })

	assert.Empty(t, e2.GetState().RoomID, "engine instances must share no state")
}
