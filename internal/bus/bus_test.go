package bus

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_RegistrationOrderDelivery(t *testing.T) {
	b := New()

	var order []int
	b.On("evt", func(json.RawMessage) { order = append(order, 1) })
	b.On("evt", func(json.RawMessage) { order = append(order, 2) })
	b.On("evt", func(json.RawMessage) { order = append(order, 3) })

	b.Emit("evt", nil)

	assert.Equal(t, []int{1, 2, 3}, order, "handlers must run in registration order")
}

func TestBus_Off(t *testing.T) {
	b := New()

	calls := 0
	sub := b.On("evt", func(json.RawMessage) { calls++ })
	b.Emit("evt", nil)
	b.Off(sub)
	b.Emit("evt", nil)

	assert.Equal(t, 1, calls)

	// Double removal is a no-op.
	b.Off(sub)
}

func TestBus_OnceSelfUnregistersBeforeInvocation(t *testing.T) {
	b := New()

	calls := 0
	b.Once("evt", func(json.RawMessage) {
		calls++
		// Re-emitting the same event from inside the handler must not
		// fire this handler again.
		b.Emit("evt", nil)
	})

	b.Emit("evt", nil)

	assert.Equal(t, 1, calls, "once handler fired more than once")
	assert.Equal(t, 0, b.Len("evt"))
}

func TestBus_EmitIteratesStableSnapshot(t *testing.T) {
	b := New()

	var fired []string
	b.On("evt", func(json.RawMessage) {
		fired = append(fired, "first")
		// Listeners added during dispatch do not join the current pass.
		b.On("evt", func(json.RawMessage) { fired = append(fired, "added") })
	})

	b.Emit("evt", nil)
	require.Equal(t, []string{"first"}, fired)

	b.Emit("evt", nil)
	assert.Equal(t, []string{"first", "first", "added"}, fired)
}

func TestBus_RemovalDuringDispatchDoesNotAffectCurrentPass(t *testing.T) {
	b := New()

	var fired []string
	var second Subscription
	b.On("evt", func(json.RawMessage) {
		fired = append(fired, "first")
		b.Off(second)
	})
	second = b.On("evt", func(json.RawMessage) { fired = append(fired, "second") })

	b.Emit("evt", nil)

	assert.Equal(t, []string{"first", "second"}, fired,
		"removal during dispatch must not skip listeners in the current pass")

	fired = nil
	b.Emit("evt", nil)
	assert.Equal(t, []string{"first"}, fired)
}

func TestBus_PanicDeferredUntilAllListenersRan(t *testing.T) {
	b := New()

	var fired []string
	b.On("evt", func(json.RawMessage) { panic("boom") })
	b.On("evt", func(json.RawMessage) { fired = append(fired, "survivor") })

	require.PanicsWithValue(t, "boom", func() { b.Emit("evt", nil) })
	assert.Equal(t, []string{"survivor"}, fired,
		"a panicking handler must not abort delivery to the rest")
}

func TestBus_PayloadPassedThrough(t *testing.T) {
	b := New()

	var got json.RawMessage
	b.On("evt", func(raw json.RawMessage) { got = raw })
	b.Emit("evt", json.RawMessage(`{"x":1}`))

	assert.JSONEq(t, `{"x":1}`, string(got))
}
