package engine

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"fodinha-client/internal/bus"
	"fodinha-client/internal/protocol"
	"fodinha-client/internal/testutil"
)

// viewJSON is the serialized form compared against golden files. Struct field
// order plus sorted map keys make the output deterministic.
func viewJSON(t *testing.T, v GameView) []byte {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	return data
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestGolden_InitialView(t *testing.T) {
	e := New(&testutil.Emitter{},
		WithClock(testutil.FixedClock()),
		WithNotifyInterval(0))
	defer e.Close()

	newGoldie(t).Assert(t, "initial_view", viewJSON(t, e.GetState()))
}

func TestGolden_JoinedRoomWithChat(t *testing.T) {
	e := New(&testutil.Emitter{},
		WithClock(testutil.FixedClock()),
		WithNotifyInterval(0))
	defer e.Close()
	b := bus.New()
	e.Bind(b)

	b.Emit(protocol.EvtRoomJoined, json.RawMessage(`{
		"roomId": "sala-1",
		"playerId": "p1",
		"isHost": true,
		"playerOrder": ["p1","p2"],
		"players": {
			"p1": {"name":"Zé","connected":true,"lives":5},
			"p2": {"name":"Maria","connected":true,"lives":5}
		}
	}`))
	b.Emit(protocol.EvtChatMessageReceived, json.RawMessage(`{
		"playerId": "p2",
		"playerName": "Maria",
		"message": "bora jogar",
		"at": 1717243200000
	}`))

	newGoldie(t).Assert(t, "joined_room_with_chat", viewJSON(t, e.GetState()))
}
