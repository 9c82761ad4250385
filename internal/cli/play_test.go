package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fodinha-client/internal/engine"
	"fodinha-client/internal/protocol"
)

// The parse-error paths never reach the engine or the transport, so nil
// collaborators are fine here.
func TestHandleCommand_Parsing(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		done    bool
		wantErr string
	}{
		{name: "empty line", line: "   "},
		{name: "quit", line: "quit", done: true},
		{name: "unknown", line: "fold", wantErr: "unknown command"},
		{name: "bid without value", line: "bid", wantErr: "usage: bid"},
		{name: "bid not a number", line: "bid two", wantErr: "must be a number"},
		{name: "play missing suit", line: "play 7", wantErr: "usage: play"},
		{name: "say without message", line: "say  ", wantErr: "usage: say"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			done, err := handleCommand(context.Background(), tt.line, nil, nil, &out)
			assert.Equal(t, tt.done, done)
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestRenderer_PhaseAndTurnTransitions(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out)

	v := engine.NewGameView()
	v.PlayerID = "p1"
	v.Players = map[string]protocol.PlayerInfo{
		"p1": {Name: "Zé"},
		"p2": {Name: "Maria"},
	}
	v.Phase = engine.PhaseBidding
	v.Round = protocol.RoundInfo{Number: 1, CardCount: 3}
	v.CurrentTurn = "p2"
	r.render(v)

	assert.Contains(t, out.String(), "phase: bidding")
	assert.Contains(t, out.String(), "round 1, 3 cards")
	assert.Contains(t, out.String(), "waiting for Maria")

	// Same snapshot again prints nothing new.
	before := out.Len()
	r.render(v)
	assert.Equal(t, before, out.Len())

	v.CurrentTurn = "p1"
	v.Hand = []protocol.Card{{Rank: "7", Suit: "♦"}}
	v.ValidBids = []int{0, 1}
	r.render(v)
	assert.Contains(t, out.String(), "your turn")
	assert.Contains(t, out.String(), "valid bids: [0 1]")
}

func TestRenderer_BlindRoundHandHint(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out)

	v := engine.NewGameView()
	v.PlayerID = "p1"
	v.Phase = engine.PhaseBidding
	v.Round = protocol.RoundInfo{Number: 5, CardCount: 1, Blind: true}
	v.CurrentTurn = "p1"
	r.render(v)

	assert.Contains(t, out.String(), "(blind)")
	assert.Contains(t, out.String(), "can't see your own card")
}

func TestRenderer_ChatTail(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out)

	v := engine.NewGameView()
	v.Chat = []protocol.ChatMessage{
		{PlayerName: "Maria", Message: "oi"},
	}
	r.render(v)
	v.Chat = append(v.Chat, protocol.ChatMessage{PlayerName: "Zé", Message: "bora"})
	r.render(v)

	assert.Contains(t, out.String(), "[Maria] oi")
	assert.Contains(t, out.String(), "[Zé] bora")
	// Only the tail is printed on the second pass.
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("[Maria] oi")))
}
