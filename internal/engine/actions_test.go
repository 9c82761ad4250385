package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fodinha-client/internal/protocol"
)

func seedBidding(e *Engine) {
	e.SetState(func(v *GameView) {
		v.RoomID = "r1"
		v.PlayerID = "p1"
		v.PlayerOrder = []string{"p1", "p2", "p3"}
		v.Phase = PhaseBidding
		v.CurrentTurn = "p1"
		v.ValidBids = []int{0, 1, 2, 3}
	})
}

func seedPlaying(e *Engine, hand ...protocol.Card) {
	e.SetState(func(v *GameView) {
		v.RoomID = "r1"
		v.PlayerID = "p1"
		v.PlayerOrder = []string{"p1", "p2", "p3"}
		v.Phase = PhasePlaying
		v.CurrentTurn = "p1"
		v.Hand = hand
		v.CurrentTrick = newTrick()
	})
}

func TestSubmitBid_Success(t *testing.T) {
	e, emitter, _ := newTestEngine(t)
	seedBidding(e)

	require.NoError(t, e.SubmitBid(2))

	v := e.GetState()
	require.NotNil(t, v.Pending.Bid)
	assert.Equal(t, 2, v.Pending.Bid.Value)
	assert.False(t, v.Pending.Bid.At.IsZero())
	assert.Equal(t, 2, v.Bids["p1"], "optimistic bid entry must be recorded")
	// No optimistic phase transition.
	assert.Equal(t, PhaseBidding, v.Phase)

	last, ok := emitter.Last()
	require.True(t, ok)
	assert.Equal(t, protocol.ActSubmitBid, last.Event)
	assert.Equal(t, protocol.SubmitBidAction{Bid: 2}, last.Payload)
}

func TestSubmitBid_WrongPhaseRaisesWithoutMutation(t *testing.T) {
	e, emitter, _ := newTestEngine(t)
	seedBidding(e)
	e.SetState(func(v *GameView) { v.Phase = PhasePlaying })

	err := e.SubmitBid(2)
	require.Error(t, err)
	ae, ok := AsActionError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeWrongPhase, ae.Code)

	v := e.GetState()
	assert.Empty(t, v.Bids)
	assert.Nil(t, v.Pending.Bid)
	assert.Empty(t, emitter.Emissions(), "failed validation must not emit")
}

func TestSubmitBid_Validations(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Engine)
		bid   int
		code  ActionErrorCode
	}{
		{
			name:  "unknown local player",
			setup: func(e *Engine) { e.SetState(func(v *GameView) { v.PlayerID = "" }) },
			bid:   2,
			code:  ErrCodeUnknownPlayer,
		},
		{
			name:  "not your turn",
			setup: func(e *Engine) { e.SetState(func(v *GameView) { v.CurrentTurn = "p2" }) },
			bid:   2,
			code:  ErrCodeNotYourTurn,
		},
		{
			name:  "bid value not allowed",
			setup: func(*Engine) {},
			bid:   5,
			code:  ErrCodeInvalidBid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, emitter, _ := newTestEngine(t)
			seedBidding(e)
			tt.setup(e)

			err := e.SubmitBid(tt.bid)
			require.Error(t, err)
			ae, ok := AsActionError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, ae.Code)
			assert.Empty(t, emitter.Emissions())
		})
	}
}

func TestSubmitBid_EmitFailureRollsBack(t *testing.T) {
	e, emitter, _ := newTestEngine(t)
	seedBidding(e)
	emitter.Err = errors.New("socket gone")

	err := e.SubmitBid(2)
	require.Error(t, err)
	ae, ok := AsActionError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeEmitFailed, ae.Code)

	v := e.GetState()
	assert.Nil(t, v.Pending.Bid, "pending slot must not dangle after emit failure")
	assert.NotContains(t, v.Bids, "p1")
}

func TestPlayCard_Success(t *testing.T) {
	e, emitter, _ := newTestEngine(t)
	seven := protocol.Card{Rank: "7", Suit: "♦"}
	queen := protocol.Card{Rank: "Q", Suit: "♠"}
	ace := protocol.Card{Rank: "A", Suit: "♣"}
	seedPlaying(e, seven, queen, ace)

	require.NoError(t, e.PlayCard(queen))

	v := e.GetState()
	assert.Equal(t, []protocol.Card{seven, ace}, v.Hand, "played card must leave the hand")
	assert.Equal(t, queen, v.CurrentTrick.CardsPlayed["p1"])
	require.NotNil(t, v.Pending.Card)
	assert.Equal(t, queen, v.Pending.Card.Card)
	assert.Equal(t, 1, v.Pending.Card.HandIndex, "original index recorded for exact rollback")

	last, ok := emitter.Last()
	require.True(t, ok)
	assert.Equal(t, protocol.ActPlayCard, last.Event)
	assert.Equal(t, protocol.PlayCardAction{Card: queen}, last.Payload)
}

func TestPlayCard_Validations(t *testing.T) {
	seven := protocol.Card{Rank: "7", Suit: "♦"}

	tests := []struct {
		name  string
		setup func(*Engine)
		card  protocol.Card
		code  ActionErrorCode
	}{
		{
			name:  "unidentifiable card",
			setup: func(*Engine) {},
			card:  protocol.Card{Rank: "7"},
			code:  ErrCodeInvalidCard,
		},
		{
			name:  "wrong phase",
			setup: func(e *Engine) { e.SetState(func(v *GameView) { v.Phase = PhaseBidding }) },
			card:  seven,
			code:  ErrCodeWrongPhase,
		},
		{
			name:  "not your turn",
			setup: func(e *Engine) { e.SetState(func(v *GameView) { v.CurrentTurn = "p3" }) },
			card:  seven,
			code:  ErrCodeNotYourTurn,
		},
		{
			name: "another play pending",
			setup: func(e *Engine) {
				e.SetState(func(v *GameView) { v.Pending.Card = &PendingCard{Card: seven} })
			},
			card: seven,
			code: ErrCodeActionPending,
		},
		{
			name:  "card not in hand",
			setup: func(*Engine) {},
			card:  protocol.Card{Rank: "K", Suit: "♥"},
			code:  ErrCodeCardNotInHand,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, emitter, _ := newTestEngine(t)
			seedPlaying(e, seven)
			tt.setup(e)

			err := e.PlayCard(tt.card)
			require.Error(t, err)
			ae, ok := AsActionError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, ae.Code)
			assert.Empty(t, emitter.Emissions())

			v := e.GetState()
			assert.Equal(t, []protocol.Card{seven}, v.Hand, "failed validation must not touch the hand")
		})
	}
}

func TestPlayCard_EmitFailureRollsBack(t *testing.T) {
	e, emitter, _ := newTestEngine(t)
	seven := protocol.Card{Rank: "7", Suit: "♦"}
	queen := protocol.Card{Rank: "Q", Suit: "♠"}
	seedPlaying(e, seven, queen)
	emitter.Err = errors.New("socket gone")

	err := e.PlayCard(seven)
	require.Error(t, err)

	v := e.GetState()
	assert.Equal(t, []protocol.Card{seven, queen}, v.Hand, "card must return to its original index")
	assert.Nil(t, v.Pending.Card)
	assert.NotContains(t, v.CurrentTrick.CardsPlayed, "p1")
}
