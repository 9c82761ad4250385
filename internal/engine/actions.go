package engine

import (
	"fmt"
	"slices"

	"fodinha-client/internal/protocol"
)

// SubmitBid validates and optimistically applies the local player's bid,
// then emits submit_bid. Validation failures return an *ActionError and
// mutate nothing. No optimistic phase transition happens here; only the
// pending bookkeeping below.
func (e *Engine) SubmitBid(value int) error {
	e.mu.Lock()
	v := &e.state

	if v.Phase != PhaseBidding {
		e.mu.Unlock()
		return newActionError(ErrCodeWrongPhase, protocol.ActSubmitBid,
			fmt.Sprintf("cannot bid during phase %q", v.Phase))
	}
	if v.PlayerID == "" {
		e.mu.Unlock()
		return newActionError(ErrCodeUnknownPlayer, protocol.ActSubmitBid,
			"local player identity not known yet")
	}
	if v.CurrentTurn != v.PlayerID {
		e.mu.Unlock()
		return newActionError(ErrCodeNotYourTurn, protocol.ActSubmitBid,
			fmt.Sprintf("turn belongs to %q", v.CurrentTurn))
	}
	if !slices.Contains(v.ValidBids, value) {
		e.mu.Unlock()
		return newActionError(ErrCodeInvalidBid, protocol.ActSubmitBid,
			fmt.Sprintf("bid value %d not allowed", value))
	}

	playerID := v.PlayerID
	v.Bids[playerID] = value
	v.Pending.Bid = &PendingBid{Value: value, At: e.now()}
	e.publishOrdered(v.Clone())

	if err := e.emitter.Emit(protocol.ActSubmitBid, protocol.SubmitBidAction{Bid: value}, nil); err != nil {
		// The server never saw the action; undo the optimistic entry so the
		// pending slot cannot dangle.
		e.SetState(func(v *GameView) {
			delete(v.Bids, playerID)
			v.Pending.Bid = nil
		})
		return &ActionError{
			Code:    ErrCodeEmitFailed,
			Action:  protocol.ActSubmitBid,
			Message: "could not send bid",
			Cause:   err,
		}
	}
	return nil
}

// PlayCard validates and optimistically plays a card from the local hand,
// then emits play_card. The card's original hand index is recorded so a
// server rejection restores it exactly.
func (e *Engine) PlayCard(card protocol.Card) error {
	e.mu.Lock()
	v := &e.state

	if !card.Valid() {
		e.mu.Unlock()
		return newActionError(ErrCodeInvalidCard, protocol.ActPlayCard,
			"card needs an identifiable rank and suit")
	}
	if v.Phase != PhasePlaying {
		e.mu.Unlock()
		return newActionError(ErrCodeWrongPhase, protocol.ActPlayCard,
			fmt.Sprintf("cannot play a card during phase %q", v.Phase))
	}
	if v.PlayerID == "" {
		e.mu.Unlock()
		return newActionError(ErrCodeUnknownPlayer, protocol.ActPlayCard,
			"local player identity not known yet")
	}
	if v.CurrentTurn != v.PlayerID {
		e.mu.Unlock()
		return newActionError(ErrCodeNotYourTurn, protocol.ActPlayCard,
			fmt.Sprintf("turn belongs to %q", v.CurrentTurn))
	}
	if v.Pending.Card != nil {
		e.mu.Unlock()
		return newActionError(ErrCodeActionPending, protocol.ActPlayCard,
			"another card play is awaiting confirmation")
	}
	idx := slices.IndexFunc(v.Hand, card.Equal)
	if idx < 0 {
		e.mu.Unlock()
		return newActionError(ErrCodeCardNotInHand, protocol.ActPlayCard,
			fmt.Sprintf("card %s is not in hand", card))
	}

	playerID := v.PlayerID
	v.Hand = append(v.Hand[:idx:idx], v.Hand[idx+1:]...)
	v.CurrentTrick.CardsPlayed[playerID] = card
	v.Pending.Card = &PendingCard{Card: card, HandIndex: idx, At: e.now()}
	e.publishOrdered(v.Clone())

	if err := e.emitter.Emit(protocol.ActPlayCard, protocol.PlayCardAction{Card: card}, nil); err != nil {
		e.SetState(func(v *GameView) {
			restoreCard(v, card, idx)
			delete(v.CurrentTrick.CardsPlayed, playerID)
			v.Pending.Card = nil
		})
		return &ActionError{
			Code:    ErrCodeEmitFailed,
			Action:  protocol.ActPlayCard,
			Message: "could not send card play",
			Cause:   err,
		}
	}
	return nil
}

// restoreCard reinserts a rolled-back card at its original index, clamped to
// the current hand length (the hand may have shrunk meanwhile).
func restoreCard(v *GameView, card protocol.Card, idx int) {
	if idx < 0 {
		idx = 0
	}
	if idx > len(v.Hand) {
		idx = len(v.Hand)
	}
	v.Hand = slices.Insert(v.Hand, idx, card)
}
