package engine

import (
	"encoding/json"
	"slices"
	"time"

	"fodinha-client/internal/bus"
	"fodinha-client/internal/protocol"
	"fodinha-client/internal/textutil"
)

// Bind registers every inbound-event reducer on the bus. Reducers are not
// part of the public API; external code reaches state only through GetState,
// Subscribe and the two action methods.
func (e *Engine) Bind(b *bus.Bus) {
	reducers := map[string]func(json.RawMessage){
		protocol.EvtRoomJoined:          e.onRoomJoined,
		protocol.EvtRoomState:           e.onRoomState,
		protocol.EvtGameStateUpdate:     e.onRoomState,
		protocol.EvtRoomLeft:            e.onRoomLeft,
		protocol.EvtConnectionStatus:    e.onConnectionStatus,
		protocol.EvtChatMessageReceived: e.onChatMessage,
		protocol.EvtHostSettingsUpdated: e.onHostSettings,
		protocol.EvtBiddingTurn:         e.onBiddingTurn,
		protocol.EvtBidSubmitted:        e.onBidSubmitted,
		protocol.EvtActionError:         e.onActionError,
		protocol.EvtRoundStarted:        e.onRoundStarted,
		protocol.EvtCardsDealt:          e.onCardsDealt,
		protocol.EvtTrickStarted:        e.onTrickStarted,
		protocol.EvtCardPlayed:          e.onCardPlayed,
		protocol.EvtTrickCompleted:      e.onTrickCompleted,
		protocol.EvtRoundCompleted:      e.onRoundCompleted,
		protocol.EvtGameCompleted:       e.onGameCompleted,
		protocol.EvtGameTimerUpdate:     e.onGameTimer,
		protocol.EvtTurnTimerUpdate:     e.onTurnTimer,
		protocol.EvtActionSync:          e.onActionSync,
	}
	for event, fn := range reducers {
		b.On(event, fn)
	}
}

// decode shields reducers from malformed payloads: on error the event is
// logged and ignored, which is exactly "keep previous value".
func (e *Engine) decode(event string, raw json.RawMessage, v any) bool {
	if err := protocol.Decode(raw, v); err != nil {
		e.log.Warn("ignoring malformed event", "event", event, "error", err)
		return false
	}
	return true
}

func (e *Engine) onRoomJoined(raw json.RawMessage) {
	var snap protocol.RoomSnapshot
	if !e.decode(protocol.EvtRoomJoined, raw, &snap) {
		return
	}
	e.SetState(func(v *GameView) {
		applySnapshot(v, snap)
		// Joining lands in the pre-round lobby unless the server says
		// otherwise (rejoining a game in progress carries a phase).
		if snap.Phase == nil && v.Phase == PhaseIdle {
			v.Phase = PhaseWaiting
		}
	})
}

func (e *Engine) onRoomState(raw json.RawMessage) {
	var snap protocol.RoomSnapshot
	if !e.decode(protocol.EvtRoomState, raw, &snap) {
		return
	}
	e.SetState(func(v *GameView) {
		applySnapshot(v, snap)
	})
}

func (e *Engine) onRoomLeft(json.RawMessage) {
	e.Reset()
}

func (e *Engine) onConnectionStatus(raw json.RawMessage) {
	var p protocol.ConnectionStatusPayload
	if !e.decode(protocol.EvtConnectionStatus, raw, &p) {
		return
	}
	if p.Status == "" {
		return
	}
	offline := statusIsOffline(p.Status)
	e.SetState(func(v *GameView) {
		v.Offline = offline
	})
}

// statusIsOffline maps a connection-lifecycle value onto the gating flag.
// The engine does not hard-block actions on it; presentation does.
func statusIsOffline(status string) bool {
	switch status {
	case "reconnecting", "disconnected", "offline", "error":
		return true
	}
	return false
}

func (e *Engine) onChatMessage(raw json.RawMessage) {
	var msg protocol.ChatMessage
	if !e.decode(protocol.EvtChatMessageReceived, raw, &msg) {
		return
	}
	if msg.Message == "" {
		return
	}
	msg.Message = textutil.Clean(msg.Message)
	e.SetState(func(v *GameView) {
		v.Chat = append(v.Chat, msg)
	})
}

func (e *Engine) onHostSettings(raw json.RawMessage) {
	var settings map[string]any
	if !e.decode(protocol.EvtHostSettingsUpdated, raw, &settings) {
		return
	}
	e.SetState(func(v *GameView) {
		for k, val := range settings {
			v.HostSettings[k] = val
		}
	})
}

func (e *Engine) onBiddingTurn(raw json.RawMessage) {
	var p protocol.BiddingTurnPayload
	if !e.decode(protocol.EvtBiddingTurn, raw, &p) {
		return
	}
	e.SetState(func(v *GameView) {
		v.Phase = PhaseBidding
		if p.PlayerID != nil {
			v.CurrentTurn = *p.PlayerID
		}
		if p.ValidBids != nil {
			v.ValidBids = p.ValidBids
		}
		if p.RestrictedBid != nil {
			rb := *p.RestrictedBid
			v.RestrictedBid = &rb
		}
		if p.TurnEndsAt != nil {
			v.TurnEndsAt = protocol.TimeFromMillis(*p.TurnEndsAt)
		}
	})
}

func (e *Engine) onBidSubmitted(raw json.RawMessage) {
	var p protocol.BidSubmittedPayload
	if !e.decode(protocol.EvtBidSubmitted, raw, &p) {
		return
	}
	e.SetState(func(v *GameView) {
		if p.PlayerID != nil && p.Bid != nil {
			v.Bids[*p.PlayerID] = *p.Bid
			if *p.PlayerID == v.PlayerID {
				// Confirmation of the optimistic bid; the entry already
				// matches, only the pending slot is cleared.
				v.Pending.Bid = nil
			}
		}
		if p.Bids != nil {
			// Authoritative full bid set: bidding has concluded here.
			v.Bids = make(map[string]int, len(p.Bids))
			for id, bid := range p.Bids {
				v.Bids[id] = bid
			}
			if _, ok := p.Bids[v.PlayerID]; ok {
				// The set confirms the local bid too; the pending slot must
				// not survive into the playing phase.
				v.Pending.Bid = nil
			}
			v.CurrentTurn = ""
			v.ValidBids = nil
			v.RestrictedBid = nil
		}
	})
}

func (e *Engine) onActionError(raw json.RawMessage) {
	var p protocol.ActionErrorPayload
	if !e.decode(protocol.EvtActionError, raw, &p) {
		return
	}
	e.SetState(func(v *GameView) {
		switch p.Action {
		case protocol.ActSubmitBid:
			if v.Pending.Bid != nil {
				delete(v.Bids, v.PlayerID)
				v.Pending.Bid = nil
			}
		case protocol.ActPlayCard:
			if v.Pending.Card != nil {
				restoreCard(v, v.Pending.Card.Card, v.Pending.Card.HandIndex)
				delete(v.CurrentTrick.CardsPlayed, v.PlayerID)
				v.Pending.Card = nil
			}
		}
		v.Errors = append(v.Errors, ActionFailure{
			Action:  p.Action,
			Code:    p.Code,
			Message: p.Message,
			At:      e.now(),
		})
	})
}

func (e *Engine) onRoundStarted(raw json.RawMessage) {
	var p protocol.RoundStartedPayload
	if !e.decode(protocol.EvtRoundStarted, raw, &p) {
		return
	}
	e.SetState(func(v *GameView) {
		if p.Round != nil {
			v.Round = *p.Round
		}
		// Per-round transients always reset, whatever they held before.
		v.Phase = PhaseBidding
		v.Bids = make(map[string]int)
		v.Hand = nil
		v.VisibleCards = nil
		v.CurrentTrick = newTrick()
		v.Pending = Pending{}
		v.CurrentTurn = ""
		v.ValidBids = nil
		v.RestrictedBid = nil
	})
}

func (e *Engine) onCardsDealt(raw json.RawMessage) {
	var p protocol.CardsDealtPayload
	if !e.decode(protocol.EvtCardsDealt, raw, &p) {
		return
	}
	e.SetState(func(v *GameView) {
		if p.Hand != nil {
			v.Hand = p.Hand
		}
		if p.VisibleCards != nil {
			v.VisibleCards = p.VisibleCards
		}
		if p.Vira != nil {
			vira := *p.Vira
			v.Round.Vira = &vira
		}
		if p.Manilha != nil {
			v.Round.Manilha = *p.Manilha
		}
		v.Pending.Card = nil
	})
}

func (e *Engine) onTrickStarted(raw json.RawMessage) {
	var p protocol.TrickStartedPayload
	if !e.decode(protocol.EvtTrickStarted, raw, &p) {
		return
	}
	e.SetState(func(v *GameView) {
		v.Phase = PhasePlaying
		trick := newTrick()
		if p.TrickNumber != nil {
			trick.Number = *p.TrickNumber
		} else {
			trick.Number = v.CurrentTrick.Number + 1
		}
		if p.LeadPlayerID != nil {
			trick.Lead = *p.LeadPlayerID
			// The lead player is the initial leader until a stronger card
			// changes it.
			trick.LeaderID = *p.LeadPlayerID
		}
		v.CurrentTrick = trick
	})
}

func (e *Engine) onCardPlayed(raw json.RawMessage) {
	var p protocol.CardPlayedPayload
	if !e.decode(protocol.EvtCardPlayed, raw, &p) {
		return
	}
	if p.PlayerID == "" || p.Card == nil {
		return
	}
	e.SetState(func(v *GameView) {
		if !slices.Contains(v.PlayerOrder, p.PlayerID) {
			// Trick keys stay a subset of the turn order.
			return
		}
		v.CurrentTrick.CardsPlayed[p.PlayerID] = *p.Card

		if p.PlayerID == v.PlayerID && v.Pending.Card != nil {
			// Authoritative echo of the optimistic play; already applied.
			v.Pending.Card = nil
		}

		if p.LeaderID != nil {
			v.CurrentTrick.LeaderID = *p.LeaderID
		}
		if p.LeadingCard != nil {
			lc := *p.LeadingCard
			v.CurrentTrick.LeadingCard = &lc
		} else if lc, ok := v.CurrentTrick.CardsPlayed[v.CurrentTrick.LeaderID]; ok {
			v.CurrentTrick.LeadingCard = &lc
		}
		if p.Cancelled != nil {
			v.CurrentTrick.Cancelled = p.Cancelled
		}

		// A face-up card that got played is no longer on display.
		v.VisibleCards = slices.DeleteFunc(v.VisibleCards, func(oc protocol.OwnedCard) bool {
			return oc.PlayerID == p.PlayerID && oc.Card.Equal(*p.Card)
		})
	})
}

func (e *Engine) onTrickCompleted(raw json.RawMessage) {
	var p protocol.TrickCompletedPayload
	if !e.decode(protocol.EvtTrickCompleted, raw, &p) {
		return
	}
	e.SetState(func(v *GameView) {
		var frozen map[string]protocol.Card
		if p.CardsPlayed != nil {
			// Trick keys stay a subset of the turn order, same as the
			// per-card path.
			frozen = make(map[string]protocol.Card, len(p.CardsPlayed))
			for id, c := range p.CardsPlayed {
				if slices.Contains(v.PlayerOrder, id) {
					frozen[id] = c
				}
			}
		} else {
			frozen = make(map[string]protocol.Card, len(v.CurrentTrick.CardsPlayed))
			for id, c := range v.CurrentTrick.CardsPlayed {
				frozen[id] = c
			}
		}

		winning := protocol.Card{}
		if p.WinningCard != nil {
			winning = *p.WinningCard
		} else if c, ok := frozen[p.Winner]; ok {
			winning = c
		}

		v.TrickHistory = append(v.TrickHistory, TrickRecord{
			Number:      v.CurrentTrick.Number,
			Winner:      p.Winner,
			WinningCard: winning,
			CardsPlayed: frozen,
		})

		v.CurrentTrick.CardsPlayed = frozen
		if p.Cancelled != nil {
			v.CurrentTrick.Cancelled = p.Cancelled
		}
		if p.CompletedAt != nil {
			v.CurrentTrick.CompletedAt = protocol.TimeFromMillis(*p.CompletedAt)
		} else {
			v.CurrentTrick.CompletedAt = e.now()
		}

		if p.NextTrick {
			v.Phase = PhasePlaying
		} else {
			v.Phase = PhaseScoring
		}
	})
}

func (e *Engine) onRoundCompleted(raw json.RawMessage) {
	var p protocol.RoundCompletedPayload
	if !e.decode(protocol.EvtRoundCompleted, raw, &p) {
		return
	}
	e.SetState(func(v *GameView) {
		v.RoundResults = &RoundResults{
			Results:    p.Results,
			Eliminated: p.Eliminated,
		}
		for _, r := range p.Results {
			info := v.Players[r.PlayerID]
			info.Lives = r.LivesRemaining
			v.Players[r.PlayerID] = info
		}
		for _, id := range p.Eliminated {
			info := v.Players[id]
			info.Spectator = true
			v.Players[id] = info
			if id == v.PlayerID {
				v.IsSpectator = true
			}
		}
		v.CurrentTurn = ""
		v.ValidBids = nil
		v.RestrictedBid = nil
		v.TurnEndsAt = time.Time{}
	})
}

func (e *Engine) onGameCompleted(raw json.RawMessage) {
	var p protocol.GameCompletedPayload
	if !e.decode(protocol.EvtGameCompleted, raw, &p) {
		return
	}
	e.SetState(func(v *GameView) {
		v.Phase = PhaseCompleted
		v.GameResult = &GameResult{
			Winner:    p.Winner,
			Standings: p.Standings,
			Stats:     p.Stats,
		}
		for _, s := range p.Standings {
			info := v.Players[s.PlayerID]
			info.Lives = s.Lives
			v.Players[s.PlayerID] = info
		}
		if p.Winner != "" {
			info := v.Players[p.Winner]
			info.Winner = true
			v.Players[p.Winner] = info
		}
		v.CurrentTurn = ""
		v.ValidBids = nil
		v.RestrictedBid = nil
		v.Countdown = &Countdown{Kind: "game_over"}
	})
}

func (e *Engine) onGameTimer(raw json.RawMessage) {
	var p protocol.GameTimerPayload
	if !e.decode(protocol.EvtGameTimerUpdate, raw, &p) {
		return
	}
	e.SetState(func(v *GameView) {
		cd := Countdown{}
		if v.Countdown != nil {
			cd = *v.Countdown
		}
		if p.Kind != nil {
			cd.Kind = *p.Kind
		}
		if p.EndsAt != nil {
			cd.EndsAt = protocol.TimeFromMillis(*p.EndsAt)
		}
		if p.Seconds != nil {
			cd.Seconds = *p.Seconds
		}
		v.Countdown = &cd
	})
}

func (e *Engine) onTurnTimer(raw json.RawMessage) {
	var p protocol.TurnTimerPayload
	if !e.decode(protocol.EvtTurnTimerUpdate, raw, &p) {
		return
	}
	e.SetState(func(v *GameView) {
		if p.TurnEndsAt != nil {
			v.TurnEndsAt = protocol.TimeFromMillis(*p.TurnEndsAt)
		}
		if p.PlayerID != nil {
			v.CurrentTurn = *p.PlayerID
		}
	})
}

// onActionSync clears the matching pending slot without re-applying effects
// the optimistic path already produced. Delivering the same sync twice for an
// already-cleared slot is a no-op.
func (e *Engine) onActionSync(raw json.RawMessage) {
	var p protocol.ActionSyncPayload
	if !e.decode(protocol.EvtActionSync, raw, &p) {
		return
	}
	e.SetState(func(v *GameView) {
		switch p.Action {
		case protocol.ActSubmitBid:
			v.Pending.Bid = nil
		case protocol.ActPlayCard:
			v.Pending.Card = nil
		}
	})
}

// applySnapshot merges a room snapshot into the view. Merge, not replace:
// directory and lives data the server does not repeat in every message must
// survive a partial snapshot.
func applySnapshot(v *GameView, snap protocol.RoomSnapshot) {
	if snap.RoomID != nil {
		v.RoomID = *snap.RoomID
	}
	if snap.PlayerID != nil {
		v.PlayerID = *snap.PlayerID
	}
	if snap.IsHost != nil {
		v.IsHost = *snap.IsHost
	}
	if snap.IsSpectator != nil {
		v.IsSpectator = *snap.IsSpectator
	}
	if snap.Phase != nil {
		if phase, ok := parsePhase(*snap.Phase); ok {
			v.Phase = phase
		}
	}
	if snap.Round != nil {
		v.Round = *snap.Round
	}
	if snap.PlayerOrder != nil {
		v.PlayerOrder = snap.PlayerOrder
	}
	if snap.CurrentTurn != nil {
		v.CurrentTurn = *snap.CurrentTurn
	}
	if snap.ValidBids != nil {
		v.ValidBids = snap.ValidBids
	}
	if snap.RestrictedBid != nil {
		rb := *snap.RestrictedBid
		v.RestrictedBid = &rb
	}
	if snap.Bids != nil {
		v.Bids = make(map[string]int, len(snap.Bids))
		for id, bid := range snap.Bids {
			v.Bids[id] = bid
		}
	}
	if snap.Hand != nil {
		v.Hand = snap.Hand
	}
	if snap.VisibleCards != nil {
		v.VisibleCards = snap.VisibleCards
	}
	for id, info := range snap.Players {
		v.Players[id] = info
	}
	for k, s := range snap.HostSettings {
		v.HostSettings[k] = s
	}
	if snap.Chat != nil {
		chat := make([]protocol.ChatMessage, len(snap.Chat))
		for i, m := range snap.Chat {
			m.Message = textutil.Clean(m.Message)
			chat[i] = m
		}
		v.Chat = chat
	}
	if snap.TurnEndsAt != nil {
		v.TurnEndsAt = protocol.TimeFromMillis(*snap.TurnEndsAt)
	}
	if snap.Countdown != nil {
		v.Countdown = &Countdown{
			Kind:    snap.Countdown.Kind,
			EndsAt:  protocol.TimeFromMillis(snap.Countdown.EndsAt),
			Seconds: snap.Countdown.Seconds,
		}
	}
}

func parsePhase(s string) (Phase, bool) {
	switch Phase(s) {
	case PhaseIdle, PhaseWaiting, PhaseBidding, PhasePlaying, PhaseScoring, PhaseCompleted:
		return Phase(s), true
	}
	return "", false
}
