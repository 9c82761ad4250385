package engine

import (
	"time"

	"fodinha-client/internal/protocol"
)

// Phase enumerates the round cycle. Transitions are one-directional per
// cycle: waiting -> bidding -> playing -> scoring -> bidding (next round)
// or completed (terminal until the room is re-entered).
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseWaiting   Phase = "waiting"
	PhaseBidding   Phase = "bidding"
	PhasePlaying   Phase = "playing"
	PhaseScoring   Phase = "scoring"
	PhaseCompleted Phase = "completed"
)

// History bounds. Enforced after every mutation, never exceeded.
const (
	maxChatMessages   = 100
	maxTrickHistory   = 6
	maxActionFailures = 10
)

// PendingBid is the at-most-one in-flight optimistic bid.
type PendingBid struct {
	Value int       `json:"value"`
	At    time.Time `json:"at"`
}

// PendingCard is the at-most-one in-flight optimistic card play. HandIndex
// is the card's original position, kept so a rejection can reinsert it
// exactly where it was.
type PendingCard struct {
	Card      protocol.Card `json:"card"`
	HandIndex int           `json:"handIndex"`
	At        time.Time     `json:"at"`
}

// Pending holds the optimistic in-flight actions.
type Pending struct {
	Bid  *PendingBid  `json:"bid"`
	Card *PendingCard `json:"card"`
}

// Trick is the trick currently on the table.
type Trick struct {
	Number      int                      `json:"number"`
	Lead        string                   `json:"lead"`
	CardsPlayed map[string]protocol.Card `json:"cardsPlayed"`
	LeaderID    string                   `json:"leaderId"`
	LeadingCard *protocol.Card           `json:"leadingCard"`
	Cancelled   []protocol.Card          `json:"cancelled"`
	CompletedAt time.Time                `json:"completedAt"`
}

func newTrick() Trick {
	return Trick{CardsPlayed: make(map[string]protocol.Card)}
}

// TrickRecord is one frozen entry of the trick history ring.
type TrickRecord struct {
	Number      int                      `json:"number"`
	Winner      string                   `json:"winner"`
	WinningCard protocol.Card            `json:"winningCard"`
	CardsPlayed map[string]protocol.Card `json:"cardsPlayed"`
}

// RoundResults is the dense per-player snapshot of the last scored round.
type RoundResults struct {
	Results    []protocol.PlayerRoundResult `json:"results"`
	Eliminated []string                     `json:"eliminated"`
}

// GameResult is the terminal outcome.
type GameResult struct {
	Winner    string              `json:"winner"`
	Standings []protocol.Standing `json:"standings"`
	Stats     map[string]any      `json:"stats"`
}

// Countdown describes a round/game level countdown.
type Countdown struct {
	Kind    string    `json:"kind"`
	EndsAt  time.Time `json:"endsAt"`
	Seconds int       `json:"seconds"`
}

// ActionFailure is one entry of the bounded server-rejection log.
type ActionFailure struct {
	Action  string    `json:"action"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// GameView is the client's local projection of authoritative game state,
// owned exclusively by the Engine. Collaborators read it only through
// GetState/Subscribe and must never mutate a returned copy expecting the
// engine to notice.
type GameView struct {
	RoomID      string `json:"roomId"`
	PlayerID    string `json:"playerId"`
	IsHost      bool   `json:"isHost"`
	IsSpectator bool   `json:"isSpectator"`

	Phase Phase              `json:"phase"`
	Round protocol.RoundInfo `json:"round"`

	PlayerOrder   []string       `json:"playerOrder"`
	CurrentTurn   string         `json:"currentTurn"`
	ValidBids     []int          `json:"validBids"`
	RestrictedBid *int           `json:"restrictedBid"`
	Bids          map[string]int `json:"bids"`

	// Hand order is display order only, never gameplay-significant.
	Hand         []protocol.Card      `json:"hand"`
	VisibleCards []protocol.OwnedCard `json:"visibleCards"`

	CurrentTrick Trick         `json:"currentTrick"`
	TrickHistory []TrickRecord `json:"trickHistory"`

	RoundResults *RoundResults `json:"roundResults"`
	GameResult   *GameResult   `json:"gameResult"`

	Players      map[string]protocol.PlayerInfo `json:"players"`
	Chat         []protocol.ChatMessage         `json:"chat"`
	HostSettings map[string]any                 `json:"hostSettings"`

	TurnEndsAt time.Time  `json:"turnEndsAt"`
	Countdown  *Countdown `json:"countdown"`

	Offline bool    `json:"offline"`
	Pending Pending `json:"pending"`

	Errors []ActionFailure `json:"errors"`
}

// NewGameView returns the all-default initial state.
func NewGameView() GameView {
	return GameView{
		Phase:        PhaseIdle,
		Bids:         make(map[string]int),
		CurrentTrick: newTrick(),
		Players:      make(map[string]protocol.PlayerInfo),
		HostSettings: make(map[string]any),
	}
}

// Clone returns a deep copy. Every map and slice is duplicated so the caller
// cannot reach engine-owned memory.
func (v GameView) Clone() GameView {
	out := v

	out.PlayerOrder = append([]string(nil), v.PlayerOrder...)
	out.ValidBids = append([]int(nil), v.ValidBids...)
	out.Hand = append([]protocol.Card(nil), v.Hand...)
	out.VisibleCards = append([]protocol.OwnedCard(nil), v.VisibleCards...)
	out.Chat = append([]protocol.ChatMessage(nil), v.Chat...)
	out.Errors = append([]ActionFailure(nil), v.Errors...)

	if v.RestrictedBid != nil {
		rb := *v.RestrictedBid
		out.RestrictedBid = &rb
	}
	out.Bids = make(map[string]int, len(v.Bids))
	for k, b := range v.Bids {
		out.Bids[k] = b
	}
	out.Players = make(map[string]protocol.PlayerInfo, len(v.Players))
	for k, p := range v.Players {
		out.Players[k] = p
	}
	out.HostSettings = make(map[string]any, len(v.HostSettings))
	for k, s := range v.HostSettings {
		out.HostSettings[k] = s
	}

	out.CurrentTrick = v.CurrentTrick.clone()
	out.TrickHistory = nil
	for _, r := range v.TrickHistory {
		out.TrickHistory = append(out.TrickHistory, r.clone())
	}

	if v.RoundResults != nil {
		rr := RoundResults{
			Results:    append([]protocol.PlayerRoundResult(nil), v.RoundResults.Results...),
			Eliminated: append([]string(nil), v.RoundResults.Eliminated...),
		}
		out.RoundResults = &rr
	}
	if v.GameResult != nil {
		gr := GameResult{
			Winner:    v.GameResult.Winner,
			Standings: append([]protocol.Standing(nil), v.GameResult.Standings...),
			Stats:     make(map[string]any, len(v.GameResult.Stats)),
		}
		for k, s := range v.GameResult.Stats {
			gr.Stats[k] = s
		}
		out.GameResult = &gr
	}
	if v.Countdown != nil {
		cd := *v.Countdown
		out.Countdown = &cd
	}
	if v.Round.Vira != nil {
		vira := *v.Round.Vira
		out.Round.Vira = &vira
	}
	if v.Pending.Bid != nil {
		pb := *v.Pending.Bid
		out.Pending.Bid = &pb
	}
	if v.Pending.Card != nil {
		pc := *v.Pending.Card
		out.Pending.Card = &pc
	}
	return out
}

func (t Trick) clone() Trick {
	out := t
	out.CardsPlayed = make(map[string]protocol.Card, len(t.CardsPlayed))
	for k, c := range t.CardsPlayed {
		out.CardsPlayed[k] = c
	}
	out.Cancelled = append([]protocol.Card(nil), t.Cancelled...)
	if t.LeadingCard != nil {
		lc := *t.LeadingCard
		out.LeadingCard = &lc
	}
	return out
}

func (r TrickRecord) clone() TrickRecord {
	out := r
	out.CardsPlayed = make(map[string]protocol.Card, len(r.CardsPlayed))
	for k, c := range r.CardsPlayed {
		out.CardsPlayed[k] = c
	}
	return out
}

// enforceBounds truncates the bounded histories to their limits, keeping the
// most recent entries in insertion order.
func (v *GameView) enforceBounds() {
	if n := len(v.Chat); n > maxChatMessages {
		v.Chat = append([]protocol.ChatMessage(nil), v.Chat[n-maxChatMessages:]...)
	}
	if n := len(v.TrickHistory); n > maxTrickHistory {
		v.TrickHistory = append([]TrickRecord(nil), v.TrickHistory[n-maxTrickHistory:]...)
	}
	if n := len(v.Errors); n > maxActionFailures {
		v.Errors = append([]ActionFailure(nil), v.Errors[n-maxActionFailures:]...)
	}
}
