package protocol

import (
	"encoding/json"
	"fmt"
)

// Decode unmarshals an event payload into its tagged variant struct.
// A nil/empty payload is legal and leaves the target at its zero value, so
// every optional field resolves to "keep previous" at the reducer.
func Decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// PlayerInfo is one entry of the player directory.
type PlayerInfo struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	Lives     int    `json:"lives"`
	Spectator bool   `json:"spectator"`
	Winner    bool   `json:"winner"`
}

// ChatMessage is one chat history entry. At is milliseconds since epoch.
type ChatMessage struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
	At         int64  `json:"at"`
}

// RoundInfo is the per-round metadata block.
type RoundInfo struct {
	Number    int    `json:"number"`
	CardCount int    `json:"cardCount"`
	Vira      *Card  `json:"vira,omitempty"`
	Manilha   string `json:"manilha,omitempty"`
	Blind     bool   `json:"blind"`
}

// CountdownInfo describes a round/game level countdown.
type CountdownInfo struct {
	Kind    string `json:"kind"`
	EndsAt  int64  `json:"endsAt"`
	Seconds int    `json:"seconds"`
}

// RoomSnapshot is the merge shape for room_joined, room_state and
// game_state_update. Optional scalars are pointers: nil means the server
// omitted the field and the local value survives.
type RoomSnapshot struct {
	RoomID        *string               `json:"roomId"`
	PlayerID      *string               `json:"playerId"`
	IsHost        *bool                 `json:"isHost"`
	IsSpectator   *bool                 `json:"isSpectator"`
	Phase         *string               `json:"phase"`
	Round         *RoundInfo            `json:"round"`
	PlayerOrder   []string              `json:"playerOrder"`
	CurrentTurn   *string               `json:"currentTurn"`
	ValidBids     []int                 `json:"validBids"`
	RestrictedBid *int                  `json:"restrictedBid"`
	Bids          map[string]int        `json:"bids"`
	Hand          []Card                `json:"hand"`
	VisibleCards  []OwnedCard           `json:"visibleCards"`
	Players       map[string]PlayerInfo `json:"players"`
	HostSettings  map[string]any        `json:"hostSettings"`
	Chat          []ChatMessage         `json:"chat"`
	TurnEndsAt    *int64                `json:"turnEndsAt"`
	Countdown     *CountdownInfo        `json:"countdown"`
}

// ConnectionStatusPayload echoes the server's view of this client's session.
// SessionToken, when present, replaces the persisted resumption token.
type ConnectionStatusPayload struct {
	Status       string `json:"status"`
	SessionToken string `json:"sessionToken,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Attempt      int    `json:"attempt,omitempty"`
}

// BiddingTurnPayload announces whose turn it is to bid.
type BiddingTurnPayload struct {
	PlayerID      *string `json:"playerId"`
	ValidBids     []int   `json:"validBids"`
	RestrictedBid *int    `json:"restrictedBid"`
	TurnEndsAt    *int64  `json:"turnEndsAt"`
}

// BidSubmittedPayload confirms one player's bid. When the server includes the
// authoritative full bid map, bidding has concluded for that player set and
// the turn/validity fields are cleared.
type BidSubmittedPayload struct {
	PlayerID *string        `json:"playerId"`
	Bid      *int           `json:"bid"`
	Bids     map[string]int `json:"bids"`
}

// ActionErrorPayload names a rejected action; the engine's rollback path.
type ActionErrorPayload struct {
	Action  string `json:"action"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// RoundStartedPayload opens a round and clears all per-round transients.
type RoundStartedPayload struct {
	Round *RoundInfo `json:"round"`
}

// CardsDealtPayload replaces the hand and visible cards wholesale.
type CardsDealtPayload struct {
	Hand         []Card      `json:"hand"`
	VisibleCards []OwnedCard `json:"visibleCards"`
	Vira         *Card       `json:"vira"`
	Manilha      *string     `json:"manilha"`
}

// TrickStartedPayload resets the current-trick scaffold.
type TrickStartedPayload struct {
	TrickNumber  *int    `json:"trickNumber"`
	LeadPlayerID *string `json:"leadPlayerId"`
}

// CardPlayedPayload merges one played card into the trick.
type CardPlayedPayload struct {
	PlayerID    string  `json:"playerId"`
	Card        *Card   `json:"card"`
	LeaderID    *string `json:"leaderId"`
	LeadingCard *Card   `json:"leadingCard"`
	Cancelled   []Card  `json:"cancelled"`
}

// TrickCompletedPayload freezes a trick and announces its winner.
type TrickCompletedPayload struct {
	Winner      string          `json:"winner"`
	WinningCard *Card           `json:"winningCard"`
	CardsPlayed map[string]Card `json:"cardsPlayed"`
	Cancelled   []Card          `json:"cancelled"`
	NextTrick   bool            `json:"nextTrick"`
	CompletedAt *int64          `json:"completedAt"`
}

// PlayerRoundResult is one player's line of a round result.
type PlayerRoundResult struct {
	PlayerID       string `json:"playerId"`
	Bid            int    `json:"bid"`
	Actual         int    `json:"actual"`
	LivesLost      int    `json:"livesLost"`
	LivesRemaining int    `json:"livesRemaining"`
}

// RoundCompletedPayload carries the round scoring outcome.
type RoundCompletedPayload struct {
	Results    []PlayerRoundResult `json:"results"`
	Eliminated []string            `json:"eliminated"`
}

// Standing is one line of the final result table.
type Standing struct {
	PlayerID string `json:"playerId"`
	Place    int    `json:"place"`
	Lives    int    `json:"lives"`
}

// GameCompletedPayload ends the game.
type GameCompletedPayload struct {
	Winner    string         `json:"winner"`
	Standings []Standing     `json:"standings"`
	Stats     map[string]any `json:"stats"`
}

// GameTimerPayload updates the round/game countdown descriptor.
type GameTimerPayload struct {
	Kind    *string `json:"kind"`
	EndsAt  *int64  `json:"endsAt"`
	Seconds *int    `json:"seconds"`
}

// TurnTimerPayload moves the turn deadline, optionally the turn holder too.
type TurnTimerPayload struct {
	TurnEndsAt *int64  `json:"turnEndsAt"`
	PlayerID   *string `json:"playerId"`
}

// ActionSyncPayload is the server's authoritative echo of an action the
// client already applied optimistically.
type ActionSyncPayload struct {
	Action   string `json:"action"`
	PlayerID string `json:"playerId,omitempty"`
}

// Outbound action payloads.

// JoinRoomRequest asks for a seat (or spectator slot) in a room.
type JoinRoomRequest struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
}

// LeaveRoomRequest leaves the current room.
type LeaveRoomRequest struct {
	Reason string `json:"reason"`
}

// SubmitBidAction carries an optimistically applied bid.
type SubmitBidAction struct {
	Bid int `json:"bid"`
}

// PlayCardAction carries an optimistically played card.
type PlayCardAction struct {
	Card Card `json:"card"`
}

// ChatAction sends a chat line; the server acknowledges via ack frame.
type ChatAction struct {
	Message string `json:"message"`
}
