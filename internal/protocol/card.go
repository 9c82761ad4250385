package protocol

import "fmt"

// Card is a playing card as the server names it. Rank and suit are opaque
// strings: the client never ranks cards itself, it only matches and displays
// what the server asserts (including the manilha rank, which arrives as data).
type Card struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

// Valid reports whether both rank and suit are present.
func (c Card) Valid() bool {
	return c.Rank != "" && c.Suit != ""
}

// Equal reports an exact rank+suit match.
func (c Card) Equal(other Card) bool {
	return c.Rank == other.Rank && c.Suit == other.Suit
}

func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// OwnedCard is a face-up card attributed to a player (blind-round reveals:
// everyone sees the others' single card, never their own).
type OwnedCard struct {
	PlayerID string `json:"playerId"`
	Card     Card   `json:"card"`
}
