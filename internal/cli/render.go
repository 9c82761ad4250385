package cli

import (
	"fmt"
	"io"
	"strings"

	"fodinha-client/internal/engine"
)

// renderer prints game transitions as they happen. It is a throttled
// subscriber: it only reads the snapshots it is handed and never mutates
// engine state except through the action methods (which it doesn't call).
type renderer struct {
	out io.Writer

	lastPhase engine.Phase
	lastTurn  string
	lastChat  int
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out}
}

func (r *renderer) render(v engine.GameView) {
	if v.Phase != r.lastPhase {
		r.lastPhase = v.Phase
		fmt.Fprintf(r.out, "-- phase: %s\n", v.Phase)
		if v.Phase == engine.PhaseBidding && v.Round.Number > 0 {
			fmt.Fprintf(r.out, "   round %d, %d cards", v.Round.Number, v.Round.CardCount)
			if v.Round.Blind {
				fmt.Fprint(r.out, " (blind)")
			}
			fmt.Fprintln(r.out)
		}
		if v.Phase == engine.PhaseCompleted && v.GameResult != nil {
			fmt.Fprintf(r.out, "   winner: %s\n", r.playerName(v, v.GameResult.Winner))
		}
	}

	if v.CurrentTurn != r.lastTurn && v.CurrentTurn != "" {
		r.lastTurn = v.CurrentTurn
		if v.CurrentTurn == v.PlayerID {
			fmt.Fprintf(r.out, "your turn. hand: %s\n", handString(v))
			if v.Phase == engine.PhaseBidding {
				fmt.Fprintf(r.out, "valid bids: %v\n", v.ValidBids)
			}
		} else {
			fmt.Fprintf(r.out, "waiting for %s\n", r.playerName(v, v.CurrentTurn))
		}
	}

	if n := len(v.Chat); n > r.lastChat {
		for _, m := range v.Chat[r.lastChat:] {
			fmt.Fprintf(r.out, "[%s] %s\n", m.PlayerName, m.Message)
		}
		r.lastChat = n
	}
	if len(v.Chat) < r.lastChat {
		// Chat was truncated or reset.
		r.lastChat = len(v.Chat)
	}
}

func (r *renderer) playerName(v engine.GameView, id string) string {
	if p, ok := v.Players[id]; ok && p.Name != "" {
		return p.Name
	}
	return id
}

func handString(v engine.GameView) string {
	if v.Round.Blind && len(v.Hand) == 0 {
		return "(blind round - you can't see your own card)"
	}
	parts := make([]string, len(v.Hand))
	for i, c := range v.Hand {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
