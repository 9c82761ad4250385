package engine

import (
	"errors"
	"fmt"
)

// ActionErrorCode categorizes local validation failures.
type ActionErrorCode string

const (
	// ErrCodeWrongPhase indicates the action is not legal in the current phase.
	ErrCodeWrongPhase ActionErrorCode = "WRONG_PHASE"

	// ErrCodeUnknownPlayer indicates the local player identity is not known yet.
	ErrCodeUnknownPlayer ActionErrorCode = "UNKNOWN_PLAYER"

	// ErrCodeNotYourTurn indicates another player holds the turn.
	ErrCodeNotYourTurn ActionErrorCode = "NOT_YOUR_TURN"

	// ErrCodeInvalidBid indicates the bid value is outside the valid-bid set.
	ErrCodeInvalidBid ActionErrorCode = "INVALID_BID"

	// ErrCodeInvalidCard indicates the card has no identifiable rank or suit.
	ErrCodeInvalidCard ActionErrorCode = "INVALID_CARD"

	// ErrCodeCardNotInHand indicates no exact rank+suit match in the hand.
	ErrCodeCardNotInHand ActionErrorCode = "CARD_NOT_IN_HAND"

	// ErrCodeActionPending indicates another optimistic action is in flight.
	ErrCodeActionPending ActionErrorCode = "ACTION_PENDING"

	// ErrCodeEmitFailed indicates the transport refused the action frame;
	// the optimistic mutation has been undone.
	ErrCodeEmitFailed ActionErrorCode = "EMIT_FAILED"
)

// ActionError is a synchronous validation failure from SubmitBid or
// PlayCard. The engine never mutates state before raising one; surfacing it
// is the caller's responsibility.
type ActionError struct {
	Code    ActionErrorCode
	Action  string
	Message string
	Cause   error
}

func (e *ActionError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s: %s (action=%s)", e.Code, e.Message, e.Action)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ActionError) Unwrap() error {
	return e.Cause
}

// AsActionError unwraps err into an *ActionError if it is one.
func AsActionError(err error) (*ActionError, bool) {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func newActionError(code ActionErrorCode, action, message string) *ActionError {
	return &ActionError{Code: code, Action: action, Message: message}
}
