package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"fodinha-client/internal/protocol"
	"fodinha-client/internal/textutil"
)

// JoinError is the server's refusal of a join_room request.
type JoinError struct {
	Code    string
	Message string
}

func (e *JoinError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("join rejected: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("join rejected: %s", e.Message)
}

// JoinRoom emits join_room and waits for the first of room_joined or
// join_error. Whichever event arrives first settles the call; the listener
// for the other outcome is torn down before returning. The display name is
// normalized before emit.
func (a *Adapter) JoinRoom(ctx context.Context, req protocol.JoinRoomRequest) (protocol.RoomSnapshot, error) {
	req.DisplayName = textutil.Clean(req.DisplayName)

	type outcome struct {
		snap protocol.RoomSnapshot
		err  error
	}
	settled := make(chan outcome, 1)
	settle := func(o outcome) {
		select {
		case settled <- o:
		default: // already settled, first event wins
		}
	}

	okSub := a.bus.Once(protocol.EvtRoomJoined, func(raw json.RawMessage) {
		var snap protocol.RoomSnapshot
		if err := protocol.Decode(raw, &snap); err != nil {
			settle(outcome{err: err})
			return
		}
		settle(outcome{snap: snap})
	})
	errSub := a.bus.Once(protocol.EvtJoinError, func(raw json.RawMessage) {
		var p protocol.ActionErrorPayload
		_ = protocol.Decode(raw, &p)
		if p.Message == "" {
			p.Message = "unknown join error"
		}
		settle(outcome{err: &JoinError{Code: p.Code, Message: p.Message}})
	})
	defer a.bus.Off(okSub)
	defer a.bus.Off(errSub)

	if err := a.Emit(protocol.ActJoinRoom, req, nil); err != nil {
		return protocol.RoomSnapshot{}, err
	}

	select {
	case <-ctx.Done():
		return protocol.RoomSnapshot{}, ctx.Err()
	case o := <-settled:
		return o.snap, o.err
	}
}

// LeaveRoom emits leave_room and waits for the room_left confirmation.
func (a *Adapter) LeaveRoom(ctx context.Context, reason string) error {
	confirmed := make(chan struct{}, 1)
	sub := a.bus.Once(protocol.EvtRoomLeft, func(json.RawMessage) {
		select {
		case confirmed <- struct{}{}:
		default:
		}
	})
	defer a.bus.Off(sub)

	if err := a.Emit(protocol.ActLeaveRoom, protocol.LeaveRoomRequest{Reason: reason}, nil); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-confirmed:
		return nil
	}
}
