package transport

import (
	"encoding/json"

	"fodinha-client/internal/protocol"
	"fodinha-client/internal/textutil"
)

// maxProjectedChat bounds the projection's chat history.
const maxProjectedChat = 100

// RoomProjection is a normalized, size-bounded view of the current room for
// collaborators that do not need full game semantics (lobby UI, window
// titles). It is maintained independently of the engine's GameView.
type RoomProjection struct {
	RoomID       string
	Phase        string
	Players      map[string]protocol.PlayerInfo
	HostSettings map[string]any
	Chat         []protocol.ChatMessage
}

func newRoomProjection() RoomProjection {
	return RoomProjection{
		Players:      make(map[string]protocol.PlayerInfo),
		HostSettings: make(map[string]any),
	}
}

// Room returns a copy of the current room projection.
func (a *Adapter) Room() RoomProjection {
	a.roomMu.Lock()
	defer a.roomMu.Unlock()

	out := RoomProjection{
		RoomID:       a.room.RoomID,
		Phase:        a.room.Phase,
		Players:      make(map[string]protocol.PlayerInfo, len(a.room.Players)),
		HostSettings: make(map[string]any, len(a.room.HostSettings)),
		Chat:         append([]protocol.ChatMessage(nil), a.room.Chat...),
	}
	for id, p := range a.room.Players {
		out.Players[id] = p
	}
	for k, v := range a.room.HostSettings {
		out.HostSettings[k] = v
	}
	return out
}

// trackRoom folds room-shaped inbound events into the projection before they
// reach the bus. Unknown events pass through untouched.
func (a *Adapter) trackRoom(event string, raw json.RawMessage) {
	switch event {
	case protocol.EvtRoomJoined, protocol.EvtRoomState, protocol.EvtGameStateUpdate:
		var snap protocol.RoomSnapshot
		if err := protocol.Decode(raw, &snap); err != nil {
			return
		}
		a.roomMu.Lock()
		if snap.RoomID != nil {
			a.room.RoomID = *snap.RoomID
		}
		if snap.Phase != nil {
			a.room.Phase = *snap.Phase
		}
		for id, p := range snap.Players {
			a.room.Players[id] = p
		}
		for k, v := range snap.HostSettings {
			a.room.HostSettings[k] = v
		}
		if snap.Chat != nil {
			a.room.Chat = boundChat(normalizeChat(snap.Chat))
		}
		a.roomMu.Unlock()

	case protocol.EvtChatMessageReceived:
		var msg protocol.ChatMessage
		if err := protocol.Decode(raw, &msg); err != nil {
			return
		}
		msg.Message = textutil.Clean(msg.Message)
		a.roomMu.Lock()
		a.room.Chat = boundChat(append(a.room.Chat, msg))
		a.roomMu.Unlock()

	case protocol.EvtHostSettingsUpdated:
		var settings map[string]any
		if err := protocol.Decode(raw, &settings); err != nil {
			return
		}
		a.roomMu.Lock()
		for k, v := range settings {
			a.room.HostSettings[k] = v
		}
		a.roomMu.Unlock()

	case protocol.EvtRoomLeft:
		a.roomMu.Lock()
		a.room = newRoomProjection()
		a.roomMu.Unlock()
	}
}

func normalizeChat(in []protocol.ChatMessage) []protocol.ChatMessage {
	out := make([]protocol.ChatMessage, len(in))
	for i, m := range in {
		m.Message = textutil.Clean(m.Message)
		out[i] = m
	}
	return out
}

// boundChat keeps the most recent entries, insertion order preserved.
func boundChat(chat []protocol.ChatMessage) []protocol.ChatMessage {
	if len(chat) <= maxProjectedChat {
		return chat
	}
	return append([]protocol.ChatMessage(nil), chat[len(chat)-maxProjectedChat:]...)
}
