package protocol

// Inbound event types consumed by the synchronization engine.
const (
	EvtRoomJoined          = "room_joined"
	EvtRoomState           = "room_state"
	EvtRoomLeft            = "room_left"
	EvtJoinError           = "join_error"
	EvtConnectionStatus    = "connection_status"
	EvtChatMessageReceived = "chat_message_received"
	EvtHostSettingsUpdated = "host_settings_updated"
	EvtBiddingTurn         = "bidding_turn"
	EvtBidSubmitted        = "bid_submitted"
	EvtActionError         = "action_error"
	EvtRoundStarted        = "round_started"
	EvtCardsDealt          = "cards_dealt"
	EvtTrickStarted        = "trick_started"
	EvtCardPlayed          = "card_played"
	EvtTrickCompleted      = "trick_completed"
	EvtRoundCompleted      = "round_completed"
	EvtGameCompleted       = "game_completed"
	EvtGameTimerUpdate     = "game_timer_update"
	EvtTurnTimerUpdate     = "turn_timer_update"
	EvtActionSync          = "action_sync"
	EvtGameStateUpdate     = "game_state_update"

	// EvtAck is the transport-level acknowledgement frame. It never reaches
	// the engine; the adapter routes it to the pending ack callback.
	EvtAck = "ack"
)

// Outbound action types emitted by the client.
const (
	ActSubmitBid          = "submit_bid"
	ActPlayCard           = "play_card"
	ActJoinRoom           = "join_room"
	ActLeaveRoom          = "leave_room"
	ActStartGame          = "start_game"
	ActChatMessage        = "chat_message"
	ActUpdateHostSettings = "update_host_settings"
)
