package transport

import "encoding/json"

// Status is the discrete connection-lifecycle value.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	StatusDisconnected Status = "disconnected"
	StatusOffline      Status = "offline"
	StatusError        Status = "error"
)

// StatusInfo is one lifecycle transition. Attempt counts reconnection tries
// within the current outage; it is zero outside a reconnect loop.
type StatusInfo struct {
	Status  Status `json:"status"`
	Attempt int    `json:"attempt,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// encodeStatus renders a transition in the same payload shape the server
// uses for its connection_status events, so both share one bus stream.
func encodeStatus(info StatusInfo) (json.RawMessage, error) {
	return json.Marshal(info)
}

// Offline reports whether the status gates player actions in presentation.
func (s StatusInfo) Offline() bool {
	switch s.Status {
	case StatusOffline, StatusDisconnected, StatusReconnecting, StatusError:
		return true
	}
	return false
}
