package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the frame shape for every message on the socket.
// ID is set on outbound frames that want an acknowledgement; the server
// answers with an EvtAck envelope carrying the same ID.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	ID      string          `json:"id,omitempty"`
}

// Ack is the payload of an EvtAck frame.
type Ack struct {
	ID    string          `json:"id"`
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals an outbound envelope.
func Encode(eventType string, payload any, id string) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
		}
		raw = b
	}
	b, err := json.Marshal(Envelope{Type: eventType, Payload: raw, ID: id})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", eventType, err)
	}
	return b, nil
}

// DecodeEnvelope parses a raw frame. Frames without a type tag are rejected;
// a missing payload decodes to nil.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type tag")
	}
	return env, nil
}

// TimeFromMillis converts a server timestamp (milliseconds since the Unix
// epoch) to a time.Time. Zero or negative input yields the zero time, which
// reducers treat as "not sent".
func TimeFromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// MillisFromTime is the inverse of TimeFromMillis for outbound payloads.
func MillisFromTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
