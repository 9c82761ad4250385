// Package protocol defines the wire vocabulary shared between the client
// runtime and the game server.
//
// Every frame on the socket is an Envelope: a type tag plus a raw JSON
// payload. Inbound payloads are decoded into tagged variant structs whose
// optional fields are pointers; a nil pointer means "the server did not say",
// and reducers keep the previous value. This is deliberate: the server is free
// to send partial shapes, and a partial shape must never corrupt local state.
//
// Timestamps travel as milliseconds since the Unix epoch (the server's
// convention); TimeFromMillis converts them at the decode boundary so the rest
// of the client only ever sees time.Time.
package protocol
