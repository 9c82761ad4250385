// Package transport owns the single long-lived websocket connection to the
// game server.
//
// ARCHITECTURE:
//
// One logical connection, many epochs:
// Every successful dial starts a new connection epoch with its own read pump
// goroutine. The epoch counter (a monotonic logical clock) is the only thing
// that decides whether a pump is still current; a pump whose epoch is stale
// returns silently instead of racing the connection that replaced it. The
// server guarantees in-order at-most-once delivery per epoch and catches a
// resumed session up with a fresh room snapshot, never by replaying missed
// events.
//
// Inbound flow:
// read pump -> envelope decode -> ack routing / session-token capture ->
// room projection bookkeeping -> bus fan-out. The pump is the only goroutine
// that dispatches inbound events, which keeps reducer execution serial.
// Liveness is ping/pong: a per-epoch ping loop writes control frames and the
// pump's read deadline advances on every pong, so a dead peer surfaces as a
// read error. A close frame with a normal close code means the server ended
// the session deliberately and suppresses the reconnect loop.
//
// Status machine:
// connecting -> connected -> (reconnecting x N) -> connected | offline,
// plus disconnected (deliberate) and error (dial failure). Transitions are
// published on the bus as connection_status events with attempt counters,
// the same event shape the server uses, so consumers have one stream.
package transport
