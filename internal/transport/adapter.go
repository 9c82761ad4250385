package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fodinha-client/internal/bus"
	"fodinha-client/internal/protocol"
	"fodinha-client/internal/session"
)

var (
	// ErrNotConnected is returned by Emit before Connect has succeeded
	// or while the connection is down.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrDestroyed is returned by every operation after Destroy.
	ErrDestroyed = errors.New("transport: adapter destroyed")
)

// Liveness bounds. A pong must arrive within pongWait of the previous one;
// pings go out well inside that window.
const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Options configures the adapter.
type Options struct {
	// URL is the websocket endpoint (ws:// or wss://).
	URL string

	// DialTimeout bounds a single dial. Zero means 10s.
	DialTimeout time.Duration

	// WriteTimeout bounds a single frame write. Zero means 10s.
	WriteTimeout time.Duration

	// MaxAttempts caps the reconnect loop before reporting offline.
	MaxAttempts int

	// InitialBackoff and MaxBackoff bound the exponential reconnect delay.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (o *Options) fill() {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 8
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 250 * time.Millisecond
	}
	if o.MaxBackoff < o.InitialBackoff {
		o.MaxBackoff = 8 * time.Second
	}
}

// Adapter wraps exactly one logical server connection.
//
// Thread-safety model:
//   - Connect/Disconnect/Destroy/Emit: safe from any goroutine
//   - inbound dispatch: only the current epoch's read pump
//   - JoinRoom/LeaveRoom: safe from any goroutine, settle exactly once
type Adapter struct {
	opts     Options
	bus      *bus.Bus
	sessions *session.Store
	log      *slog.Logger

	epochs epochClock

	mu        sync.Mutex
	conn      *websocket.Conn
	status    StatusInfo
	destroyed bool

	// writeMu serializes frame writes; gorilla connections allow one
	// concurrent writer.
	writeMu sync.Mutex

	ackMu sync.Mutex
	acks  map[string]func(protocol.Ack)

	roomMu sync.Mutex
	room   RoomProjection
}

// New creates an adapter. The bus receives every inbound event; sessions may
// be nil, which disables session resumption entirely.
func New(opts Options, b *bus.Bus, sessions *session.Store, log *slog.Logger) *Adapter {
	opts.fill()
	if log == nil {
		log = slog.Default()
	}
	if sessions == nil {
		sessions = session.Ephemeral()
	}
	return &Adapter{
		opts:     opts,
		bus:      b,
		sessions: sessions,
		log:      log,
		status:   StatusInfo{Status: StatusIdle},
		acks:     make(map[string]func(protocol.Ack)),
		room:     newRoomProjection(),
	}
}

// Connect dials the server. Idempotent: connecting while connected is a
// no-op. A persisted session-resumption token is sent in the handshake query
// so the server can reseat the client.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return ErrDestroyed
	}
	if a.conn != nil {
		a.mu.Unlock()
		return nil
	}
	publish := a.setStatusLocked(StatusInfo{Status: StatusConnecting})
	a.mu.Unlock()
	publish()

	conn, err := a.dial(ctx)
	if err != nil {
		a.mu.Lock()
		publish = a.setStatusLocked(StatusInfo{Status: StatusError, Reason: err.Error()})
		a.mu.Unlock()
		publish()
		return err
	}

	a.adopt(conn)
	return nil
}

// adopt installs a freshly dialed connection, opens a new epoch and starts
// its read pump.
func (a *Adapter) adopt(conn *websocket.Conn) {
	a.mu.Lock()
	a.conn = conn
	epoch := a.epochs.Next()
	publish := a.setStatusLocked(StatusInfo{Status: StatusConnected})
	a.mu.Unlock()
	publish()

	go a.readPump(conn, epoch)
	go a.pingLoop(conn, epoch)
}

// pingLoop keeps the connection alive for its epoch. WriteControl is safe
// concurrently with WriteMessage, so no write lock is taken.
func (a *Adapter) pingLoop(conn *websocket.Conn, epoch int64) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		if a.epochs.Current() != epoch {
			return
		}
		deadline := time.Now().Add(a.opts.WriteTimeout)
		if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			return
		}
	}
}

func (a *Adapter) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(a.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("transport: parse url: %w", err)
	}
	if tok, ok := a.sessions.Token(a.opts.URL); ok {
		q := u.Query()
		q.Set("session", tok)
		u.RawQuery = q.Encode()
	}

	dialCtx, cancel := context.WithTimeout(ctx, a.opts.DialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", a.opts.URL, err)
	}
	return conn, nil
}

// Disconnect closes the connection deliberately. No reconnect follows.
// Safe to call repeatedly or before Connect.
func (a *Adapter) Disconnect() error {
	a.mu.Lock()
	conn := a.conn
	a.conn = nil
	// Invalidate the running pump so its exit is not treated as an outage.
	a.epochs.Next()
	publish := func() {}
	if conn != nil {
		publish = a.setStatusLocked(StatusInfo{Status: StatusDisconnected, Reason: "client disconnect"})
	}
	a.mu.Unlock()
	publish()

	if conn == nil {
		return nil
	}
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return conn.Close()
}

// Destroy disconnects and permanently retires the adapter.
func (a *Adapter) Destroy() {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	a.destroyed = true
	a.mu.Unlock()

	_ = a.Disconnect()

	a.ackMu.Lock()
	a.acks = make(map[string]func(protocol.Ack))
	a.ackMu.Unlock()
}

// Emit sends one action frame. When ack is non-nil the frame carries a
// correlation id and ack is invoked once with the server's acknowledgement.
// Emitting while not connected fails with ErrNotConnected; the caller decides
// whether that is fatal.
func (a *Adapter) Emit(event string, payload any, ack func(protocol.Ack)) error {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return ErrDestroyed
	}
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("%w: emit %s", ErrNotConnected, event)
	}

	id := ""
	if ack != nil {
		id = uuid.NewString()
		a.ackMu.Lock()
		a.acks[id] = ack
		a.ackMu.Unlock()
	}

	data, err := protocol.Encode(event, payload, id)
	if err != nil {
		a.dropAck(id)
		return err
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(a.opts.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		a.dropAck(id)
		return fmt.Errorf("transport: emit %s: %w", event, err)
	}
	return nil
}

func (a *Adapter) dropAck(id string) {
	if id == "" {
		return
	}
	a.ackMu.Lock()
	delete(a.acks, id)
	a.ackMu.Unlock()
}

// Status returns the latest lifecycle transition.
func (a *Adapter) Status() StatusInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Socket exposes the underlying connection for collaborators that need it
// (diagnostics). May be nil while disconnected.
func (a *Adapter) Socket() *websocket.Conn {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn
}

// setStatusLocked records a lifecycle transition and returns a publish
// closure the caller must run after releasing a.mu, so bus handlers are free
// to call back into the adapter.
func (a *Adapter) setStatusLocked(info StatusInfo) func() {
	a.status = info
	a.log.Debug("transport status", "status", info.Status, "attempt", info.Attempt, "reason", info.Reason)
	payload, err := encodeStatus(info)
	if err != nil {
		return func() {}
	}
	return func() { a.bus.Emit(protocol.EvtConnectionStatus, payload) }
}

// readPump is the single inbound dispatcher for one connection epoch.
func (a *Adapter) readPump(conn *websocket.Conn, epoch int64) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			a.pumpExit(epoch, err)
			return
		}
		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			a.log.Warn("dropping malformed frame", "error", err)
			continue
		}
		if a.epochs.Current() != epoch {
			// A newer connection took over while this frame was in flight.
			return
		}
		a.dispatch(env)
	}
}

func (a *Adapter) dispatch(env protocol.Envelope) {
	switch env.Type {
	case protocol.EvtAck:
		var ack protocol.Ack
		if err := protocol.Decode(env.Payload, &ack); err != nil {
			a.log.Warn("dropping malformed ack", "error", err)
			return
		}
		a.ackMu.Lock()
		fn := a.acks[ack.ID]
		delete(a.acks, ack.ID)
		a.ackMu.Unlock()
		if fn != nil {
			fn(ack)
		}
	case protocol.EvtConnectionStatus:
		var st protocol.ConnectionStatusPayload
		if err := protocol.Decode(env.Payload, &st); err == nil && st.SessionToken != "" {
			if err := a.sessions.SetToken(a.opts.URL, st.SessionToken); err != nil {
				a.log.Warn("could not persist session token", "error", err)
			}
		}
		a.bus.Emit(env.Type, env.Payload)
	default:
		a.trackRoom(env.Type, env.Payload)
		a.bus.Emit(env.Type, env.Payload)
	}
}

// pumpExit handles a read-pump termination: either a deliberate close
// (stale epoch, nothing to do) or an outage that starts the reconnect loop.
func (a *Adapter) pumpExit(epoch int64, cause error) {
	a.mu.Lock()
	if a.destroyed || a.epochs.Current() != epoch {
		a.mu.Unlock()
		return
	}
	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}
	if websocket.IsCloseError(cause, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		// The server ended the session cleanly; dialing back in would only
		// be refused.
		publish := a.setStatusLocked(StatusInfo{Status: StatusDisconnected, Reason: "server closed connection"})
		a.mu.Unlock()
		publish()
		return
	}
	a.mu.Unlock()

	a.log.Warn("connection lost", "error", cause)
	go a.reconnect(cause)
}

// reconnect retries with capped exponential backoff. Every attempt opens a
// fresh epoch on success; exhausting the attempts reports offline.
func (a *Adapter) reconnect(cause error) {
	backoff := a.opts.InitialBackoff
	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		a.mu.Lock()
		if a.destroyed || a.conn != nil {
			a.mu.Unlock()
			return
		}
		publish := a.setStatusLocked(StatusInfo{Status: StatusReconnecting, Attempt: attempt, Reason: cause.Error()})
		a.mu.Unlock()
		publish()

		time.Sleep(backoff)
		if backoff *= 2; backoff > a.opts.MaxBackoff {
			backoff = a.opts.MaxBackoff
		}

		conn, err := a.dial(context.Background())
		if err != nil {
			a.log.Warn("reconnect attempt failed", "attempt", attempt, "error", err)
			continue
		}
		a.adopt(conn)
		return
	}

	a.mu.Lock()
	publish := a.setStatusLocked(StatusInfo{Status: StatusOffline, Reason: cause.Error()})
	a.mu.Unlock()
	publish()
}
