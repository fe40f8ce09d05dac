// Package session owns the logged-in display name and the lifecycle of the
// single chat connection that goes with it.
package session

import (
	"context"
	"sync"

	"github.com/omochice/socket-chat-client/internal/client"
	"github.com/omochice/socket-chat-client/internal/storage"
	"github.com/omochice/socket-chat-client/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrEmptyName is returned by Login for an empty display name.
var ErrEmptyName = errors.New("display name is empty")

// Holder owns the session. It is the only component that opens or closes
// connections; at most one connection exists at a time. There is no retry:
// after a close or error the user has to log in again.
type Holder struct {
	endpoint string
	store    storage.Store
	factory  client.Factory
	logger   zerolog.Logger

	mu    sync.Mutex
	name  string
	state State
	err   error
	conn  client.Conn

	stateListeners []func(Snapshot)
	connListeners  []func(client.Conn)
}

// Option configures a Holder.
type Option func(*Holder)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Holder) {
		h.logger = logger
	}
}

// WithStateListener registers fn to run after every state change. It may run
// on a connection goroutine.
func WithStateListener(fn func(Snapshot)) Option {
	return func(h *Holder) {
		h.stateListeners = append(h.stateListeners, fn)
	}
}

// WithConnListener registers fn to run whenever the current connection
// changes, nil included. For a new connection it runs before dialing starts,
// so a subscriber attached from fn sees every frame.
func WithConnListener(fn func(client.Conn)) Option {
	return func(h *Holder) {
		h.connListeners = append(h.connListeners, fn)
	}
}

// NewHolder creates a logged out session for endpoint.
func NewHolder(endpoint string, store storage.Store, factory client.Factory, opts ...Option) *Holder {
	h := &Holder{
		endpoint: endpoint,
		store:    store,
		factory:  factory,
		logger:   zerolog.Nop(),
		state:    StateLoggedOut,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Snapshot returns the current session state.
func (h *Holder) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *Holder) snapshotLocked() Snapshot {
	return Snapshot{Name: h.name, State: h.state, Err: h.err}
}

// Conn returns the live connection, or nil.
func (h *Holder) Conn() client.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn
}

// Restore logs in with the stored display name, if there is one, without
// validating it again. It reports whether a session was restored.
func (h *Holder) Restore(ctx context.Context) (bool, error) {
	name, found, err := h.store.Load()
	if err != nil {
		return false, errors.Wrap(err, "failed to restore session")
	}
	if !found || name == "" {
		return false, nil
	}
	h.logger.Info().Str("name", name).Msg("Restoring session")
	h.connect(ctx, name)
	return true, nil
}

// Login stores name and connects with it. The name must already be
// validated. Any previous connection is closed first. A failure to persist
// the name is logged; the session still starts.
func (h *Holder) Login(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if err := h.store.Save(name); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to persist display name")
	}
	h.logger.Info().Str("name", name).Msg("Logging in")
	h.connect(ctx, name)
	return nil
}

// Logout forgets the stored name, closes the connection and returns to the
// logged out state.
func (h *Holder) Logout() error {
	clearErr := h.store.Clear()
	if clearErr != nil {
		h.logger.Warn().Err(clearErr).Msg("Failed to clear display name")
	}

	h.mu.Lock()
	conn := h.conn
	h.conn = nil
	h.name = ""
	h.state = StateLoggedOut
	h.err = nil
	snap := h.snapshotLocked()
	h.mu.Unlock()

	h.logger.Info().Msg("Logged out")
	if conn != nil {
		h.closeConn(conn)
		h.notifyConn(nil)
	}
	h.notifyState(snap)

	return errors.Wrap(clearErr, "failed to clear stored session")
}

// Close tears the session down without forgetting the stored name, e.g. when
// the program exits.
func (h *Holder) Close() {
	h.mu.Lock()
	conn := h.conn
	h.conn = nil
	if conn != nil {
		h.state = StateLoggedOut
	}
	h.mu.Unlock()

	if conn != nil {
		h.closeConn(conn)
		h.notifyConn(nil)
	}
}

func (h *Holder) connect(ctx context.Context, name string) {
	obs := &connObserver{h: h}
	conn := h.factory(h.endpoint, obs)
	obs.conn = conn

	h.mu.Lock()
	prev := h.conn
	h.conn = conn
	h.name = name
	h.state = StateConnecting
	h.err = nil
	snap := h.snapshotLocked()
	h.mu.Unlock()

	if prev != nil {
		h.closeConn(prev)
	}

	h.logger.Debug().Str("conn_id", conn.ID()).Msg("Connecting")
	h.notifyConn(conn)
	h.notifyState(snap)
	conn.Open(ctx)
}

func (h *Holder) closeConn(conn client.Conn) {
	if err := conn.Close(); err != nil {
		h.logger.Warn().Err(err).Str("conn_id", conn.ID()).Msg("Failed to close connection")
	}
}

// transition applies fn if conn is still the current connection. Callbacks
// from superseded connections are ignored.
func (h *Holder) transition(conn client.Conn, fn func()) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn != conn {
		return Snapshot{}, false
	}
	fn()
	return h.snapshotLocked(), true
}

func (h *Holder) notifyState(s Snapshot) {
	for _, fn := range h.stateListeners {
		fn(s)
	}
}

func (h *Holder) notifyConn(conn client.Conn) {
	for _, fn := range h.connListeners {
		fn(conn)
	}
}

// connObserver routes lifecycle callbacks of one connection to the holder.
type connObserver struct {
	h    *Holder
	conn client.Conn
}

func (o *connObserver) OnOpen() {
	h := o.h
	var name string
	snap, ok := h.transition(o.conn, func() {
		h.state = StateConnected
		name = h.name
	})
	if !ok {
		return
	}
	h.notifyState(snap)

	data, err := protocol.EncodeJoin(name)
	if err == nil {
		err = o.conn.Send(data)
	}
	if err != nil {
		h.logger.Error().Err(err).Str("conn_id", o.conn.ID()).Msg("Failed to send join")
		return
	}
	h.logger.Debug().Str("conn_id", o.conn.ID()).Str("name", name).Msg("Join sent")
}

func (o *connObserver) OnClose() {
	h := o.h
	snap, ok := h.transition(o.conn, func() {
		h.state = StateLoggedOut
		h.conn = nil
	})
	if !ok {
		return
	}
	h.notifyConn(nil)
	h.notifyState(snap)
}

func (o *connObserver) OnError(err error) {
	h := o.h
	snap, ok := h.transition(o.conn, func() {
		h.state = StateErrored
		h.err = err
		h.conn = nil
	})
	if !ok {
		return
	}
	h.notifyConn(nil)
	h.notifyState(snap)
}
