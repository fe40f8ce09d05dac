// Package backendtest runs an in-process chat backend that speaks the same
// wire format as the real one: it answers a join with the history and
// broadcasts every chat message, with server-assigned id and timestamp, to
// all connected clients. Tests use Server; cmd/chat-devserver serves a
// Backend on a fixed address for local runs.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"github.com/omochice/socket-chat-client/pkg/protocol"
	"github.com/rs/zerolog"
)

// Frame is one frame received from a client.
type Frame struct {
	Type    protocol.MessageType
	Payload json.RawMessage
	From    string
}

// Backend is the fake chat backend as an http.Handler.
type Backend struct {
	hub    *hub
	logger zerolog.Logger

	mu          sync.Mutex
	history     []protocol.ChatMessage
	sendHistory bool
	now         func() time.Time

	frames chan Frame
}

// Option configures a Backend.
type Option func(*Backend)

// WithHistory seeds the history sent to each joining client.
func WithHistory(msgs ...protocol.ChatMessage) Option {
	return func(b *Backend) {
		b.history = append(b.history, msgs...)
	}
}

// WithoutHistory makes the backend skip the history reply to joins.
func WithoutHistory() Option {
	return func(b *Backend) {
		b.sendHistory = false
	}
}

// WithClock overrides the time source for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// NewBackend creates a Backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		hub:         newHub(),
		logger:      zerolog.Nop(),
		sendHistory: true,
		now:         time.Now,
		frames:      make(chan Frame, 64),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Server is a Backend listening on a local httptest server.
type Server struct {
	*Backend
	http *httptest.Server
}

// New starts a Server. Call Close when done.
func New(opts ...Option) *Server {
	b := NewBackend(opts...)
	return &Server{Backend: b, http: httptest.NewServer(b)}
}

// URL returns the ws:// address of the server.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.http.URL, "http")
}

// Close disconnects every client and stops the server.
func (s *Server) Close() {
	s.Drop()
	s.http.Close()
}

// Frames returns the channel of frames received from clients.
func (b *Backend) Frames() <-chan Frame {
	return b.frames
}

// ClientCount returns the number of connected clients.
func (b *Backend) ClientCount() int {
	return b.hub.count()
}

// Broadcast sends a server-authored message frame to every client.
func (b *Backend) Broadcast(msg protocol.ChatMessage) error {
	data, err := protocol.EncodeChatMessage(msg)
	if err != nil {
		return err
	}
	b.hub.broadcast(data)
	return nil
}

// BroadcastHistory sends a history frame to every client.
func (b *Backend) BroadcastHistory(msgs ...protocol.ChatMessage) error {
	data, err := protocol.EncodeHistory(msgs)
	if err != nil {
		return err
	}
	b.hub.broadcast(data)
	return nil
}

// BroadcastRaw sends data unchanged to every client.
func (b *Backend) BroadcastRaw(data []byte) {
	b.hub.broadcast(data)
}

// Disconnect closes every client connection with a normal close frame.
func (b *Backend) Disconnect() {
	for _, p := range b.hub.snapshot() {
		p.close(ws.StatusNormalClosure)
	}
}

// Drop closes every client connection without a close frame.
func (b *Backend) Drop() {
	for _, p := range b.hub.snapshot() {
		p.close(0)
	}
}

// ServeHTTP upgrades the request to a websocket and serves the client.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, rw, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		b.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("Upgrade failed")
		return
	}

	p := &peer{conn: conn, reader: conn}
	if rw != nil && rw.Reader != nil {
		p.reader = rw.Reader
	}

	b.hub.register(p)
	b.logger.Info().Str("remote", r.RemoteAddr).Int("clients", b.hub.count()).Msg("Client connected")
	defer func() {
		b.hub.unregister(p)
		_ = conn.Close()
		b.logger.Info().Str("remote", r.RemoteAddr).Str("username", p.username).Msg("Client disconnected")
	}()

	for {
		data, op, err := wsutil.ReadClientData(p)
		if err != nil {
			return
		}
		if op != ws.OpText && op != ws.OpBinary {
			continue
		}
		b.handleFrame(p, data)
	}
}

func (b *Backend) handleFrame(p *peer, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		b.logger.Debug().Err(err).Msg("Dropping malformed frame")
		return
	}

	select {
	case b.frames <- Frame{Type: env.Type, Payload: env.Payload, From: p.username}:
	default:
	}

	switch env.Type {
	case protocol.MessageTypeJoin:
		var name string
		if err := json.Unmarshal(env.Payload, &name); err != nil {
			return
		}
		p.username = name
		b.logger.Info().Str("username", name).Msg("Join")
		if !b.sendHistoryEnabled() {
			return
		}
		reply, err := protocol.EncodeHistory(b.History())
		if err != nil {
			return
		}
		_ = p.send(reply)

	case protocol.MessageTypeMessage:
		var text string
		if err := json.Unmarshal(env.Payload, &text); err != nil {
			return
		}
		msg := protocol.ChatMessage{
			ID:        uuid.NewString(),
			Username:  p.username,
			Text:      text,
			Timestamp: b.now(),
		}
		b.mu.Lock()
		b.history = append(b.history, msg)
		b.mu.Unlock()
		_ = b.Broadcast(msg)
	}
}

// History returns a copy of the stored messages.
func (b *Backend) History() []protocol.ChatMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]protocol.ChatMessage, len(b.history))
	copy(out, b.history)
	return out
}

func (b *Backend) sendHistoryEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sendHistory
}
