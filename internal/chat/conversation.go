package chat

import (
	"strings"
	"sync"

	"github.com/omochice/socket-chat-client/internal/client"
	"github.com/omochice/socket-chat-client/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Conversation is the message list of the current connection.
//
// The list only ever changes by a full replace on a history event or a
// single append on a message event. Messages are never deduplicated: the
// same id arriving twice is shown twice.
type Conversation struct {
	mu       sync.RWMutex
	conn     Conn
	detach   func()
	messages []protocol.ChatMessage

	onChange func()
	logger   zerolog.Logger
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithChangeListener registers fn to be called after every change to the
// message list. It runs on the connection's reader goroutine.
func WithChangeListener(fn func()) Option {
	return func(c *Conversation) {
		c.onChange = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Conversation) {
		c.logger = logger
	}
}

// NewConversation creates an empty, detached conversation.
func NewConversation(opts ...Option) *Conversation {
	c := &Conversation{
		messages: []protocol.ChatMessage{},
		onChange: func() {},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Attach subscribes to conn, detaching from the previous connection first.
// Passing nil only detaches. The message list is kept as is; the next
// history event replaces it.
func (c *Conversation) Attach(conn Conn) {
	c.mu.Lock()
	if c.conn == conn && c.detach != nil {
		c.mu.Unlock()
		return
	}
	prev := c.detach
	c.conn = conn
	c.detach = nil
	c.mu.Unlock()

	if prev != nil {
		prev()
	}
	if conn == nil {
		return
	}

	unsubscribe := conn.Subscribe(func(data []byte) {
		c.receive(conn, data)
	})

	c.mu.Lock()
	if c.conn == conn {
		c.detach = unsubscribe
		unsubscribe = nil
	}
	c.mu.Unlock()

	// Attach raced with another Attach; drop the stale subscription.
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Detach stops receiving events. Equivalent to Attach(nil).
func (c *Conversation) Detach() {
	c.Attach(nil)
}

// Attached reports whether a connection is currently attached.
func (c *Conversation) Attached() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// SendMessage trims text and sends it as a chat message. Empty text or a
// missing or not yet open connection makes it a no-op that reports false. The message is
// not added locally; it appears once the server echoes it back.
func (c *Conversation) SendMessage(text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return false, nil
	}

	data, err := protocol.EncodeMessage(text)
	if err != nil {
		return false, err
	}
	if err := conn.Send(data); err != nil {
		if errors.Is(err, client.ErrNotConnected) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to send chat message")
	}
	return true, nil
}

// Clear empties the message list, e.g. on logout.
func (c *Conversation) Clear() {
	c.mu.Lock()
	c.messages = []protocol.ChatMessage{}
	c.mu.Unlock()

	c.onChange()
}

// Messages returns a copy of the message list in arrival order.
func (c *Conversation) Messages() []protocol.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]protocol.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Participants returns the distinct usernames of the current messages in
// order of first appearance.
func (c *Conversation) Participants() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return participants(c.messages)
}

func participants(msgs []protocol.ChatMessage) []string {
	seen := make(map[string]bool, len(msgs))
	names := []string{}
	for _, m := range msgs {
		if seen[m.Username] {
			continue
		}
		seen[m.Username] = true
		names = append(names, m.Username)
	}
	return names
}

func (c *Conversation) receive(from Conn, data []byte) {
	ev := protocol.Decode(data)

	c.mu.Lock()
	if c.conn != from {
		c.mu.Unlock()
		return
	}

	switch e := ev.(type) {
	case protocol.History:
		c.messages = append([]protocol.ChatMessage{}, e.Messages...)
		c.logger.Debug().Int("messages", len(e.Messages)).Msg("History replaced")
	case protocol.Message:
		c.messages = append(c.messages, e.Message)
	case protocol.Unrecognized:
		c.mu.Unlock()
		c.logger.Debug().Err(e.Reason).Str("type", string(e.Tag)).Msg("Ignoring frame")
		return
	default:
		c.mu.Unlock()
		c.logger.Debug().Str("type", string(ev.Type())).Msg("Ignoring event")
		return
	}
	c.mu.Unlock()

	c.onChange()
}
